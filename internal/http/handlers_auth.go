package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"anggaran/internal/auth"
	"anggaran/internal/log"
)

type principalKey struct{}

// authed requires a valid bearer token and stores the principal in the
// request context.
func (s *Server) authed(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			UnauthorizedError("missing bearer token").Write(w)
			return
		}
		p, err := s.tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			FromError(r, err).Write(w)
			return
		}
		ctx := context.WithValue(r.Context(), principalKey{}, p)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUser, p.Username, log.FieldRole, string(p.Role)))
		next(w, r.WithContext(ctx))
	})
}

// principal returns the caller stored by authed.
func principal(r *http.Request) auth.Principal {
	p, _ := r.Context().Value(principalKey{}).(auth.Principal)
	return p
}

type loginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      auth.Principal `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if resp := decodeJSON(r, &req); resp != nil {
		resp.Write(w)
		return
	}
	p, err := s.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Login failed",
			log.FieldOperation, log.OpLogin, log.FieldUser, req.Username, log.FieldClientIP, s.ips.ClientIP(r))
		FromError(r, err).Write(w)
		return
	}
	token, exp, err := s.tokens.Issue(p)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	s.logger.InfoContext(r.Context(), "Login succeeded",
		log.FieldOperation, log.OpLogin, log.FieldUser, p.Username, log.FieldRole, string(p.Role))
	OK(loginResponse{Token: token, ExpiresAt: exp, User: p}).Write(w)
}
