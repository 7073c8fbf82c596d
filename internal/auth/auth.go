// Package auth authenticates the small fixed set of pre-provisioned
// accounts and issues session tokens carrying only a role.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"anggaran/internal/core"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Principal is an authenticated caller.
type Principal struct {
	Username string    `json:"username"`
	Role     core.Role `json:"role"`
}

// Authenticator checks a username and password.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (Principal, error)
}

type account struct {
	role core.Role
	hash []byte
}

// StaticAccounts authenticates against bcrypt hashes held in memory.
type StaticAccounts struct {
	accounts map[string]account
	// dummy keeps the timing of unknown users close to known ones.
	dummy []byte
}

var _ Authenticator = (*StaticAccounts)(nil)

// Account is the configured form of one login.
type Account struct {
	Username     string
	Role         core.Role
	PasswordHash string
}

func NewStaticAccounts(accounts []Account) (*StaticAccounts, error) {
	s := &StaticAccounts{accounts: make(map[string]account, len(accounts))}
	for _, a := range accounts {
		if a.Role != core.RoleAdmin && a.Role != core.RoleUser {
			return nil, fmt.Errorf("account %s: unknown role %q", a.Username, a.Role)
		}
		if _, err := bcrypt.Cost([]byte(a.PasswordHash)); err != nil {
			return nil, fmt.Errorf("account %s: %w", a.Username, err)
		}
		s.accounts[strings.ToLower(a.Username)] = account{role: a.Role, hash: []byte(a.PasswordHash)}
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	s.dummy = dummy
	return s, nil
}

// Authenticate matches usernames case-insensitively.
func (s *StaticAccounts) Authenticate(_ context.Context, username, password string) (Principal, error) {
	acc, ok := s.accounts[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(password))
		return Principal{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return Principal{}, ErrInvalidCredentials
	}
	return Principal{Username: strings.ToLower(strings.TrimSpace(username)), Role: acc.role}, nil
}

// Claims are the session token claims.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token and its expiry.
func (t *TokenIssuer) Issue(p Principal) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := Claims{
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies a token and returns its principal.
func (t *TokenIssuer) Parse(token string) (Principal, error) {
	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	tok, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil || !tok.Valid {
		return Principal{}, ErrInvalidToken
	}
	if !claims.VerifyExpiresAt(t.now(), true) {
		return Principal{}, ErrInvalidToken
	}
	role := core.Role(claims.Role)
	if role != core.RoleAdmin && role != core.RoleUser {
		return Principal{}, ErrInvalidToken
	}
	return Principal{Username: claims.Subject, Role: role}, nil
}
