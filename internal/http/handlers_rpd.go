package http

import (
	"net/http"

	"anggaran/internal/core"
	"anggaran/internal/rpd"
)

type rpdResponse struct {
	Plan     core.RPDItem       `json:"plan"`
	Progress rpd.ProgressReport `json:"progress"`
}

func (s *Server) handleGetRPD(w http.ResponseWriter, r *http.Request) {
	plan, err := s.budget.GetRPD(r.Context(), r.PathValue("id"))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	OK(rpdResponse{Plan: plan, Progress: rpd.Progress(plan)}).Write(w)
}

func (s *Server) handleUpdateRPD(w http.ResponseWriter, r *http.Request) {
	var req RPDRequest
	if resp := decodeJSON(r, &req); resp != nil {
		resp.Write(w)
		return
	}
	months, err := req.MonthValues()
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	plan, err := s.budget.UpdateRPD(r.Context(), r.PathValue("id"), months)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	OK(rpdResponse{Plan: plan, Progress: rpd.Progress(plan)}).Write(w)
}
