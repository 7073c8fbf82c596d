package http

import (
	"net/http"

	"anggaran/internal/core"
	"anggaran/internal/storage"
)

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.budget.List(r.Context(), ParseFilter(r.URL.Query()))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if items == nil {
		items = []storage.StoredItem{}
	}
	OK(items).Write(w)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.budget.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	OK(item).Write(w)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if resp := decodeJSON(r, &req); resp != nil {
		resp.Write(w)
		return
	}
	item, err := s.budget.Create(r.Context(), principal(r).Role, req.Fields())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	Created(item).Header("Location", "/api/items/"+item.ID).Write(w)
}

func (s *Server) handleEditItem(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if resp := decodeJSON(r, &req); resp != nil {
		resp.Write(w)
		return
	}
	item, err := s.budget.Edit(r.Context(), r.PathValue("id"), principal(r).Role, req.Fields())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	OK(item).Write(w)
}

// transition runs a body-less state change on the item named in the path.
func (s *Server) transition(w http.ResponseWriter, r *http.Request, op func(*http.Request, string, core.Role) (storage.StoredItem, error)) {
	item, err := op(r, r.PathValue("id"), principal(r).Role)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	OK(item).Write(w)
}

func (s *Server) handleApproveItem(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(r *http.Request, id string, role core.Role) (storage.StoredItem, error) {
		return s.budget.Approve(r.Context(), id, role)
	})
}

func (s *Server) handleRejectItem(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(r *http.Request, id string, role core.Role) (storage.StoredItem, error) {
		return s.budget.Reject(r.Context(), id, role)
	})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(r *http.Request, id string, role core.Role) (storage.StoredItem, error) {
		return s.budget.Delete(r.Context(), id, role)
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dim := core.DimProgramPembebanan
	if v := q.Get("dimension"); v != "" {
		d, err := core.ParseDimension(v)
		if err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		dim = d
	}
	rep, err := s.budget.Summary(r.Context(), dim, ParseFilter(q))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if rep.Records == nil {
		rep.Records = []core.SummaryRecord{}
	}
	OK(rep).Write(w)
}
