package http

import (
	"net/http"
	"strings"

	"classfund/internal/store"
)

type categoryCreateRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type categoryPatchRequest struct {
	Name *string `json:"name"`
	Icon *string `json:"icon"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	bundle := s.svc.Snapshot()
	out := make([]categoryOut, 0, len(bundle.Categories))
	for _, c := range bundle.Categories {
		out = append(out, outCategory(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, c := range s.svc.Snapshot().Categories {
		if c.ID == id {
			writeJSON(w, http.StatusOK, outCategory(c))
			return
		}
	}
	writeError(w, http.StatusNotFound, "not found")
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}

	category, err := s.svc.CreateCategory(r.Context(), store.CategoryInput{
		Name: sanitizeInput(req.Name),
		Icon: sanitizeInput(req.Icon),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, outCategory(category))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var patch store.CategoryPatch
	if req.Name != nil {
		clean := sanitizeInput(*req.Name)
		if clean == "" {
			writeError(w, http.StatusUnprocessableEntity, "name cannot be empty")
			return
		}
		patch.Name = &clean
	}
	if req.Icon != nil {
		clean := sanitizeInput(*req.Icon)
		patch.Icon = &clean
	}

	category, err := s.svc.UpdateCategory(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outCategory(category))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
