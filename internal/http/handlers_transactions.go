package http

import (
	"net/http"
	"strings"

	"classfund/internal/core"
	"classfund/internal/store"
)

type transactionCreateRequest struct {
	Name       string `json:"name"`
	Source     string `json:"source"`
	Kind       string `json:"kind"`
	Amount     string `json:"amount"`
	Method     string `json:"method"`
	Category   string `json:"category"`
	ScheduleID string `json:"schedule_id"`
	StudentID  string `json:"student_id"`
}

type transactionPatchRequest struct {
	Name     *string `json:"name"`
	Kind     *string `json:"kind"`
	Amount   *string `json:"amount"`
	Method   *string `json:"method"`
	Category *string `json:"category"`
}

// handleListTransactions serves the transaction list, newest first,
// filtered by the query parameters. Filters are conjunctive; search
// matches the name case-insensitively.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := core.FilterOptions{
		Source: core.TxnSource(q.Get("source")),
		Kind:   core.TxnKind(q.Get("kind")),
		Method: core.PaymentMethod(q.Get("method")),
		Search: q.Get("search"),
	}
	if opts.Source != "" && !opts.Source.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid source filter")
		return
	}
	if opts.Kind != "" && !opts.Kind.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid kind filter")
		return
	}
	if opts.Method != "" && !opts.Method.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid method filter")
		return
	}

	bundle := s.svc.Snapshot()
	filtered := core.FilterTransactions(bundle.Transactions, opts)

	out := make([]transactionOut, 0, len(filtered))
	for _, t := range filtered {
		out = append(out, outTransaction(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, t := range s.svc.Snapshot().Transactions {
		if t.ID == id {
			writeJSON(w, http.StatusOK, outTransaction(t))
			return
		}
	}
	writeError(w, http.StatusNotFound, "not found")
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "amount must be a positive amount")
		return
	}

	txn, err := s.svc.CreateTransaction(r.Context(), store.TransactionInput{
		Name:       sanitizeInput(req.Name),
		Source:     core.TxnSource(req.Source),
		Kind:       core.TxnKind(req.Kind),
		Amount:     amount,
		Method:     core.PaymentMethod(req.Method),
		Category:   sanitizeInput(req.Category),
		ScheduleID: req.ScheduleID,
		StudentID:  req.StudentID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, outTransaction(txn))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var patch store.TransactionPatch
	if req.Name != nil {
		clean := sanitizeInput(*req.Name)
		if clean == "" {
			writeError(w, http.StatusUnprocessableEntity, "name cannot be empty")
			return
		}
		patch.Name = &clean
	}
	if req.Kind != nil {
		kind := core.TxnKind(*req.Kind)
		if !kind.IsValid() {
			writeError(w, http.StatusUnprocessableEntity, "invalid kind")
			return
		}
		patch.Kind = &kind
	}
	if req.Amount != nil {
		amount, err := parseAmount(*req.Amount)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "amount must be a positive amount")
			return
		}
		patch.Amount = &amount
	}
	if req.Method != nil {
		method := core.PaymentMethod(*req.Method)
		if !method.IsValid() {
			writeError(w, http.StatusUnprocessableEntity, "invalid method")
			return
		}
		patch.Method = &method
	}
	if req.Category != nil {
		clean := sanitizeInput(*req.Category)
		patch.Category = &clean
	}

	txn, err := s.svc.UpdateTransaction(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outTransaction(txn))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
