package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"classfund/internal/core"
	"classfund/internal/service"
	"classfund/internal/store"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeDomainError maps known error classes onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrUnknownSchedule),
		errors.Is(err, service.ErrUnknownStudent):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrNotObligated),
		errors.Is(err, service.ErrOverpayment),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrInvalidMethod),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidSource),
		errors.Is(err, core.ErrMissingSchedule),
		errors.Is(err, core.ErrMissingStudent),
		errors.Is(err, core.ErrExpenseSchedule):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// sanitizeInput trims whitespace and strips control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseAmount accepts decimal baht ("150", "150.50", "150,50") and
// returns exact satang.
func parseAmount(s string) (core.Money, error) {
	satang, err := core.ParseDecimalToSatang(strings.TrimSpace(s))
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Satang: satang}, nil
}
