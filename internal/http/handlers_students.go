package http

import (
	"io"
	"net/http"
	"strings"

	"classfund/internal/core"
	"classfund/internal/store"
)

type studentCreateRequest struct {
	Number    int    `json:"number"`
	Prefix    string `json:"prefix"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	NickName  string `json:"nick_name"`
}

type studentPatchRequest struct {
	Number    *int    `json:"number"`
	Prefix    *string `json:"prefix"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	NickName  *string `json:"nick_name"`
}

// handleListStudents serves the roster in number order.
func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	bundle := s.svc.Snapshot()
	out := make([]studentOut, 0, len(bundle.Students))
	for _, st := range bundle.Students {
		out = append(out, outStudent(st))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	student, ok := s.svc.Snapshot().StudentByID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, outStudent(student))
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req studentCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Number < 1 {
		writeError(w, http.StatusUnprocessableEntity, "number must be positive")
		return
	}
	if strings.TrimSpace(req.FirstName) == "" {
		writeError(w, http.StatusUnprocessableEntity, "first_name is required")
		return
	}

	student, err := s.svc.CreateStudent(r.Context(), store.StudentInput{
		Number:    req.Number,
		Prefix:    sanitizeInput(req.Prefix),
		FirstName: sanitizeInput(req.FirstName),
		LastName:  sanitizeInput(req.LastName),
		NickName:  sanitizeInput(req.NickName),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, outStudent(student))
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	var req studentPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Number != nil && *req.Number < 1 {
		writeError(w, http.StatusUnprocessableEntity, "number must be positive")
		return
	}

	patch := store.StudentPatch{Number: req.Number}
	for dst, src := range map[**string]*string{
		&patch.Prefix:    req.Prefix,
		&patch.FirstName: req.FirstName,
		&patch.LastName:  req.LastName,
		&patch.NickName:  req.NickName,
	} {
		if src != nil {
			clean := sanitizeInput(*src)
			*dst = &clean
		}
	}

	student, err := s.svc.UpdateStudent(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outStudent(student))
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteStudent(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStudentSummary reports what one student has paid and still owes
// across every schedule that obligates them.
func (s *Server) handleStudentSummary(w http.ResponseWriter, r *http.Request) {
	bundle := s.svc.Snapshot()
	student, ok := bundle.StudentByID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	paid := core.AggregatePayments(bundle.Transactions)
	owed := core.SchedulesOwedBy(bundle.Schedules, student.ID, paid)

	resp := studentSummaryOut{
		Student:       outStudent(student),
		TotalPaid:     outMoney(core.CappedTotalPaid(bundle.Schedules, student.ID, paid)),
		Outstanding:   outMoney(core.OutstandingTotal(bundle.Schedules, student.ID, paid)),
		OwedSchedules: make([]owedScheduleOut, 0, len(owed)),
	}
	for _, sch := range owed {
		resp.OwedSchedules = append(resp.OwedSchedules, owedScheduleOut{
			ScheduleID: sch.ID,
			Name:       sch.Name,
			Remaining:  outMoney(core.Remaining(sch, student.ID, paid)),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

const maxAvatarBytes = 5 << 20

func (s *Server) handleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	switch contentType {
	case "image/png", "image/jpeg", "image/webp":
	default:
		writeError(w, http.StatusUnsupportedMediaType, "avatar must be png, jpeg, or webp")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAvatarBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "avatar too large")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty body")
		return
	}

	student, err := s.svc.UploadAvatar(r.Context(), r.PathValue("id"), contentType, data)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outStudent(student))
}

func (s *Server) handleDeleteAvatar(w http.ResponseWriter, r *http.Request) {
	student, err := s.svc.DeleteAvatar(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outStudent(student))
}
