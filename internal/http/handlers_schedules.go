package http

import (
	"net/http"
	"strings"
	"time"

	"classfund/internal/core"
	"classfund/internal/store"
)

type scheduleCreateRequest struct {
	Name          string   `json:"name"`
	StartDate     string   `json:"start_date"`
	EndDate       string   `json:"end_date"`
	Details       string   `json:"details"`
	AmountPerItem string   `json:"amount_per_item"`
	StudentIDs    []string `json:"student_ids"`
}

type schedulePatchRequest struct {
	Name          *string  `json:"name"`
	StartDate     *string  `json:"start_date"`
	EndDate       *string  `json:"end_date"`
	Details       *string  `json:"details"`
	AmountPerItem *string  `json:"amount_per_item"`
	StudentIDs    []string `json:"student_ids"`
}

func validISODate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	bundle := s.svc.Snapshot()
	out := make([]scheduleOut, 0, len(bundle.Schedules))
	for _, sch := range bundle.Schedules {
		out = append(out, outSchedule(sch))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, ok := s.svc.Snapshot().ScheduleByID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, outSchedule(schedule))
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	if !validISODate(req.StartDate) {
		writeError(w, http.StatusUnprocessableEntity, "start_date must be YYYY-MM-DD")
		return
	}
	if req.EndDate != "" && !validISODate(req.EndDate) {
		writeError(w, http.StatusUnprocessableEntity, "end_date must be YYYY-MM-DD")
		return
	}
	amount, err := parseAmount(req.AmountPerItem)
	if err != nil || amount.Satang <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "amount_per_item must be a positive amount")
		return
	}

	// Unknown student ids would create obligations nobody can pay.
	bundle := s.svc.Snapshot()
	for _, id := range req.StudentIDs {
		if _, ok := bundle.StudentByID(id); !ok {
			writeError(w, http.StatusUnprocessableEntity, "unknown student id: "+id)
			return
		}
	}

	schedule, err := s.svc.CreateSchedule(r.Context(), store.ScheduleInput{
		Name:          sanitizeInput(req.Name),
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Details:       sanitizeInput(req.Details),
		AmountPerItem: amount,
		StudentIDs:    req.StudentIDs,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, outSchedule(schedule))
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req schedulePatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := store.SchedulePatch{StudentIDs: req.StudentIDs}
	if req.Name != nil {
		clean := sanitizeInput(*req.Name)
		if clean == "" {
			writeError(w, http.StatusUnprocessableEntity, "name cannot be empty")
			return
		}
		patch.Name = &clean
	}
	if req.StartDate != nil {
		if !validISODate(*req.StartDate) {
			writeError(w, http.StatusUnprocessableEntity, "start_date must be YYYY-MM-DD")
			return
		}
		patch.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		if *req.EndDate != "" && !validISODate(*req.EndDate) {
			writeError(w, http.StatusUnprocessableEntity, "end_date must be YYYY-MM-DD")
			return
		}
		patch.EndDate = req.EndDate
	}
	if req.Details != nil {
		clean := sanitizeInput(*req.Details)
		patch.Details = &clean
	}
	if req.AmountPerItem != nil {
		amount, err := parseAmount(*req.AmountPerItem)
		if err != nil || amount.Satang <= 0 {
			writeError(w, http.StatusUnprocessableEntity, "amount_per_item must be a positive amount")
			return
		}
		patch.AmountPerItem = &amount
	}
	if req.StudentIDs != nil {
		bundle := s.svc.Snapshot()
		for _, id := range req.StudentIDs {
			if _, ok := bundle.StudentByID(id); !ok {
				writeError(w, http.StatusUnprocessableEntity, "unknown student id: "+id)
				return
			}
		}
	}

	schedule, err := s.svc.UpdateSchedule(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outSchedule(schedule))
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteSchedule(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleScheduleStatus partitions the schedule's students into paid and
// unpaid under the paid-threshold rule.
func (s *Server) handleScheduleStatus(w http.ResponseWriter, r *http.Request) {
	bundle := s.svc.Snapshot()
	schedule, ok := bundle.ScheduleByID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	paid := core.AggregatePayments(bundle.Transactions)
	status := core.Classify(schedule, paid)

	writeJSON(w, http.StatusOK, scheduleStatusOut{
		ScheduleID:       schedule.ID,
		Name:             schedule.Name,
		PaidStudentIDs:   status.PaidStudentIDs,
		UnpaidStudentIDs: status.UnpaidStudentIDs,
		PaidCount:        len(status.PaidStudentIDs),
		UnpaidCount:      len(status.UnpaidStudentIDs),
		Collected:        outMoney(core.CollectedAmount(schedule, paid)),
		Target:           outMoney(schedule.TargetAmount()),
	})
}
