package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "classfund/internal/log"
	"classfund/internal/service"
	"classfund/internal/state"
	"classfund/internal/store/memory"
)

func newTestServer(t *testing.T) (*Server, *service.FundService) {
	t.Helper()

	appState := state.New()
	appState.MarkHydrated()

	logger := applog.New(applog.Config{
		Handler: slog.NewTextHandler(&bytes.Buffer{}, nil),
	})

	var srv *Server
	svc := service.New(memory.New(), appState,
		service.WithInvalidation(func() {
			if srv != nil {
				srv.PurgeCaches()
			}
		}))
	srv = NewServer(":0", svc, appState, logger)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, svc
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthAndReadiness(t *testing.T) {
	appState := state.New()
	logger := applog.New(applog.Config{Handler: slog.NewTextHandler(&bytes.Buffer{}, nil)})
	svc := service.New(memory.New(), appState)
	srv := NewServer(":0", svc, appState, logger)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz before hydration = %d, want 503", rec.Code)
	}

	appState.SetHydrationError(errors.New("store down"))
	rec = doJSON(t, srv, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "store down") {
		t.Errorf("readyz with error = %d %q", rec.Code, rec.Body.String())
	}

	appState.MarkHydrated()
	rec = doJSON(t, srv, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("readyz after hydration = %d", rec.Code)
	}
}

func TestStudentCRUDOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/students", map[string]any{
		"number": 1, "prefix": "ด.ญ.", "first_name": "มะลิ", "last_name": "ใจดี",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rec.Code, rec.Body.String())
	}
	created := decode[studentOut](t, rec)
	if created.FullName != "ด.ญ. มะลิ ใจดี" {
		t.Errorf("full_name = %q", created.FullName)
	}

	rec = doJSON(t, srv, http.MethodPatch, "/api/students/"+created.ID, map[string]any{
		"nick_name": "ลิ",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch = %d %s", rec.Code, rec.Body.String())
	}
	if updated := decode[studentOut](t, rec); updated.NickName != "ลิ" || updated.FirstName != "มะลิ" {
		t.Errorf("patch result = %+v", updated)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/students", nil)
	if students := decode[[]studentOut](t, rec); len(students) != 1 {
		t.Errorf("list = %+v", students)
	}

	rec = doJSON(t, srv, http.MethodDelete, "/api/students/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodGet, "/api/students/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d", rec.Code)
	}
}

func TestCreateStudentValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/students", map[string]any{"number": 0, "first_name": "x"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("zero number = %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodPost, "/api/students", map[string]any{"number": 1, "first_name": "  "})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("blank name = %d", rec.Code)
	}
}

func setupScheduleWithStudents(t *testing.T, srv *Server) (studentOut, studentOut, scheduleOut) {
	t.Helper()
	var students [2]studentOut
	for i := range students {
		rec := doJSON(t, srv, http.MethodPost, "/api/students", map[string]any{
			"number": i + 1, "first_name": fmt.Sprintf("s%d", i+1),
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create student: %d %s", rec.Code, rec.Body.String())
		}
		students[i] = decode[studentOut](t, rec)
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/schedules", map[string]any{
		"name": "ค่าหนังสือ", "start_date": "2025-11-01", "amount_per_item": "200",
		"student_ids": []string{students[0].ID, students[1].ID},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create schedule: %d %s", rec.Code, rec.Body.String())
	}
	return students[0], students[1], decode[scheduleOut](t, rec)
}

func payBody(scheduleID, studentID, amount string) map[string]any {
	return map[string]any{
		"name": "จ่ายค่าหนังสือ", "source": "schedule", "kind": "income",
		"amount": amount, "method": "cash",
		"schedule_id": scheduleID, "student_id": studentID,
	}
}

func TestScheduleStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	s1, s2, sch := setupScheduleWithStudents(t, srv)

	// s1 pays in full across two payments, s2 pays a partial amount.
	for _, amount := range []string{"150", "50"} {
		if rec := doJSON(t, srv, http.MethodPost, "/api/transactions", payBody(sch.ID, s1.ID, amount)); rec.Code != http.StatusCreated {
			t.Fatalf("payment = %d %s", rec.Code, rec.Body.String())
		}
	}
	if rec := doJSON(t, srv, http.MethodPost, "/api/transactions", payBody(sch.ID, s2.ID, "100")); rec.Code != http.StatusCreated {
		t.Fatal("partial payment failed")
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/schedules/"+sch.ID+"/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	status := decode[scheduleStatusOut](t, rec)
	if status.PaidCount != 1 || status.UnpaidCount != 1 {
		t.Errorf("counts = %d paid, %d unpaid", status.PaidCount, status.UnpaidCount)
	}
	if len(status.PaidStudentIDs) != 1 || status.PaidStudentIDs[0] != s1.ID {
		t.Errorf("paid ids = %v", status.PaidStudentIDs)
	}
	if status.Collected.Satang != 30000 {
		t.Errorf("collected = %d satang, want 30000", status.Collected.Satang)
	}
	if status.Target.Satang != 40000 {
		t.Errorf("target = %d satang, want 40000", status.Target.Satang)
	}
}

func TestOverpaymentRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	s1, _, sch := setupScheduleWithStudents(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions", payBody(sch.ID, s1.ID, "250"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("overpayment = %d %s", rec.Code, rec.Body.String())
	}
}

func TestStudentSummaryEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	s1, _, sch := setupScheduleWithStudents(t, srv)

	if rec := doJSON(t, srv, http.MethodPost, "/api/transactions", payBody(sch.ID, s1.ID, "50")); rec.Code != http.StatusCreated {
		t.Fatal("payment failed")
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/students/"+s1.ID+"/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary = %d", rec.Code)
	}
	summary := decode[studentSummaryOut](t, rec)
	if summary.TotalPaid.Satang != 5000 {
		t.Errorf("total paid = %d", summary.TotalPaid.Satang)
	}
	if summary.Outstanding.Satang != 15000 {
		t.Errorf("outstanding = %d", summary.Outstanding.Satang)
	}
	if len(summary.OwedSchedules) != 1 || summary.OwedSchedules[0].Remaining.Satang != 15000 {
		t.Errorf("owed schedules = %+v", summary.OwedSchedules)
	}
}

func TestTransactionFilters(t *testing.T) {
	srv, _ := newTestServer(t)
	s1, _, sch := setupScheduleWithStudents(t, srv)

	if rec := doJSON(t, srv, http.MethodPost, "/api/transactions", payBody(sch.ID, s1.ID, "200")); rec.Code != http.StatusCreated {
		t.Fatal("payment failed")
	}
	if rec := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"name": "ซื้ออุปกรณ์", "source": "transaction", "kind": "expense",
		"amount": "99", "method": "cash", "category": "อุปกรณ์",
	}); rec.Code != http.StatusCreated {
		t.Fatal("expense failed")
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/transactions", nil)
	if all := decode[[]transactionOut](t, rec); len(all) != 2 {
		t.Fatalf("unfiltered = %d", len(all))
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/transactions?kind=expense", nil)
	if expenses := decode[[]transactionOut](t, rec); len(expenses) != 1 || expenses[0].Kind != "expense" {
		t.Errorf("kind filter = %+v", expenses)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/transactions?search=%E0%B8%AB%E0%B8%99%E0%B8%B1%E0%B8%87%E0%B8%AA%E0%B8%B7%E0%B8%AD", nil)
	if hits := decode[[]transactionOut](t, rec); len(hits) != 1 {
		t.Errorf("search filter = %+v", hits)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/transactions?kind=refund", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad filter = %d", rec.Code)
	}
}

func TestDashboardSummaryReflectsWrites(t *testing.T) {
	srv, _ := newTestServer(t)
	s1, _, sch := setupScheduleWithStudents(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/dashboard/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary = %d", rec.Code)
	}
	if before := decode[summaryResponse](t, rec); before.Balance.Satang != 0 {
		t.Errorf("initial balance = %d", before.Balance.Satang)
	}

	// A write must invalidate the cached summary.
	if rec := doJSON(t, srv, http.MethodPost, "/api/transactions", payBody(sch.ID, s1.ID, "200")); rec.Code != http.StatusCreated {
		t.Fatal("payment failed")
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/dashboard/summary", nil)
	after := decode[summaryResponse](t, rec)
	if after.Balance.Satang != 20000 {
		t.Errorf("balance after payment = %d, want 20000", after.Balance.Satang)
	}
	if after.StudentIncome.Cash.Satang != 20000 || after.StudentIncome.Total.Satang != 20000 {
		t.Errorf("student income = %+v", after.StudentIncome)
	}
}

func TestDashboardCategoriesValidatesMonth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/dashboard/categories?month=2025-13-01", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad month = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/dashboard/categories?month=2025-11", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("valid month = %d %s", rec.Code, rec.Body.String())
	}
	if buckets := decode[[]categoryBucket](t, rec); len(buckets) != 0 {
		t.Errorf("empty data should yield no buckets: %+v", buckets)
	}
}

func TestCategoryCRUDOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/categories", map[string]any{"name": "อุปกรณ์", "icon": "pencil"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d", rec.Code)
	}
	created := decode[categoryOut](t, rec)

	rec = doJSON(t, srv, http.MethodGet, "/api/categories/"+created.ID, nil)
	if rec.Code != http.StatusOK || decode[categoryOut](t, rec).Name != "อุปกรณ์" {
		t.Errorf("get = %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, srv, http.MethodGet, "/api/categories/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get unknown = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPatch, "/api/categories/"+created.ID, map[string]any{"icon": "book"})
	if rec.Code != http.StatusOK || decode[categoryOut](t, rec).Icon != "book" {
		t.Errorf("patch = %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodDelete, "/api/categories/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodDelete, "/api/categories/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d", rec.Code)
	}
}

func TestUnknownStudentOnScheduleCreate(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/schedules", map[string]any{
		"name": "ค่ากิจกรรม", "start_date": "2025-12-01", "amount_per_item": "100",
		"student_ids": []string{"ghost"},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown student id = %d", rec.Code)
	}
}

func TestUnparsableAmountRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	s1, _, sch := setupScheduleWithStudents(t, srv)

	body := payBody(sch.ID, s1.ID, "not-a-number")
	rec := doJSON(t, srv, http.MethodPost, "/api/transactions", body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad amount = %d", rec.Code)
	}

	// Ensure core state untouched.
	rec = doJSON(t, srv, http.MethodGet, "/api/transactions", nil)
	if txns := decode[[]transactionOut](t, rec); len(txns) != 0 {
		t.Errorf("transactions = %+v", txns)
	}
}
