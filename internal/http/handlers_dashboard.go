package http

import (
	"net/http"
	"regexp"
	"time"

	"classfund/internal/core"
)

const summaryCacheKey = "summary"

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	if resp, ok := s.summaryCache.Get(summaryCacheKey); ok {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	bundle := s.svc.Snapshot()
	summary := core.CalculateBalance(bundle.Transactions)

	resp := summaryResponse{
		Balance:    outMoney(summary.Balance),
		IncomeTxn:  outMoney(summary.IncomeTxn),
		ExpenseTxn: outMoney(summary.ExpenseTxn),
		StudentIncome: methodBreakdownOut{
			KPlus:     outMoney(summary.StudentIncome.KPlus),
			Cash:      outMoney(summary.StudentIncome.Cash),
			TrueMoney: outMoney(summary.StudentIncome.TrueMoney),
			Total:     outMoney(summary.StudentIncome.Total),
		},
		SkippedPayments: core.SkippedPayments(bundle.Transactions),
	}

	s.summaryCache.Set(summaryCacheKey, resp)
	writeJSON(w, http.StatusOK, resp)
}

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// handleDashboardCategories returns the per-category chart buckets for
// one calendar month. The month defaults to the current UTC month.
func (s *Server) handleDashboardCategories(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = time.Now().UTC().Format("2006-01")
	}
	if !monthPattern.MatchString(month) {
		writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
		return
	}

	if buckets, ok := s.categoriesCache.Get(month); ok {
		writeJSON(w, http.StatusOK, buckets)
		return
	}

	bundle := s.svc.Snapshot()
	summary := core.SummarizeByCategory(bundle.Transactions, month)

	buckets := make([]categoryBucket, 0, len(summary))
	for _, b := range summary {
		buckets = append(buckets, categoryBucket{Name: b.Name, Amount: outMoney(b.Amount)})
	}

	s.categoriesCache.Set(month, buckets)
	writeJSON(w, http.StatusOK, buckets)
}
