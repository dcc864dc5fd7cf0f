package http

import (
	"time"

	"classfund/internal/core"
)

// moneyOut renders an amount both machine readable and preformatted.
type moneyOut struct {
	Satang int64  `json:"satang"`
	Text   string `json:"text"`
}

func outMoney(m core.Money) moneyOut {
	return moneyOut{Satang: m.Satang, Text: core.FormatBaht(m.Satang)}
}

type studentOut struct {
	ID        string `json:"id"`
	Number    int    `json:"number"`
	Prefix    string `json:"prefix,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	NickName  string `json:"nick_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	FullName  string `json:"full_name"`
}

func outStudent(s core.Student) studentOut {
	return studentOut{
		ID:        s.ID,
		Number:    s.Number,
		Prefix:    s.Prefix,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		NickName:  s.NickName,
		AvatarURL: s.AvatarURL,
		FullName:  s.FullName(),
	}
}

type scheduleOut struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	StartDate     string   `json:"start_date"`
	EndDate       string   `json:"end_date,omitempty"`
	Details       string   `json:"details,omitempty"`
	AmountPerItem moneyOut `json:"amount_per_item"`
	TargetAmount  moneyOut `json:"target_amount"`
	StudentIDs    []string `json:"student_ids"`
}

func outSchedule(s core.Schedule) scheduleOut {
	ids := s.StudentIDs
	if ids == nil {
		ids = []string{}
	}
	return scheduleOut{
		ID:            s.ID,
		Name:          s.Name,
		StartDate:     s.StartDate,
		EndDate:       s.EndDate,
		Details:       s.Details,
		AmountPerItem: outMoney(s.AmountPerItem),
		TargetAmount:  outMoney(s.TargetAmount()),
		StudentIDs:    ids,
	}
}

type transactionOut struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Source     string    `json:"source"`
	Kind       string    `json:"kind"`
	Amount     moneyOut  `json:"amount"`
	Method     string    `json:"method,omitempty"`
	Category   string    `json:"category,omitempty"`
	ScheduleID string    `json:"schedule_id,omitempty"`
	StudentID  string    `json:"student_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func outTransaction(t core.Transaction) transactionOut {
	return transactionOut{
		ID:         t.ID,
		Name:       t.Name,
		Source:     string(t.Source),
		Kind:       string(t.Kind),
		Amount:     outMoney(t.Amount),
		Method:     string(t.Method),
		Category:   t.Category,
		ScheduleID: t.ScheduleID,
		StudentID:  t.StudentID,
		CreatedAt:  t.CreatedAt,
	}
}

type categoryOut struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

func outCategory(c core.Category) categoryOut {
	return categoryOut{ID: c.ID, Name: c.Name, Icon: c.Icon}
}

type methodBreakdownOut struct {
	KPlus     moneyOut `json:"kplus"`
	Cash      moneyOut `json:"cash"`
	TrueMoney moneyOut `json:"truemoney"`
	Total     moneyOut `json:"total"`
}

type summaryResponse struct {
	Balance         moneyOut           `json:"balance"`
	IncomeTxn       moneyOut           `json:"income_txn"`
	ExpenseTxn      moneyOut           `json:"expense_txn"`
	StudentIncome   methodBreakdownOut `json:"student_income"`
	SkippedPayments int                `json:"skipped_payments"`
}

type categoryBucket struct {
	Name   string   `json:"name"`
	Amount moneyOut `json:"amount"`
}

type scheduleStatusOut struct {
	ScheduleID       string   `json:"schedule_id"`
	Name             string   `json:"name"`
	PaidStudentIDs   []string `json:"paid_student_ids"`
	UnpaidStudentIDs []string `json:"unpaid_student_ids"`
	PaidCount        int      `json:"paid_count"`
	UnpaidCount      int      `json:"unpaid_count"`
	Collected        moneyOut `json:"collected"`
	Target           moneyOut `json:"target"`
}

type owedScheduleOut struct {
	ScheduleID string   `json:"schedule_id"`
	Name       string   `json:"name"`
	Remaining  moneyOut `json:"remaining"`
}

type studentSummaryOut struct {
	Student       studentOut        `json:"student"`
	TotalPaid     moneyOut          `json:"total_paid"`
	Outstanding   moneyOut          `json:"outstanding"`
	OwedSchedules []owedScheduleOut `json:"owed_schedules"`
}
