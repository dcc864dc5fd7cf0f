package core

import (
	"errors"
	"strings"
	"time"
)

const (
	MethodKPlus     PaymentMethod = "kplus"
	MethodCash      PaymentMethod = "cash"
	MethodTrueMoney PaymentMethod = "truemoney"

	KindIncome  TxnKind = "income"
	KindExpense TxnKind = "expense"

	SourceTransaction TxnSource = "transaction"
	SourceSchedule    TxnSource = "schedule"
)

type (
	// PaymentMethod is the channel a payment moved through.
	PaymentMethod string

	// TxnKind distinguishes income from expense transactions.
	TxnKind string

	// TxnSource distinguishes ad hoc transactions from schedule payments.
	TxnSource string

	// Student is a member of the classroom roster.
	Student struct {
		ID        string
		Number    int // unique positive roster number, display/sort key
		Prefix    string
		FirstName string
		LastName  string
		NickName  string
		AvatarURL string
	}

	// Schedule is a fee obligation applied to a set of students, with a
	// fixed per-student amount.
	Schedule struct {
		ID            string
		Name          string
		StartDate     string // ISO date (YYYY-MM-DD)
		EndDate       string // optional ISO date
		Details       string
		AmountPerItem Money
		StudentIDs    []string
	}

	// Category labels ad hoc transactions. Icon is opaque: an icon-set key
	// or an image URL.
	Category struct {
		ID   string
		Name string
		Icon string
	}

	// Transaction is a single recorded money movement. ScheduleID and
	// StudentID are set together when Source is SourceSchedule.
	Transaction struct {
		ID         string
		Name       string
		Source     TxnSource
		Kind       TxnKind
		Amount     Money
		Method     PaymentMethod // optional
		Category   string        // optional, only meaningful for SourceTransaction
		ScheduleID string
		StudentID  string
		CreatedAt  time.Time
	}

	// DataBundle is the immutable snapshot of all four collections that
	// every calculation operates on.
	DataBundle struct {
		Students     []Student
		Schedules    []Schedule
		Transactions []Transaction
		Categories   []Category
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidMethod   = errors.New("invalid payment method")
	ErrInvalidKind     = errors.New("invalid transaction kind")
	ErrInvalidSource   = errors.New("invalid transaction source")
	ErrMissingSchedule = errors.New("schedule transaction requires schedule id")
	ErrMissingStudent  = errors.New("schedule transaction requires student id")
	ErrExpenseSchedule = errors.New("schedule transactions must be income")
)

// IsValid reports whether m names a known payment channel. The empty
// method is valid: methods are optional on transactions.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case "", MethodKPlus, MethodCash, MethodTrueMoney:
		return true
	}
	return false
}

func (k TxnKind) IsValid() bool {
	return k == KindIncome || k == KindExpense
}

func (s TxnSource) IsValid() bool {
	return s == SourceTransaction || s == SourceSchedule
}

// FullName returns the display name including the honorific prefix.
func (s Student) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.Prefix, s.FirstName, s.LastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Owes reports whether the schedule obligates the given student.
func (s Schedule) Owes(studentID string) bool {
	for _, id := range s.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// TargetAmount is the total the schedule should collect once every
// obligated student has paid in full.
func (s Schedule) TargetAmount() Money {
	return Money{Satang: s.AmountPerItem.Satang * int64(len(s.StudentIDs))}
}

func (t Transaction) Validate() error {
	if len(strings.TrimSpace(t.Name)) == 0 {
		return ErrEmptyName
	}
	if !t.Source.IsValid() {
		return ErrInvalidSource
	}
	if !t.Kind.IsValid() {
		return ErrInvalidKind
	}
	if !t.Method.IsValid() {
		return ErrInvalidMethod
	}
	if t.Amount.Satang <= 0 {
		return ErrInvalidAmount
	}
	if t.Source == SourceSchedule {
		if t.ScheduleID == "" {
			return ErrMissingSchedule
		}
		if t.StudentID == "" {
			return ErrMissingStudent
		}
		if t.Kind != KindIncome {
			return ErrExpenseSchedule
		}
	}
	return nil
}

// ScheduleByID looks up a schedule in the snapshot.
func (b DataBundle) ScheduleByID(id string) (Schedule, bool) {
	for _, s := range b.Schedules {
		if s.ID == id {
			return s, true
		}
	}
	return Schedule{}, false
}

// StudentByID looks up a student in the snapshot.
func (b DataBundle) StudentByID(id string) (Student, bool) {
	for _, s := range b.Students {
		if s.ID == id {
			return s, true
		}
	}
	return Student{}, false
}
