package core

// PaidKey identifies a (schedule, student) obligation.
type PaidKey struct {
	ScheduleID string
	StudentID  string
}

// PaidMap holds cumulative paid amounts per (schedule, student) pair.
// Absence of a key is equivalent to a paid amount of zero.
type PaidMap map[PaidKey]Money

// Paid returns the cumulative amount paid by a student toward a schedule.
func (m PaidMap) Paid(scheduleID, studentID string) Money {
	return m[PaidKey{ScheduleID: scheduleID, StudentID: studentID}]
}

// AggregatePayments builds per-(schedule, student) paid totals from the
// full transaction list. Split and partial payments accumulate across any
// number of transactions. Ad hoc transactions are excluded; schedule
// transactions missing either reference id are skipped rather than
// rejected, since referential integrity is the store's responsibility.
func AggregatePayments(txns []Transaction) PaidMap {
	paid := make(PaidMap)
	for _, t := range txns {
		if t.Source != SourceSchedule || t.ScheduleID == "" || t.StudentID == "" {
			continue
		}
		key := PaidKey{ScheduleID: t.ScheduleID, StudentID: t.StudentID}
		paid[key] = paid[key].Add(t.Amount)
	}
	return paid
}

// SkippedPayments counts schedule-sourced transactions that
// AggregatePayments would skip for lacking a schedule or student id.
// Callers that want to surface data-integrity drift can log this count.
func SkippedPayments(txns []Transaction) int {
	n := 0
	for _, t := range txns {
		if t.Source == SourceSchedule && (t.ScheduleID == "" || t.StudentID == "") {
			n++
		}
	}
	return n
}

// SchedulePayments filters the transactions recorded against a schedule,
// preserving input order.
func SchedulePayments(txns []Transaction, scheduleID string) []Transaction {
	var out []Transaction
	for _, t := range txns {
		if t.Source == SourceSchedule && t.ScheduleID == scheduleID {
			out = append(out, t)
		}
	}
	return out
}
