package core

// PaymentStatus partitions a schedule's obligated students into paid and
// unpaid. A student with a partial payment (more than zero, less than the
// required amount) counts as unpaid here; "partial" is a display nuance,
// not a third state.
type PaymentStatus struct {
	PaidStudentIDs   []string
	UnpaidStudentIDs []string
}

// Classify applies the paid-threshold rule to every student obligated
// under the schedule: paid iff the cumulative amount is at least
// AmountPerItem. Overpayment still counts as paid. The two slices
// preserve the order of schedule.StudentIDs and always partition it.
func Classify(schedule Schedule, paid PaidMap) PaymentStatus {
	status := PaymentStatus{
		PaidStudentIDs:   make([]string, 0, len(schedule.StudentIDs)),
		UnpaidStudentIDs: make([]string, 0),
	}
	for _, studentID := range schedule.StudentIDs {
		if paid.Paid(schedule.ID, studentID).Satang >= schedule.AmountPerItem.Satang {
			status.PaidStudentIDs = append(status.PaidStudentIDs, studentID)
		} else {
			status.UnpaidStudentIDs = append(status.UnpaidStudentIDs, studentID)
		}
	}
	return status
}

// CountPaymentStatus returns the paid/unpaid counts for one schedule in
// the snapshot. An unknown schedule id yields zero counts.
func CountPaymentStatus(bundle DataBundle, scheduleID string) (paidCount, unpaidCount int) {
	schedule, ok := bundle.ScheduleByID(scheduleID)
	if !ok {
		return 0, 0
	}
	status := Classify(schedule, AggregatePayments(bundle.Transactions))
	return len(status.PaidStudentIDs), len(status.UnpaidStudentIDs)
}

// Remaining is how much the student still owes on the schedule, floored
// at zero so overpayment never shows as negative debt. Payment entry caps
// new payments at this value.
func Remaining(schedule Schedule, studentID string, paid PaidMap) Money {
	rem := schedule.AmountPerItem.Sub(paid.Paid(schedule.ID, studentID))
	if rem.Satang < 0 {
		return Money{}
	}
	return rem
}

// CappedTotalPaid sums a student's payments across the given schedules,
// clamping each schedule's contribution at its AmountPerItem so that
// overpayment on one schedule cannot offset underpayment on another.
func CappedTotalPaid(schedules []Schedule, studentID string, paid PaidMap) Money {
	var total Money
	for _, sch := range schedules {
		if !sch.Owes(studentID) {
			continue
		}
		p := paid.Paid(sch.ID, studentID)
		if p.Satang > sch.AmountPerItem.Satang {
			p = sch.AmountPerItem
		}
		total = total.Add(p)
	}
	return total
}

// OutstandingTotal sums the remaining debt across every schedule that
// obligates the student.
func OutstandingTotal(schedules []Schedule, studentID string, paid PaidMap) Money {
	var total Money
	for _, sch := range schedules {
		if !sch.Owes(studentID) {
			continue
		}
		total = total.Add(Remaining(sch, studentID, paid))
	}
	return total
}

// SchedulesOwedBy returns the schedules the student has not yet paid in
// full, preserving input order.
func SchedulesOwedBy(schedules []Schedule, studentID string, paid PaidMap) []Schedule {
	var owed []Schedule
	for _, sch := range schedules {
		if !sch.Owes(studentID) {
			continue
		}
		if paid.Paid(sch.ID, studentID).Satang < sch.AmountPerItem.Satang {
			owed = append(owed, sch)
		}
	}
	return owed
}

// CollectedAmount is the total recorded against a schedule across all
// obligated students, uncapped.
func CollectedAmount(schedule Schedule, paid PaidMap) Money {
	var total Money
	for _, studentID := range schedule.StudentIDs {
		total = total.Add(paid.Paid(schedule.ID, studentID))
	}
	return total
}
