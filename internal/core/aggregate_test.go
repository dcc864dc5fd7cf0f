package core

import (
	"testing"
	"time"
)

func baht(b int64) Money { return Money{Satang: b * 100} }

func schedulePayment(id, scheduleID, studentID string, amount Money, method PaymentMethod) Transaction {
	return Transaction{
		ID:         id,
		Name:       "เก็บเงิน",
		Source:     SourceSchedule,
		Kind:       KindIncome,
		Amount:     amount,
		Method:     method,
		ScheduleID: scheduleID,
		StudentID:  studentID,
		CreatedAt:  time.Date(2025, 11, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestAggregatePayments(t *testing.T) {
	txns := []Transaction{
		schedulePayment("t1", "sch1", "stuA", baht(150), MethodCash),
		schedulePayment("t2", "sch1", "stuA", baht(50), MethodKPlus),
		schedulePayment("t3", "sch1", "stuB", baht(80), MethodCash),
		schedulePayment("t4", "sch2", "stuA", baht(30), MethodTrueMoney),
		{ID: "t5", Name: "ขายของ", Source: SourceTransaction, Kind: KindIncome, Amount: baht(999)},
	}

	paid := AggregatePayments(txns)

	if got := paid.Paid("sch1", "stuA"); got.Satang != baht(200).Satang {
		t.Errorf("sch1/stuA paid = %d satang, want %d", got.Satang, baht(200).Satang)
	}
	if got := paid.Paid("sch1", "stuB"); got.Satang != baht(80).Satang {
		t.Errorf("sch1/stuB paid = %d satang, want %d", got.Satang, baht(80).Satang)
	}
	if got := paid.Paid("sch2", "stuA"); got.Satang != baht(30).Satang {
		t.Errorf("sch2/stuA paid = %d satang, want %d", got.Satang, baht(30).Satang)
	}
	if len(paid) != 3 {
		t.Errorf("paid map has %d keys, want 3 (only contributing pairs)", len(paid))
	}
}

func TestAggregatePaymentsZeroForAbsentPair(t *testing.T) {
	paid := AggregatePayments(nil)
	if got := paid.Paid("sch1", "ghost"); got.Satang != 0 {
		t.Errorf("absent pair paid = %d, want 0", got.Satang)
	}
}

func TestAggregatePaymentsSkipsMalformed(t *testing.T) {
	txns := []Transaction{
		{ID: "t1", Source: SourceSchedule, Kind: KindIncome, Amount: baht(100), ScheduleID: "sch1"}, // no student
		{ID: "t2", Source: SourceSchedule, Kind: KindIncome, Amount: baht(100), StudentID: "stuA"},  // no schedule
		schedulePayment("t3", "sch1", "stuA", baht(25), MethodCash),
	}

	paid := AggregatePayments(txns)
	if len(paid) != 1 {
		t.Fatalf("paid map has %d keys, want 1", len(paid))
	}
	if got := paid.Paid("sch1", "stuA"); got.Satang != baht(25).Satang {
		t.Errorf("sch1/stuA paid = %d, want %d", got.Satang, baht(25).Satang)
	}
	if got := SkippedPayments(txns); got != 2 {
		t.Errorf("SkippedPayments = %d, want 2", got)
	}
}

func TestSchedulePayments(t *testing.T) {
	txns := []Transaction{
		schedulePayment("t1", "sch1", "stuA", baht(10), MethodCash),
		schedulePayment("t2", "sch2", "stuA", baht(20), MethodCash),
		{ID: "t3", Name: "x", Source: SourceTransaction, Kind: KindExpense, Amount: baht(5)},
		schedulePayment("t4", "sch1", "stuB", baht(30), MethodKPlus),
	}

	got := SchedulePayments(txns, "sch1")
	if len(got) != 2 || got[0].ID != "t1" || got[1].ID != "t4" {
		t.Errorf("SchedulePayments order/content wrong: %+v", got)
	}
}
