package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"classfund/internal/core"
)

func openTestMirror(t *testing.T) *Mirror {
	t.Helper()
	m, err := Open(filepath.Join(t.TempDir(), "mirror.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestReplaceAndLoadBundle(t *testing.T) {
	ctx := context.Background()
	m := openTestMirror(t)

	in := core.DataBundle{
		Students: []core.Student{
			{ID: "stu1", Number: 1, Prefix: "ด.ช.", FirstName: "สมชาย", LastName: "ใจดี", NickName: "ชาย"},
			{ID: "stu2", Number: 2, Prefix: "ด.ญ.", FirstName: "มะลิ", LastName: "งาม"},
		},
		Schedules: []core.Schedule{
			{ID: "sch1", Name: "ค่าหนังสือ", StartDate: "2025-11-01",
				AmountPerItem: core.Money{Satang: 20000}, StudentIDs: []string{"stu1", "stu2"}},
		},
		Transactions: []core.Transaction{
			{ID: "t1", Name: "จ่ายค่าหนังสือ", Source: core.SourceSchedule, Kind: core.KindIncome,
				Amount: core.Money{Satang: 20000}, Method: core.MethodKPlus,
				ScheduleID: "sch1", StudentID: "stu1",
				CreatedAt: time.Date(2025, 11, 15, 10, 0, 0, 0, time.UTC)},
		},
		Categories: []core.Category{{ID: "cat1", Name: "อุปกรณ์", Icon: "pencil"}},
	}

	if err := m.ReplaceBundle(ctx, in); err != nil {
		t.Fatalf("ReplaceBundle: %v", err)
	}

	out, err := m.LoadBundle(ctx)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}

	if len(out.Students) != 2 || out.Students[0].ID != "stu1" || out.Students[1].Number != 2 {
		t.Errorf("students = %+v", out.Students)
	}
	if len(out.Schedules) != 1 {
		t.Fatalf("schedules = %+v", out.Schedules)
	}
	sch := out.Schedules[0]
	if sch.AmountPerItem.Satang != 20000 {
		t.Errorf("amount = %d satang", sch.AmountPerItem.Satang)
	}
	if len(sch.StudentIDs) != 2 || sch.StudentIDs[0] != "stu1" {
		t.Errorf("student ids = %v", sch.StudentIDs)
	}
	if len(out.Transactions) != 1 {
		t.Fatalf("transactions = %+v", out.Transactions)
	}
	txn := out.Transactions[0]
	if txn.Method != core.MethodKPlus || txn.Amount.Satang != 20000 {
		t.Errorf("transaction = %+v", txn)
	}
	if !txn.CreatedAt.Equal(in.Transactions[0].CreatedAt) {
		t.Errorf("created_at = %v, want %v", txn.CreatedAt, in.Transactions[0].CreatedAt)
	}
	if len(out.Categories) != 1 || out.Categories[0].Name != "อุปกรณ์" {
		t.Errorf("categories = %+v", out.Categories)
	}
}

func TestReplaceBundleOverwrites(t *testing.T) {
	ctx := context.Background()
	m := openTestMirror(t)

	first := core.DataBundle{Students: []core.Student{{ID: "old", Number: 1, FirstName: "x"}}}
	if err := m.ReplaceBundle(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := core.DataBundle{Students: []core.Student{{ID: "new", Number: 2, FirstName: "y"}}}
	if err := m.ReplaceBundle(ctx, second); err != nil {
		t.Fatal(err)
	}

	out, err := m.LoadBundle(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Students) != 1 || out.Students[0].ID != "new" {
		t.Errorf("students = %+v, want only the replacement row", out.Students)
	}
}

func TestLastSyncedAt(t *testing.T) {
	ctx := context.Background()
	m := openTestMirror(t)

	ts, err := m.LastSyncedAt(ctx)
	if err != nil {
		t.Fatalf("LastSyncedAt before sync: %v", err)
	}
	if !ts.IsZero() {
		t.Errorf("expected zero time before first sync, got %v", ts)
	}

	if err := m.ReplaceBundle(ctx, core.DataBundle{}); err != nil {
		t.Fatal(err)
	}

	ts, err = m.LastSyncedAt(ctx)
	if err != nil {
		t.Fatalf("LastSyncedAt after sync: %v", err)
	}
	if ts.IsZero() || time.Since(ts) > time.Minute {
		t.Errorf("sync time not stamped: %v", ts)
	}
}
