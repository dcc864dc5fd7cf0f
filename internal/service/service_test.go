package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"classfund/internal/core"
	"classfund/internal/state"
	"classfund/internal/store"
	"classfund/internal/store/memory"
)

type recordedEvent struct {
	entity, id, op string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) PublishEntityChange(ctx context.Context, entity, id, op string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{entity, id, op})
	return nil
}

type fakeAvatars struct {
	uploaded map[string][]byte
	deleted  []string
	failNext bool
}

func newFakeAvatars() *fakeAvatars {
	return &fakeAvatars{uploaded: make(map[string][]byte)}
}

func (a *fakeAvatars) Upload(ctx context.Context, path, contentType string, data []byte) (string, error) {
	a.uploaded[path] = data
	return "https://bucket.local/object/public/avatars/" + path, nil
}

func (a *fakeAvatars) Delete(ctx context.Context, publicURL string) error {
	if a.failNext {
		a.failNext = false
		return errors.New("bucket unavailable")
	}
	a.deleted = append(a.deleted, publicURL)
	return nil
}

func newService(t *testing.T, opts ...Option) (*FundService, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	st := state.New()
	st.MarkHydrated()
	svc := New(memory.New(), st, append([]Option{WithPublisher(pub)}, opts...)...)
	return svc, pub
}

func TestCreateStudentUpdatesSnapshotAndPublishes(t *testing.T) {
	ctx := context.Background()
	svc, pub := newService(t)

	student, err := svc.CreateStudent(ctx, store.StudentInput{Number: 1, FirstName: "สมชาย"})
	if err != nil {
		t.Fatalf("CreateStudent: %v", err)
	}

	bundle := svc.Snapshot()
	if len(bundle.Students) != 1 || bundle.Students[0].ID != student.ID {
		t.Errorf("snapshot not updated: %+v", bundle.Students)
	}
	if len(pub.events) != 1 || pub.events[0] != (recordedEvent{"student", student.ID, "create"}) {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestSchedulePaymentValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	stu, err := svc.CreateStudent(ctx, store.StudentInput{Number: 1, FirstName: "มะลิ"})
	if err != nil {
		t.Fatal(err)
	}
	other, err := svc.CreateStudent(ctx, store.StudentInput{Number: 2, FirstName: "ชาย"})
	if err != nil {
		t.Fatal(err)
	}
	sch, err := svc.CreateSchedule(ctx, store.ScheduleInput{
		Name: "ค่าหนังสือ", StartDate: "2025-11-01",
		AmountPerItem: core.Money{Satang: 20000}, StudentIDs: []string{stu.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	payment := func(studentID, scheduleID string, satang int64) store.TransactionInput {
		return store.TransactionInput{
			Name: "จ่าย", Source: core.SourceSchedule, Kind: core.KindIncome,
			Amount: core.Money{Satang: satang}, Method: core.MethodCash,
			ScheduleID: scheduleID, StudentID: studentID,
		}
	}

	if _, err := svc.CreateTransaction(ctx, payment(stu.ID, "nope", 100)); !errors.Is(err, ErrUnknownSchedule) {
		t.Errorf("unknown schedule: %v", err)
	}
	if _, err := svc.CreateTransaction(ctx, payment("nope", sch.ID, 100)); !errors.Is(err, ErrUnknownStudent) {
		t.Errorf("unknown student: %v", err)
	}
	if _, err := svc.CreateTransaction(ctx, payment(other.ID, sch.ID, 100)); !errors.Is(err, ErrNotObligated) {
		t.Errorf("unobligated student: %v", err)
	}
	if _, err := svc.CreateTransaction(ctx, payment(stu.ID, sch.ID, 25000)); !errors.Is(err, ErrOverpayment) {
		t.Errorf("overpayment: %v", err)
	}

	// Two partial payments up to the exact amount are fine.
	if _, err := svc.CreateTransaction(ctx, payment(stu.ID, sch.ID, 15000)); err != nil {
		t.Fatalf("first partial payment: %v", err)
	}
	if _, err := svc.CreateTransaction(ctx, payment(stu.ID, sch.ID, 5000)); err != nil {
		t.Fatalf("second partial payment: %v", err)
	}

	// Fully paid: even one satang more is an overpayment now.
	if _, err := svc.CreateTransaction(ctx, payment(stu.ID, sch.ID, 1)); !errors.Is(err, ErrOverpayment) {
		t.Errorf("payment after fully paid: %v", err)
	}

	paid := core.AggregatePayments(svc.Snapshot().Transactions)
	if got := paid.Paid(sch.ID, stu.ID).Satang; got != 20000 {
		t.Errorf("total paid = %d satang, want 20000", got)
	}
}

func TestAdhocTransactionSkipsScheduleChecks(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.CreateTransaction(ctx, store.TransactionInput{
		Name: "ซื้ออุปกรณ์", Source: core.SourceTransaction, Kind: core.KindExpense,
		Amount: core.Money{Satang: 9900}, Method: core.MethodCash, Category: "อุปกรณ์",
	})
	if err != nil {
		t.Fatalf("ad hoc expense: %v", err)
	}
}

func TestDeleteStudentRemovesAvatarAndCascades(t *testing.T) {
	ctx := context.Background()
	avatars := newFakeAvatars()
	svc, pub := newService(t, WithAvatarStore(avatars))

	stu, err := svc.CreateStudent(ctx, store.StudentInput{Number: 1, FirstName: "มะลิ"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UploadAvatar(ctx, stu.ID, "image/png", []byte("png")); err != nil {
		t.Fatalf("UploadAvatar: %v", err)
	}

	updated, _ := svc.Snapshot().StudentByID(stu.ID)
	if updated.AvatarURL == "" {
		t.Fatal("avatar URL not recorded")
	}

	if err := svc.DeleteStudent(ctx, stu.ID); err != nil {
		t.Fatalf("DeleteStudent: %v", err)
	}
	if len(avatars.deleted) != 1 || avatars.deleted[0] != updated.AvatarURL {
		t.Errorf("avatar not deleted: %v", avatars.deleted)
	}
	if len(svc.Snapshot().Students) != 0 {
		t.Error("student still in snapshot")
	}

	var deletes int
	for _, e := range pub.events {
		if e.op == "delete" {
			deletes++
		}
	}
	if deletes != 1 {
		t.Errorf("delete events = %d, want 1", deletes)
	}
}

func TestDeleteStudentToleratesAvatarFailure(t *testing.T) {
	ctx := context.Background()
	avatars := newFakeAvatars()
	svc, _ := newService(t, WithAvatarStore(avatars))

	stu, err := svc.CreateStudent(ctx, store.StudentInput{Number: 1, FirstName: "มะลิ"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UploadAvatar(ctx, stu.ID, "image/png", []byte("png")); err != nil {
		t.Fatal(err)
	}

	avatars.failNext = true
	if err := svc.DeleteStudent(ctx, stu.ID); err != nil {
		t.Fatalf("DeleteStudent should survive avatar failure: %v", err)
	}
	if len(svc.Snapshot().Students) != 0 {
		t.Error("student still present")
	}
}

func TestDeleteAvatarClearsURL(t *testing.T) {
	ctx := context.Background()
	avatars := newFakeAvatars()
	svc, _ := newService(t, WithAvatarStore(avatars))

	stu, err := svc.CreateStudent(ctx, store.StudentInput{Number: 1, FirstName: "มะลิ"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UploadAvatar(ctx, stu.ID, "image/jpeg", []byte("jpg")); err != nil {
		t.Fatal(err)
	}

	cleared, err := svc.DeleteAvatar(ctx, stu.ID)
	if err != nil {
		t.Fatalf("DeleteAvatar: %v", err)
	}
	if cleared.AvatarURL != "" {
		t.Errorf("avatar URL = %q, want empty", cleared.AvatarURL)
	}

	// Deleting again is a no-op, not an error.
	if _, err := svc.DeleteAvatar(ctx, stu.ID); err != nil {
		t.Errorf("second DeleteAvatar: %v", err)
	}
}

func TestInvalidationRunsOnEveryChange(t *testing.T) {
	ctx := context.Background()
	var calls int
	svc, _ := newService(t, WithInvalidation(func() { calls++ }))

	stu, err := svc.CreateStudent(ctx, store.StudentInput{Number: 1, FirstName: "x"})
	if err != nil {
		t.Fatal(err)
	}
	name := "y"
	if _, err := svc.UpdateStudent(ctx, stu.ID, store.StudentPatch{FirstName: &name}); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteStudent(ctx, stu.ID); err != nil {
		t.Fatal(err)
	}

	if calls != 3 {
		t.Errorf("invalidation calls = %d, want 3", calls)
	}
}
