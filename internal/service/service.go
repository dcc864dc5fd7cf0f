// Package service orchestrates writes across the remote store, the
// in-memory snapshot, the change event queue, and the avatar bucket.
// Reads never touch the remote store; they come from the snapshot.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"classfund/internal/amqp"
	"classfund/internal/core"
	"classfund/internal/state"
	"classfund/internal/store"
)

var (
	ErrUnknownSchedule = errors.New("unknown schedule")
	ErrUnknownStudent  = errors.New("unknown student")
	ErrNotObligated    = errors.New("student is not obligated under this schedule")
	ErrOverpayment     = errors.New("payment exceeds remaining amount")
)

// ChangePublisher pushes entity change events to the sync worker.
type ChangePublisher interface {
	PublishEntityChange(ctx context.Context, entity, id, op string) error
}

// AvatarStore is the slice of the blob client the service needs.
type AvatarStore interface {
	Upload(ctx context.Context, path string, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, publicURL string) error
}

// FundService is the write path of the application. Every mutation goes
// remote first; the snapshot is only updated after the store confirms,
// so the in-memory view never gets ahead of durable data.
type FundService struct {
	store     store.Store
	state     *state.AppState
	publisher ChangePublisher
	avatars   AvatarStore

	// invalidate is called after every snapshot change so derived
	// response caches can drop stale entries.
	invalidate func()
}

type Option func(*FundService)

func WithPublisher(p ChangePublisher) Option {
	return func(s *FundService) { s.publisher = p }
}

func WithAvatarStore(a AvatarStore) Option {
	return func(s *FundService) { s.avatars = a }
}

func WithInvalidation(fn func()) Option {
	return func(s *FundService) { s.invalidate = fn }
}

func New(st store.Store, appState *state.AppState, opts ...Option) *FundService {
	s := &FundService{
		store:      st,
		state:      appState,
		invalidate: func() {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot exposes the current data bundle for the read path.
func (s *FundService) Snapshot() core.DataBundle {
	return s.state.Snapshot()
}

func (s *FundService) publish(ctx context.Context, entity, id, op string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEntityChange(ctx, entity, id, op); err != nil {
		// The write already succeeded; a lost event is recovered by the
		// worker's periodic refresh.
		slog.ErrorContext(ctx, "Failed to publish change event",
			"entity", entity, "id", id, "op", op, "error", err)
	}
}

func (s *FundService) changed(ctx context.Context, entity, id, op string) {
	s.invalidate()
	s.publish(ctx, entity, id, op)
}

// Students

func (s *FundService) CreateStudent(ctx context.Context, input store.StudentInput) (core.Student, error) {
	student, err := s.store.CreateStudent(ctx, input)
	if err != nil {
		return core.Student{}, fmt.Errorf("create student: %w", err)
	}
	s.state.AddStudent(student)
	s.changed(ctx, amqp.EntityStudent, student.ID, amqp.OpCreate)
	return student, nil
}

func (s *FundService) UpdateStudent(ctx context.Context, id string, patch store.StudentPatch) (core.Student, error) {
	student, err := s.store.UpdateStudent(ctx, id, patch)
	if err != nil {
		return core.Student{}, fmt.Errorf("update student: %w", err)
	}
	s.state.UpdateStudent(student)
	s.changed(ctx, amqp.EntityStudent, student.ID, amqp.OpUpdate)
	return student, nil
}

// DeleteStudent removes the student, their transactions (the store
// cascades), and their avatar. A failed avatar delete only logs: an
// orphaned image is preferable to a student that cannot be removed.
func (s *FundService) DeleteStudent(ctx context.Context, id string) error {
	student, ok := s.state.Snapshot().StudentByID(id)
	if ok && student.AvatarURL != "" && s.avatars != nil {
		if err := s.avatars.Delete(ctx, student.AvatarURL); err != nil {
			slog.WarnContext(ctx, "Failed to delete avatar, continuing",
				"student_id", id, "error", err)
		}
	}

	if err := s.store.DeleteStudent(ctx, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	s.state.DeleteStudent(id)
	s.changed(ctx, amqp.EntityStudent, id, amqp.OpDelete)
	return nil
}

// UploadAvatar stores the image and records its public URL on the
// student.
func (s *FundService) UploadAvatar(ctx context.Context, studentID, contentType string, data []byte) (core.Student, error) {
	if s.avatars == nil {
		return core.Student{}, errors.New("avatar storage not configured")
	}
	if _, ok := s.state.Snapshot().StudentByID(studentID); !ok {
		return core.Student{}, ErrUnknownStudent
	}

	ext := "bin"
	switch contentType {
	case "image/png":
		ext = "png"
	case "image/jpeg":
		ext = "jpg"
	case "image/webp":
		ext = "webp"
	}
	path := fmt.Sprintf("%s/avatar.%s", studentID, ext)

	publicURL, err := s.avatars.Upload(ctx, path, contentType, data)
	if err != nil {
		return core.Student{}, fmt.Errorf("upload avatar: %w", err)
	}

	return s.UpdateStudent(ctx, studentID, store.StudentPatch{AvatarURL: &publicURL})
}

// DeleteAvatar removes the stored image and clears the URL.
func (s *FundService) DeleteAvatar(ctx context.Context, studentID string) (core.Student, error) {
	if s.avatars == nil {
		return core.Student{}, errors.New("avatar storage not configured")
	}
	student, ok := s.state.Snapshot().StudentByID(studentID)
	if !ok {
		return core.Student{}, ErrUnknownStudent
	}
	if student.AvatarURL == "" {
		return student, nil
	}

	if err := s.avatars.Delete(ctx, student.AvatarURL); err != nil {
		return core.Student{}, fmt.Errorf("delete avatar: %w", err)
	}

	empty := ""
	return s.UpdateStudent(ctx, studentID, store.StudentPatch{AvatarURL: &empty})
}

// Schedules

func (s *FundService) CreateSchedule(ctx context.Context, input store.ScheduleInput) (core.Schedule, error) {
	schedule, err := s.store.CreateSchedule(ctx, input)
	if err != nil {
		return core.Schedule{}, fmt.Errorf("create schedule: %w", err)
	}
	s.state.AddSchedule(schedule)
	s.changed(ctx, amqp.EntitySchedule, schedule.ID, amqp.OpCreate)
	return schedule, nil
}

func (s *FundService) UpdateSchedule(ctx context.Context, id string, patch store.SchedulePatch) (core.Schedule, error) {
	schedule, err := s.store.UpdateSchedule(ctx, id, patch)
	if err != nil {
		return core.Schedule{}, fmt.Errorf("update schedule: %w", err)
	}
	s.state.UpdateSchedule(schedule)
	s.changed(ctx, amqp.EntitySchedule, schedule.ID, amqp.OpUpdate)
	return schedule, nil
}

func (s *FundService) DeleteSchedule(ctx context.Context, id string) error {
	if err := s.store.DeleteSchedule(ctx, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	s.state.DeleteSchedule(id)
	s.changed(ctx, amqp.EntitySchedule, id, amqp.OpDelete)
	return nil
}

// Transactions

func (s *FundService) CreateTransaction(ctx context.Context, input store.TransactionInput) (core.Transaction, error) {
	if input.Source == core.SourceSchedule {
		return s.recordSchedulePayment(ctx, input)
	}

	txn, err := s.store.CreateTransaction(ctx, input)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.state.AddTransaction(txn)
	s.changed(ctx, amqp.EntityTransaction, txn.ID, amqp.OpCreate)
	return txn, nil
}

// recordSchedulePayment validates a payment against the snapshot before
// it goes remote: the schedule and student must exist, the student must
// be obligated, and the amount may not exceed what they still owe.
func (s *FundService) recordSchedulePayment(ctx context.Context, input store.TransactionInput) (core.Transaction, error) {
	bundle := s.state.Snapshot()

	schedule, ok := bundle.ScheduleByID(input.ScheduleID)
	if !ok {
		return core.Transaction{}, ErrUnknownSchedule
	}
	if _, ok := bundle.StudentByID(input.StudentID); !ok {
		return core.Transaction{}, ErrUnknownStudent
	}
	if !schedule.Owes(input.StudentID) {
		return core.Transaction{}, ErrNotObligated
	}

	paid := core.AggregatePayments(bundle.Transactions)
	remaining := core.Remaining(schedule, input.StudentID, paid)
	if input.Amount.Satang > remaining.Satang {
		return core.Transaction{}, fmt.Errorf("%w: remaining %d satang, got %d",
			ErrOverpayment, remaining.Satang, input.Amount.Satang)
	}

	txn, err := s.store.CreateTransaction(ctx, input)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create schedule payment: %w", err)
	}
	s.state.AddTransaction(txn)
	s.changed(ctx, amqp.EntityTransaction, txn.ID, amqp.OpCreate)

	slog.InfoContext(ctx, "Recorded schedule payment",
		"schedule_id", input.ScheduleID,
		"student_id", input.StudentID,
		"amount_satang", input.Amount.Satang,
		"remaining_satang", remaining.Satang-input.Amount.Satang)

	return txn, nil
}

func (s *FundService) UpdateTransaction(ctx context.Context, id string, patch store.TransactionPatch) (core.Transaction, error) {
	txn, err := s.store.UpdateTransaction(ctx, id, patch)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.state.UpdateTransaction(txn)
	s.changed(ctx, amqp.EntityTransaction, txn.ID, amqp.OpUpdate)
	return txn, nil
}

func (s *FundService) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.state.DeleteTransaction(id)
	s.changed(ctx, amqp.EntityTransaction, id, amqp.OpDelete)
	return nil
}

// Categories

func (s *FundService) CreateCategory(ctx context.Context, input store.CategoryInput) (core.Category, error) {
	category, err := s.store.CreateCategory(ctx, input)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.state.AddCategory(category)
	s.changed(ctx, amqp.EntityCategory, category.ID, amqp.OpCreate)
	return category, nil
}

func (s *FundService) UpdateCategory(ctx context.Context, id string, patch store.CategoryPatch) (core.Category, error) {
	category, err := s.store.UpdateCategory(ctx, id, patch)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	s.state.UpdateCategory(category)
	s.changed(ctx, amqp.EntityCategory, category.ID, amqp.OpUpdate)
	return category, nil
}

func (s *FundService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.state.DeleteCategory(id)
	s.changed(ctx, amqp.EntityCategory, id, amqp.OpDelete)
	return nil
}
