// Package store defines the remote data store collaborator: per-entity
// CRUD ports consumed by the service layer and implemented by the
// postgres and memory backends.
package store

import (
	"context"
	"errors"

	"classfund/internal/core"
)

// ErrNotFound is returned when the requested entity does not exist.
var ErrNotFound = errors.New("entity not found")

type (
	StudentInput struct {
		Number    int
		Prefix    string
		FirstName string
		LastName  string
		NickName  string
		AvatarURL string
	}

	// StudentPatch is a partial update; nil fields are left unchanged.
	StudentPatch struct {
		Number    *int
		Prefix    *string
		FirstName *string
		LastName  *string
		NickName  *string
		AvatarURL *string
	}

	ScheduleInput struct {
		Name          string
		StartDate     string
		EndDate       string
		Details       string
		AmountPerItem core.Money
		StudentIDs    []string
	}

	SchedulePatch struct {
		Name          *string
		StartDate     *string
		EndDate       *string
		Details       *string
		AmountPerItem *core.Money
		StudentIDs    []string // nil means unchanged
	}

	TransactionInput struct {
		Name       string
		Source     core.TxnSource
		Kind       core.TxnKind
		Amount     core.Money
		Method     core.PaymentMethod
		Category   string
		ScheduleID string
		StudentID  string
	}

	// TransactionPatch never moves a transaction between sources or
	// schedules; those edits are a delete plus a create.
	TransactionPatch struct {
		Name     *string
		Kind     *core.TxnKind
		Amount   *core.Money
		Method   *core.PaymentMethod
		Category *string
	}

	CategoryInput struct {
		Name string
		Icon string
	}

	CategoryPatch struct {
		Name *string
		Icon *string
	}
)

type StudentStore interface {
	ListStudents(ctx context.Context) ([]core.Student, error)
	GetStudent(ctx context.Context, id string) (core.Student, error)
	CreateStudent(ctx context.Context, input StudentInput) (core.Student, error)
	UpdateStudent(ctx context.Context, id string, patch StudentPatch) (core.Student, error)
	// DeleteStudent also deletes the student's transactions.
	DeleteStudent(ctx context.Context, id string) error
}

type ScheduleStore interface {
	ListSchedules(ctx context.Context) ([]core.Schedule, error)
	GetSchedule(ctx context.Context, id string) (core.Schedule, error)
	CreateSchedule(ctx context.Context, input ScheduleInput) (core.Schedule, error)
	UpdateSchedule(ctx context.Context, id string, patch SchedulePatch) (core.Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error
}

type TransactionStore interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	CreateTransaction(ctx context.Context, input TransactionInput) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, id string, patch TransactionPatch) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
}

type CategoryStore interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	GetCategory(ctx context.Context, id string) (core.Category, error)
	CreateCategory(ctx context.Context, input CategoryInput) (core.Category, error)
	UpdateCategory(ctx context.Context, id string, patch CategoryPatch) (core.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

// Store is the full remote data store surface.
type Store interface {
	StudentStore
	ScheduleStore
	TransactionStore
	CategoryStore

	Ping(ctx context.Context) error
	Close() error
}
