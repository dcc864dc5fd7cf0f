// Package state holds the application's current DataBundle snapshot.
//
// The snapshot is replaced wholesale on hydration and updated
// copy-on-write per entity after a confirmed remote write, so a bundle
// returned by Snapshot is never mutated afterwards and can be handed to
// the core calculations without locking.
package state

import (
	"sync"

	"classfund/internal/core"
)

// AppState is the explicit replacement for a global mutable store: one
// bundle, a hydration flag, and an optional hydration error, all behind
// a single mutex.
type AppState struct {
	mu           sync.RWMutex
	data         core.DataBundle
	hydrated     bool
	hydrationErr error
}

func New() *AppState {
	return &AppState{}
}

// Snapshot returns the current bundle. The slices are copied so callers
// can iterate without holding any lock; element values are immutable
// records.
func (s *AppState) Snapshot() core.DataBundle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyBundle(s.data)
}

// SetData replaces the whole bundle, as after a successful hydration.
func (s *AppState) SetData(bundle core.DataBundle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = copyBundle(bundle)
}

// MarkHydrated flags the state as ready and clears any hydration error.
func (s *AppState) MarkHydrated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrated = true
	s.hydrationErr = nil
}

func (s *AppState) SetHydrationError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrationErr = err
}

func (s *AppState) Hydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hydrated
}

func (s *AppState) HydrationError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hydrationErr
}

func (s *AppState) AddStudent(student core.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := copyBundle(s.data)
	next.Students = append(next.Students, student)
	s.data = next
}

func (s *AppState) UpdateStudent(student core.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := copyBundle(s.data)
	for i := range next.Students {
		if next.Students[i].ID == student.ID {
			next.Students[i] = student
			break
		}
	}
	s.data = next
}

// DeleteStudent removes the student and, mirroring the remote store's
// cascade, every transaction recorded against them.
func (s *AppState) DeleteStudent(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := copyBundle(s.data)
	next.Students = deleteWhere(next.Students, func(st core.Student) bool { return st.ID == id })
	next.Transactions = deleteWhere(next.Transactions, func(t core.Transaction) bool { return t.StudentID == id })
	s.data = next
}

func (s *AppState) AddSchedule(schedule core.Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := copyBundle(s.data)
	next.Schedules = append(next.Schedules, schedule)
	s.data = next
}

func (s *AppState) UpdateSchedule(schedule core.Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := copyBundle(s.data)
	for i := range next.Schedules {
		if next.Schedules[i].ID == schedule.ID {
			next.Schedules[i] = schedule
			break
		}
	}
	s.data = next
}

func (s *AppState) DeleteSchedule(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := copyBundle(s.data)
	next.Schedules = deleteWhere(next.Schedules, func(sch core.Schedule) bool { return sch.ID == id })
	s.data = next
}

func (s *AppState) AddTransaction(txn core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := copyBundle(s.data)
	// The stores list newest first; keep the snapshot in the same order.
	next.Transactions = append([]core.Transaction{txn}, next.Transactions...)
	s.data = next
}

func (s *AppState) UpdateTransaction(txn core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := copyBundle(s.data)
	for i := range next.Transactions {
		if next.Transactions[i].ID == txn.ID {
			next.Transactions[i] = txn
			break
		}
	}
	s.data = next
}

func (s *AppState) DeleteTransaction(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := copyBundle(s.data)
	next.Transactions = deleteWhere(next.Transactions, func(t core.Transaction) bool { return t.ID == id })
	s.data = next
}

func (s *AppState) AddCategory(category core.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := copyBundle(s.data)
	next.Categories = append(next.Categories, category)
	s.data = next
}

func (s *AppState) UpdateCategory(category core.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := copyBundle(s.data)
	for i := range next.Categories {
		if next.Categories[i].ID == category.ID {
			next.Categories[i] = category
			break
		}
	}
	s.data = next
}

func (s *AppState) DeleteCategory(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := copyBundle(s.data)
	next.Categories = deleteWhere(next.Categories, func(c core.Category) bool { return c.ID == id })
	s.data = next
}

func copyBundle(b core.DataBundle) core.DataBundle {
	out := core.DataBundle{
		Students:     make([]core.Student, len(b.Students)),
		Schedules:    make([]core.Schedule, len(b.Schedules)),
		Transactions: make([]core.Transaction, len(b.Transactions)),
		Categories:   make([]core.Category, len(b.Categories)),
	}
	copy(out.Students, b.Students)
	copy(out.Transactions, b.Transactions)
	copy(out.Categories, b.Categories)
	for i, sch := range b.Schedules {
		ids := make([]string, len(sch.StudentIDs))
		copy(ids, sch.StudentIDs)
		sch.StudentIDs = ids
		out.Schedules[i] = sch
	}
	return out
}

func deleteWhere[T any](items []T, match func(T) bool) []T {
	out := items[:0]
	for _, item := range items {
		if !match(item) {
			out = append(out, item)
		}
	}
	return out
}
