// Package memory implements the data store ports in process memory,
// optionally seeded from JSON fixture files. It is the development
// backend and the test double for everything that consumes store.Store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"classfund/internal/core"
	"classfund/internal/store"
)

type Store struct {
	mu           sync.RWMutex
	students     []core.Student
	schedules    []core.Schedule
	transactions []core.Transaction
	categories   []core.Category
}

func New() *Store {
	return &Store{}
}

// seed file row shapes mirror the remote store's snake_case records,
// including the legacy "bank" method that NormalizeMethod rewrites.
type (
	studentRow struct {
		ID        string `json:"id"`
		Number    int    `json:"number"`
		Prefix    string `json:"prefix"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		NickName  string `json:"nick_name"`
		AvatarURL string `json:"avatar_url"`
	}

	scheduleRow struct {
		ID            string   `json:"id"`
		Name          string   `json:"name"`
		StartDate     string   `json:"start_date"`
		EndDate       string   `json:"end_date"`
		Description   string   `json:"description"`
		AmountPerItem float64  `json:"amount_per_item"`
		StudentIDs    []string `json:"student_ids"`
	}

	transactionRow struct {
		ID         string  `json:"id"`
		Name       string  `json:"name"`
		Source     string  `json:"source"`
		Kind       string  `json:"kind"`
		Amount     float64 `json:"amount"`
		Method     string  `json:"method"`
		Category   string  `json:"category"`
		ScheduleID string  `json:"schedule_id"`
		StudentID  string  `json:"student_id"`
		CreatedAt  string  `json:"created_at"`
	}

	categoryRow struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Icon string `json:"icon"`
	}
)

// NewFromFiles seeds a store from <base>/{students,schedules,transactions,categories}.json.
// Missing files leave the corresponding collection empty.
func NewFromFiles(base string) (*Store, error) {
	s := New()

	var students []studentRow
	if err := readJSON(filepath.Join(base, "students.json"), &students); err != nil {
		return nil, err
	}
	for _, r := range students {
		s.students = append(s.students, core.Student{
			ID: orNewID(r.ID), Number: r.Number, Prefix: r.Prefix,
			FirstName: r.FirstName, LastName: r.LastName,
			NickName: r.NickName, AvatarURL: r.AvatarURL,
		})
	}

	var schedules []scheduleRow
	if err := readJSON(filepath.Join(base, "schedules.json"), &schedules); err != nil {
		return nil, err
	}
	for _, r := range schedules {
		s.schedules = append(s.schedules, core.Schedule{
			ID: orNewID(r.ID), Name: r.Name, StartDate: r.StartDate, EndDate: r.EndDate,
			Details: r.Description, AmountPerItem: core.MoneyFromBaht(r.AmountPerItem),
			StudentIDs: append([]string(nil), r.StudentIDs...),
		})
	}

	var txns []transactionRow
	if err := readJSON(filepath.Join(base, "transactions.json"), &txns); err != nil {
		return nil, err
	}
	for _, r := range txns {
		createdAt := time.Now().UTC()
		if r.CreatedAt != "" {
			t, err := time.Parse(time.RFC3339, r.CreatedAt)
			if err != nil {
				return nil, fmt.Errorf("parse transaction %s created_at: %w", r.ID, err)
			}
			createdAt = t
		}
		s.transactions = append(s.transactions, core.Transaction{
			ID: orNewID(r.ID), Name: r.Name,
			Source: core.TxnSource(r.Source), Kind: core.TxnKind(r.Kind),
			Amount: core.MoneyFromBaht(r.Amount), Method: store.NormalizeMethod(r.Method),
			Category: r.Category, ScheduleID: r.ScheduleID, StudentID: r.StudentID,
			CreatedAt: createdAt,
		})
	}

	var categories []categoryRow
	if err := readJSON(filepath.Join(base, "categories.json"), &categories); err != nil {
		return nil, err
	}
	for _, r := range categories {
		s.categories = append(s.categories, core.Category{ID: orNewID(r.ID), Name: r.Name, Icon: r.Icon})
	}

	return s, nil
}

func readJSON(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read seed file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return nil
}

func orNewID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

// ListStudents returns students ordered by roster number.
func (s *Store) ListStudents(context.Context) ([]core.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]core.Student(nil), s.students...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *Store) GetStudent(_ context.Context, id string) (core.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.students {
		if st.ID == id {
			return st, nil
		}
	}
	return core.Student{}, store.ErrNotFound
}

func (s *Store) CreateStudent(_ context.Context, input store.StudentInput) (core.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	student := core.Student{
		ID: uuid.NewString(), Number: input.Number, Prefix: input.Prefix,
		FirstName: input.FirstName, LastName: input.LastName,
		NickName: input.NickName, AvatarURL: input.AvatarURL,
	}
	s.students = append(s.students, student)
	return student, nil
}

func (s *Store) UpdateStudent(_ context.Context, id string, patch store.StudentPatch) (core.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, st := range s.students {
		if st.ID != id {
			continue
		}
		if patch.Number != nil {
			st.Number = *patch.Number
		}
		if patch.Prefix != nil {
			st.Prefix = *patch.Prefix
		}
		if patch.FirstName != nil {
			st.FirstName = *patch.FirstName
		}
		if patch.LastName != nil {
			st.LastName = *patch.LastName
		}
		if patch.NickName != nil {
			st.NickName = *patch.NickName
		}
		if patch.AvatarURL != nil {
			st.AvatarURL = *patch.AvatarURL
		}
		s.students[i] = st
		return st, nil
	}
	return core.Student{}, store.ErrNotFound
}

// DeleteStudent removes the student and cascades to their transactions,
// matching the hosted store's foreign-key behavior.
func (s *Store) DeleteStudent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	kept := s.students[:0]
	for _, st := range s.students {
		if st.ID == id {
			found = true
			continue
		}
		kept = append(kept, st)
	}
	s.students = kept
	if !found {
		return store.ErrNotFound
	}
	keptTxns := s.transactions[:0]
	for _, t := range s.transactions {
		if t.StudentID == id {
			continue
		}
		keptTxns = append(keptTxns, t)
	}
	s.transactions = keptTxns
	return nil
}

func (s *Store) ListSchedules(context.Context) ([]core.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Schedule, len(s.schedules))
	for i, sch := range s.schedules {
		sch.StudentIDs = append([]string(nil), sch.StudentIDs...)
		out[i] = sch
	}
	return out, nil
}

func (s *Store) GetSchedule(_ context.Context, id string) (core.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sch := range s.schedules {
		if sch.ID == id {
			sch.StudentIDs = append([]string(nil), sch.StudentIDs...)
			return sch, nil
		}
	}
	return core.Schedule{}, store.ErrNotFound
}

func (s *Store) CreateSchedule(_ context.Context, input store.ScheduleInput) (core.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	schedule := core.Schedule{
		ID: uuid.NewString(), Name: input.Name, StartDate: input.StartDate,
		EndDate: input.EndDate, Details: input.Details,
		AmountPerItem: input.AmountPerItem,
		StudentIDs:    append([]string(nil), input.StudentIDs...),
	}
	s.schedules = append(s.schedules, schedule)
	return schedule, nil
}

func (s *Store) UpdateSchedule(_ context.Context, id string, patch store.SchedulePatch) (core.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sch := range s.schedules {
		if sch.ID != id {
			continue
		}
		if patch.Name != nil {
			sch.Name = *patch.Name
		}
		if patch.StartDate != nil {
			sch.StartDate = *patch.StartDate
		}
		if patch.EndDate != nil {
			sch.EndDate = *patch.EndDate
		}
		if patch.Details != nil {
			sch.Details = *patch.Details
		}
		if patch.AmountPerItem != nil {
			sch.AmountPerItem = *patch.AmountPerItem
		}
		if patch.StudentIDs != nil {
			sch.StudentIDs = append([]string(nil), patch.StudentIDs...)
		}
		s.schedules[i] = sch
		return sch, nil
	}
	return core.Schedule{}, store.ErrNotFound
}

func (s *Store) DeleteSchedule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sch := range s.schedules {
		if sch.ID == id {
			s.schedules = append(s.schedules[:i], s.schedules[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// ListTransactions returns transactions newest first, the order the
// hosted store serves them in.
func (s *Store) ListTransactions(context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]core.Transaction(nil), s.transactions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.transactions {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, store.ErrNotFound
}

func (s *Store) CreateTransaction(_ context.Context, input store.TransactionInput) (core.Transaction, error) {
	txn := core.Transaction{
		ID: uuid.NewString(), Name: input.Name, Source: input.Source, Kind: input.Kind,
		Amount: input.Amount, Method: input.Method, Category: input.Category,
		ScheduleID: input.ScheduleID, StudentID: input.StudentID,
		CreatedAt: time.Now().UTC(),
	}
	if err := txn.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, txn)
	return txn, nil
}

func (s *Store) UpdateTransaction(_ context.Context, id string, patch store.TransactionPatch) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.transactions {
		if t.ID != id {
			continue
		}
		if patch.Name != nil {
			t.Name = *patch.Name
		}
		if patch.Kind != nil {
			t.Kind = *patch.Kind
		}
		if patch.Amount != nil {
			t.Amount = *patch.Amount
		}
		if patch.Method != nil {
			t.Method = *patch.Method
		}
		if patch.Category != nil {
			t.Category = *patch.Category
		}
		if err := t.Validate(); err != nil {
			return core.Transaction{}, err
		}
		s.transactions[i] = t
		return t, nil
	}
	return core.Transaction{}, store.ErrNotFound
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.transactions {
		if t.ID == id {
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) ListCategories(context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Category(nil), s.categories...), nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Category{}, store.ErrNotFound
}

func (s *Store) CreateCategory(_ context.Context, input store.CategoryInput) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	category := core.Category{ID: uuid.NewString(), Name: input.Name, Icon: input.Icon}
	s.categories = append(s.categories, category)
	return category, nil
}

func (s *Store) UpdateCategory(_ context.Context, id string, patch store.CategoryPatch) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.categories {
		if c.ID != id {
			continue
		}
		if patch.Name != nil {
			c.Name = *patch.Name
		}
		if patch.Icon != nil {
			c.Icon = *patch.Icon
		}
		s.categories[i] = c
		return c, nil
	}
	return core.Category{}, store.ErrNotFound
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.categories {
		if c.ID == id {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}
