// Package postgres implements the data store ports against the hosted
// Postgres database. Rows use snake_case columns and decimal baht
// amounts; the scan path normalizes legacy method values and rounds
// amounts to satang so every amount entering the snapshot is exact.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"classfund/internal/core"
	"classfund/internal/store"
)

type Store struct {
	pool *pgxpool.Pool
}

// New connects to the hosted database and verifies the connection.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

const studentColumns = "id, number, prefix, first_name, last_name, nick_name, avatar_url"

func scanStudent(row pgx.Row) (core.Student, error) {
	var st core.Student
	var nickName, avatarURL *string
	err := row.Scan(&st.ID, &st.Number, &st.Prefix, &st.FirstName, &st.LastName, &nickName, &avatarURL)
	if err != nil {
		return core.Student{}, err
	}
	if nickName != nil {
		st.NickName = *nickName
	}
	if avatarURL != nil {
		st.AvatarURL = *avatarURL
	}
	return st, nil
}

func (s *Store) ListStudents(ctx context.Context) ([]core.Student, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+studentColumns+` FROM students ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var students []core.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

func (s *Store) GetStudent(ctx context.Context, id string) (core.Student, error) {
	st, err := scanStudent(s.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Student{}, store.ErrNotFound
	}
	if err != nil {
		return core.Student{}, fmt.Errorf("get student: %w", err)
	}
	return st, nil
}

func (s *Store) CreateStudent(ctx context.Context, input store.StudentInput) (core.Student, error) {
	st, err := scanStudent(s.pool.QueryRow(ctx, `
		INSERT INTO students (number, prefix, first_name, last_name, nick_name, avatar_url)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
		RETURNING `+studentColumns,
		input.Number, input.Prefix, input.FirstName, input.LastName, input.NickName, input.AvatarURL))
	if err != nil {
		return core.Student{}, fmt.Errorf("create student: %w", err)
	}
	return st, nil
}

func (s *Store) UpdateStudent(ctx context.Context, id string, patch store.StudentPatch) (core.Student, error) {
	set, args := newSetClause()
	if patch.Number != nil {
		set.add("number", *patch.Number, args)
	}
	if patch.Prefix != nil {
		set.add("prefix", *patch.Prefix, args)
	}
	if patch.FirstName != nil {
		set.add("first_name", *patch.FirstName, args)
	}
	if patch.LastName != nil {
		set.add("last_name", *patch.LastName, args)
	}
	if patch.NickName != nil {
		set.add("nick_name", nullIfEmpty(*patch.NickName), args)
	}
	if patch.AvatarURL != nil {
		set.add("avatar_url", nullIfEmpty(*patch.AvatarURL), args)
	}
	if set.empty() {
		return s.GetStudent(ctx, id)
	}

	st, err := scanStudent(s.pool.QueryRow(ctx,
		`UPDATE students SET `+set.String()+`, updated_at = now() WHERE id = `+set.next()+
			` RETURNING `+studentColumns,
		append(*args, id)...))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Student{}, store.ErrNotFound
	}
	if err != nil {
		return core.Student{}, fmt.Errorf("update student: %w", err)
	}
	return st, nil
}

// DeleteStudent removes the student; the transactions foreign key is
// declared ON DELETE CASCADE, so their payments go with them.
func (s *Store) DeleteStudent(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const scheduleColumns = "id, name, start_date, end_date, description, amount_per_item, student_ids"

func scanSchedule(row pgx.Row) (core.Schedule, error) {
	var sch core.Schedule
	var startDate time.Time
	var endDate *time.Time
	var details *string
	var amount float64
	err := row.Scan(&sch.ID, &sch.Name, &startDate, &endDate, &details, &amount, &sch.StudentIDs)
	if err != nil {
		return core.Schedule{}, err
	}
	sch.StartDate = startDate.Format("2006-01-02")
	if endDate != nil {
		sch.EndDate = endDate.Format("2006-01-02")
	}
	if details != nil {
		sch.Details = *details
	}
	sch.AmountPerItem = core.MoneyFromBaht(amount)
	return sch, nil
}

func (s *Store) ListSchedules(ctx context.Context) ([]core.Schedule, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+scheduleColumns+` FROM schedules ORDER BY start_date, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []core.Schedule
	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, sch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, nil
}

func (s *Store) GetSchedule(ctx context.Context, id string) (core.Schedule, error) {
	sch, err := scanSchedule(s.pool.QueryRow(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Schedule{}, store.ErrNotFound
	}
	if err != nil {
		return core.Schedule{}, fmt.Errorf("get schedule: %w", err)
	}
	return sch, nil
}

func (s *Store) CreateSchedule(ctx context.Context, input store.ScheduleInput) (core.Schedule, error) {
	sch, err := scanSchedule(s.pool.QueryRow(ctx, `
		INSERT INTO schedules (name, start_date, end_date, description, amount_per_item, student_ids)
		VALUES ($1, $2, NULLIF($3, '')::date, NULLIF($4, ''), $5, $6)
		RETURNING `+scheduleColumns,
		input.Name, input.StartDate, input.EndDate, input.Details,
		input.AmountPerItem.Baht(), input.StudentIDs))
	if err != nil {
		return core.Schedule{}, fmt.Errorf("create schedule: %w", err)
	}
	return sch, nil
}

func (s *Store) UpdateSchedule(ctx context.Context, id string, patch store.SchedulePatch) (core.Schedule, error) {
	set, args := newSetClause()
	if patch.Name != nil {
		set.add("name", *patch.Name, args)
	}
	if patch.StartDate != nil {
		set.add("start_date", *patch.StartDate, args)
	}
	if patch.EndDate != nil {
		set.add("end_date", nullIfEmpty(*patch.EndDate), args)
	}
	if patch.Details != nil {
		set.add("description", nullIfEmpty(*patch.Details), args)
	}
	if patch.AmountPerItem != nil {
		set.add("amount_per_item", patch.AmountPerItem.Baht(), args)
	}
	if patch.StudentIDs != nil {
		set.add("student_ids", patch.StudentIDs, args)
	}
	if set.empty() {
		return s.GetSchedule(ctx, id)
	}

	sch, err := scanSchedule(s.pool.QueryRow(ctx,
		`UPDATE schedules SET `+set.String()+`, updated_at = now() WHERE id = `+set.next()+
			` RETURNING `+scheduleColumns,
		append(*args, id)...))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Schedule{}, store.ErrNotFound
	}
	if err != nil {
		return core.Schedule{}, fmt.Errorf("update schedule: %w", err)
	}
	return sch, nil
}

func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const transactionColumns = "id, name, source, kind, amount, method, category, schedule_id, student_id, created_at"

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var t core.Transaction
	var amount float64
	var method, category, scheduleID, studentID *string
	err := row.Scan(&t.ID, &t.Name, &t.Source, &t.Kind, &amount,
		&method, &category, &scheduleID, &studentID, &t.CreatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Amount = core.MoneyFromBaht(amount)
	if method != nil {
		t.Method = store.NormalizeMethod(*method)
	}
	if category != nil {
		t.Category = *category
	}
	if scheduleID != nil {
		t.ScheduleID = *scheduleID
	}
	if studentID != nil {
		t.StudentID = *studentID
	}
	return t, nil
}

// ListTransactions returns every transaction newest first.
func (s *Store) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txns, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	t, err := scanTransaction(s.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (s *Store) CreateTransaction(ctx context.Context, input store.TransactionInput) (core.Transaction, error) {
	probe := core.Transaction{
		Name: input.Name, Source: input.Source, Kind: input.Kind,
		Amount: input.Amount, Method: input.Method, Category: input.Category,
		ScheduleID: input.ScheduleID, StudentID: input.StudentID,
	}
	if err := probe.Validate(); err != nil {
		return core.Transaction{}, err
	}

	t, err := scanTransaction(s.pool.QueryRow(ctx, `
		INSERT INTO transactions (name, source, kind, amount, method, category, schedule_id, student_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, '')::uuid, NULLIF($8, '')::uuid)
		RETURNING `+transactionColumns,
		input.Name, input.Source, input.Kind, input.Amount.Baht(),
		string(input.Method), input.Category, input.ScheduleID, input.StudentID))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, id string, patch store.TransactionPatch) (core.Transaction, error) {
	set, args := newSetClause()
	if patch.Name != nil {
		set.add("name", *patch.Name, args)
	}
	if patch.Kind != nil {
		set.add("kind", string(*patch.Kind), args)
	}
	if patch.Amount != nil {
		set.add("amount", patch.Amount.Baht(), args)
	}
	if patch.Method != nil {
		set.add("method", nullIfEmpty(string(*patch.Method)), args)
	}
	if patch.Category != nil {
		set.add("category", nullIfEmpty(*patch.Category), args)
	}
	if set.empty() {
		return s.GetTransaction(ctx, id)
	}

	t, err := scanTransaction(s.pool.QueryRow(ctx,
		`UPDATE transactions SET `+set.String()+`, updated_at = now() WHERE id = `+set.next()+
			` RETURNING `+transactionColumns,
		append(*args, id)...))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return t, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const categoryColumns = "id, name, icon"

func scanCategory(row pgx.Row) (core.Category, error) {
	var c core.Category
	var icon *string
	if err := row.Scan(&c.ID, &c.Name, &icon); err != nil {
		return core.Category{}, err
	}
	if icon != nil {
		c.Icon = *icon
	}
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (core.Category, error) {
	c, err := scanCategory(s.pool.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Category{}, store.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (s *Store) CreateCategory(ctx context.Context, input store.CategoryInput) (core.Category, error) {
	c, err := scanCategory(s.pool.QueryRow(ctx, `
		INSERT INTO categories (name, icon)
		VALUES ($1, NULLIF($2, ''))
		RETURNING `+categoryColumns,
		input.Name, input.Icon))
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id string, patch store.CategoryPatch) (core.Category, error) {
	set, args := newSetClause()
	if patch.Name != nil {
		set.add("name", *patch.Name, args)
	}
	if patch.Icon != nil {
		set.add("icon", nullIfEmpty(*patch.Icon), args)
	}
	if set.empty() {
		return s.GetCategory(ctx, id)
	}

	c, err := scanCategory(s.pool.QueryRow(ctx,
		`UPDATE categories SET `+set.String()+`, updated_at = now() WHERE id = `+set.next()+
			` RETURNING `+categoryColumns,
		append(*args, id)...))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Category{}, store.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// setClause builds a dynamic UPDATE ... SET list with positional
// placeholders, appending values to args in step.
type setClause struct {
	parts []string
	n     int
}

func newSetClause() (*setClause, *[]any) {
	args := make([]any, 0, 8)
	return &setClause{}, &args
}

func (c *setClause) add(column string, value any, args *[]any) {
	c.n++
	c.parts = append(c.parts, fmt.Sprintf("%s = $%d", column, c.n))
	*args = append(*args, value)
}

// next returns the placeholder following the last SET value, for the
// WHERE clause.
func (c *setClause) next() string {
	return fmt.Sprintf("$%d", c.n+1)
}

func (c *setClause) empty() bool { return len(c.parts) == 0 }

func (c *setClause) String() string { return strings.Join(c.parts, ", ") }

// nullIfEmpty lets optional text columns round-trip "" as NULL.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
