// Package cache keeps a local SQLite mirror of the remote data set.
// The worker rewrites it after every change event, and the server can
// boot from it when the remote database is unreachable. Amounts are
// stored as integer satang so the mirror round-trips exactly.
package cache

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"classfund/internal/core"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationSource embed.FS

const lastSyncKey = "last_synced_at"

type Mirror struct {
	db *sql.DB
}

func Open(dbPath string) (*Mirror, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrateSchema(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate mirror schema: %w", err)
	}

	return &Mirror{db: db}, nil
}

// migrateSchema brings the mirror tables up to date from the embedded
// migration files. golang-migrate closes the handle it is given, so it
// gets a short-lived connection of its own rather than the Mirror's.
func migrateSchema(dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open schema connection: %w", err)
	}

	src, err := iofs.New(migrationSource, "migrations")
	if err != nil {
		db.Close()
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("prepare sqlite driver: %w", err)
	}

	runner, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		db.Close()
		return fmt.Errorf("prepare migration runner: %w", err)
	}
	defer runner.Close()

	if err := runner.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (m *Mirror) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// ReplaceBundle atomically swaps the mirror contents for the given
// snapshot and stamps the sync time.
func (m *Mirror) ReplaceBundle(ctx context.Context, bundle core.DataBundle) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mirror transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"students", "schedules", "transactions", "categories"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, st := range bundle.Students {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO students (id, number, prefix, first_name, last_name, nick_name, avatar_url)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			st.ID, st.Number, st.Prefix, st.FirstName, st.LastName, st.NickName, st.AvatarURL)
		if err != nil {
			return fmt.Errorf("insert student %s: %w", st.ID, err)
		}
	}

	for _, sch := range bundle.Schedules {
		ids, err := json.Marshal(sch.StudentIDs)
		if err != nil {
			return fmt.Errorf("encode student ids for schedule %s: %w", sch.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO schedules (id, name, start_date, end_date, details, amount_per_item_satang, student_ids)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sch.ID, sch.Name, sch.StartDate, sch.EndDate, sch.Details, sch.AmountPerItem.Satang, string(ids))
		if err != nil {
			return fmt.Errorf("insert schedule %s: %w", sch.ID, err)
		}
	}

	for _, t := range bundle.Transactions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (id, name, source, kind, amount_satang, method, category, schedule_id, student_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Name, string(t.Source), string(t.Kind), t.Amount.Satang,
			string(t.Method), t.Category, t.ScheduleID, t.StudentID,
			t.CreatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}

	for _, c := range bundle.Categories {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO categories (id, name, icon) VALUES (?, ?, ?)`,
			c.ID, c.Name, c.Icon)
		if err != nil {
			return fmt.Errorf("insert category %s: %w", c.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO mirror_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		lastSyncKey, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("stamp sync time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mirror transaction: %w", err)
	}

	slog.InfoContext(ctx, "Mirror replaced",
		"students", len(bundle.Students),
		"schedules", len(bundle.Schedules),
		"transactions", len(bundle.Transactions),
		"categories", len(bundle.Categories))

	return nil
}

// LoadBundle reads the mirrored snapshot back. Collections come out in
// the same order the remote store serves them, so roster and newest
// first orderings survive a mirror round trip.
func (m *Mirror) LoadBundle(ctx context.Context) (core.DataBundle, error) {
	var bundle core.DataBundle

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, number, prefix, first_name, last_name, nick_name, avatar_url
		FROM students ORDER BY number`)
	if err != nil {
		return bundle, fmt.Errorf("load students: %w", err)
	}
	for rows.Next() {
		var st core.Student
		if err := rows.Scan(&st.ID, &st.Number, &st.Prefix, &st.FirstName, &st.LastName, &st.NickName, &st.AvatarURL); err != nil {
			rows.Close()
			return bundle, fmt.Errorf("scan student: %w", err)
		}
		bundle.Students = append(bundle.Students, st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return bundle, fmt.Errorf("load students: %w", err)
	}

	rows, err = m.db.QueryContext(ctx, `
		SELECT id, name, start_date, end_date, details, amount_per_item_satang, student_ids
		FROM schedules ORDER BY start_date`)
	if err != nil {
		return bundle, fmt.Errorf("load schedules: %w", err)
	}
	for rows.Next() {
		var sch core.Schedule
		var ids string
		if err := rows.Scan(&sch.ID, &sch.Name, &sch.StartDate, &sch.EndDate, &sch.Details, &sch.AmountPerItem.Satang, &ids); err != nil {
			rows.Close()
			return bundle, fmt.Errorf("scan schedule: %w", err)
		}
		if err := json.Unmarshal([]byte(ids), &sch.StudentIDs); err != nil {
			rows.Close()
			return bundle, fmt.Errorf("decode student ids for schedule %s: %w", sch.ID, err)
		}
		bundle.Schedules = append(bundle.Schedules, sch)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return bundle, fmt.Errorf("load schedules: %w", err)
	}

	rows, err = m.db.QueryContext(ctx, `
		SELECT id, name, source, kind, amount_satang, method, category, schedule_id, student_id, created_at
		FROM transactions ORDER BY created_at DESC`)
	if err != nil {
		return bundle, fmt.Errorf("load transactions: %w", err)
	}
	for rows.Next() {
		var t core.Transaction
		var source, kind, method, createdAt string
		if err := rows.Scan(&t.ID, &t.Name, &source, &kind, &t.Amount.Satang, &method, &t.Category, &t.ScheduleID, &t.StudentID, &createdAt); err != nil {
			rows.Close()
			return bundle, fmt.Errorf("scan transaction: %w", err)
		}
		t.Source = core.TxnSource(source)
		t.Kind = core.TxnKind(kind)
		t.Method = core.PaymentMethod(method)
		t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			rows.Close()
			return bundle, fmt.Errorf("parse created_at for transaction %s: %w", t.ID, err)
		}
		bundle.Transactions = append(bundle.Transactions, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return bundle, fmt.Errorf("load transactions: %w", err)
	}

	rows, err = m.db.QueryContext(ctx, `SELECT id, name, icon FROM categories ORDER BY name`)
	if err != nil {
		return bundle, fmt.Errorf("load categories: %w", err)
	}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon); err != nil {
			rows.Close()
			return bundle, fmt.Errorf("scan category: %w", err)
		}
		bundle.Categories = append(bundle.Categories, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return bundle, fmt.Errorf("load categories: %w", err)
	}

	return bundle, nil
}

// LastSyncedAt reports when the mirror was last replaced. The zero time
// means the mirror has never been filled.
func (m *Mirror) LastSyncedAt(ctx context.Context) (time.Time, error) {
	var value string
	err := m.db.QueryRowContext(ctx,
		`SELECT value FROM mirror_meta WHERE key = ?`, lastSyncKey).Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read sync time: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse sync time: %w", err)
	}
	return ts, nil
}
