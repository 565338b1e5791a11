/*
Package sqlite provides a SQLite-backed implementation of store.TxStore.

PURPOSE:
  Persists every engine input (sales persons, contracts, extra hours,
  slots, bookings) and every billing output (billing periods, their
  per-sales-person values, text templates). Queries go through sqlx;
  rows are scanned into db-tagged structs and converted to domain types
  in rows.go.

KEY TABLES:
  sales_person:                Employees (paid flag, soft delete)
  employee_work_details:       Contracts with a 7-column workday mask
  custom_extra_hours:          User defined categories
  extra_hours:                 Dated entries; `day` holds the calendar date for range queries
  slot, booking:               Shift calendar; booked hours are aggregated in Go
  billing_period:              Snapshot header
  billing_period_sales_person: One row per sales person in a snapshot
  billing_period_value:        One row per (sales person, value type)
  text_template:               Custom report bodies
  carryover:                   Year-end carryover, one row per (sales person, year)

STORAGE FORMATS:
  ids, versions  TEXT (uuid)
  hours          TEXT (decimal string, exact)
  dates          TEXT (YYYY-MM-DD)
  timestamps     TIMESTAMP (go-sqlite3 format, UTC)
  weekdays       INTEGER 1..7, Monday = 1

INDEXES:
  - idx_booking_unique: one non-deleted booking per (sales person, slot, week)
  - idx_extra_hours_person_day: range queries of the report builders

TRANSACTIONS:
  WithTx serializes transactions and hands fn a Tx bound to one *sqlx.Tx.
  fn returning an error rolls back.

USAGE:
  st, err := sqlite.New("./data/workhours.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

SEE ALSO:
  - store/store.go: Tx and TxStore
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/warp/workhours-engine/accounting"
	"github.com/warp/workhours-engine/store"
)

// Store implements store.TxStore using SQLite.
type Store struct {
	db *sqlx.DB
	mu sync.Mutex
}

var _ store.TxStore = (*Store)(nil)

// New opens (and migrates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	s := NewWithDB(db)
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// NewWithDB wraps an open handle without migrating it.
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sales_person (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		background TEXT NOT NULL DEFAULT '',
		is_paid BOOLEAN NOT NULL DEFAULT FALSE,
		inactive BOOLEAN NOT NULL DEFAULT FALSE,
		deleted TIMESTAMP,
		version TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS employee_work_details (
		id TEXT PRIMARY KEY,
		sales_person_id TEXT NOT NULL REFERENCES sales_person(id),
		expected_hours TEXT NOT NULL,
		from_day_of_week INTEGER NOT NULL,
		from_calendar_week INTEGER NOT NULL,
		from_year INTEGER NOT NULL,
		to_day_of_week INTEGER NOT NULL,
		to_calendar_week INTEGER NOT NULL,
		to_year INTEGER NOT NULL,
		workdays_per_week INTEGER NOT NULL,
		monday BOOLEAN NOT NULL,
		tuesday BOOLEAN NOT NULL,
		wednesday BOOLEAN NOT NULL,
		thursday BOOLEAN NOT NULL,
		friday BOOLEAN NOT NULL,
		saturday BOOLEAN NOT NULL,
		sunday BOOLEAN NOT NULL,
		vacation_days INTEGER NOT NULL DEFAULT 0,
		created TIMESTAMP NOT NULL,
		deleted TIMESTAMP,
		version TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_work_details_sales_person
		ON employee_work_details(sales_person_id);

	CREATE TABLE IF NOT EXISTS custom_extra_hours (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		modifies_balance BOOLEAN NOT NULL DEFAULT FALSE,
		assigned_sales_person_ids TEXT NOT NULL DEFAULT '[]',
		created TIMESTAMP NOT NULL,
		deleted TIMESTAMP,
		version TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS extra_hours (
		id TEXT PRIMARY KEY,
		sales_person_id TEXT NOT NULL REFERENCES sales_person(id),
		amount TEXT NOT NULL,
		category TEXT NOT NULL,
		custom_extra_hours_id TEXT REFERENCES custom_extra_hours(id),
		description TEXT NOT NULL DEFAULT '',
		date_time TIMESTAMP NOT NULL,
		day TEXT NOT NULL,
		created TIMESTAMP NOT NULL,
		deleted TIMESTAMP,
		version TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_extra_hours_person_day
		ON extra_hours(sales_person_id, day);
	CREATE INDEX IF NOT EXISTS idx_extra_hours_day
		ON extra_hours(day);

	CREATE TABLE IF NOT EXISTS slot (
		id TEXT PRIMARY KEY,
		day_of_week INTEGER NOT NULL,
		from_minutes INTEGER NOT NULL,
		to_minutes INTEGER NOT NULL,
		valid_from TEXT NOT NULL,
		valid_to TEXT,
		deleted TIMESTAMP,
		version TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS booking (
		id TEXT PRIMARY KEY,
		sales_person_id TEXT NOT NULL REFERENCES sales_person(id),
		slot_id TEXT NOT NULL REFERENCES slot(id),
		calendar_week INTEGER NOT NULL,
		year INTEGER NOT NULL,
		created TIMESTAMP NOT NULL,
		deleted TIMESTAMP,
		version TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_booking_unique
		ON booking(sales_person_id, slot_id, year, calendar_week)
		WHERE deleted IS NULL;
	CREATE INDEX IF NOT EXISTS idx_booking_week
		ON booking(year, calendar_week);

	CREATE TABLE IF NOT EXISTS billing_period (
		id TEXT PRIMARY KEY,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		created_by TEXT NOT NULL,
		deleted TIMESTAMP,
		deleted_by TEXT
	);

	CREATE TABLE IF NOT EXISTS billing_period_sales_person (
		id TEXT PRIMARY KEY,
		billing_period_id TEXT NOT NULL REFERENCES billing_period(id),
		sales_person_id TEXT NOT NULL REFERENCES sales_person(id),
		created_at TIMESTAMP NOT NULL,
		created_by TEXT NOT NULL,
		deleted TIMESTAMP,
		deleted_by TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_billing_period_sales_person_period
		ON billing_period_sales_person(billing_period_id);

	CREATE TABLE IF NOT EXISTS billing_period_value (
		billing_period_sales_person_id TEXT NOT NULL REFERENCES billing_period_sales_person(id),
		value_type TEXT NOT NULL,
		value_delta TEXT NOT NULL,
		value_ytd_from TEXT NOT NULL,
		value_ytd_to TEXT NOT NULL,
		value_full_year TEXT NOT NULL,
		PRIMARY KEY (billing_period_sales_person_id, value_type)
	);

	CREATE TABLE IF NOT EXISTS text_template (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		template_type TEXT NOT NULL,
		template_text TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		created_by TEXT NOT NULL,
		deleted TIMESTAMP,
		version TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS carryover (
		sales_person_id TEXT NOT NULL REFERENCES sales_person(id),
		year INTEGER NOT NULL,
		carryover_hours TEXT NOT NULL,
		vacation INTEGER NOT NULL DEFAULT 0,
		created TIMESTAMP NOT NULL,
		deleted TIMESTAMP,
		version TEXT NOT NULL,
		PRIMARY KEY (sales_person_id, year)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	Rebind(query string) string
}

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{q: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Tx on one transaction.
type txStore struct {
	q queryer
}

var _ store.Tx = (*txStore)(nil)

// get returns false when no row matched.
func (ts *txStore) get(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	err := ts.q.GetContext(ctx, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func requireAffected(res sql.Result, entity string, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &accounting.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}
