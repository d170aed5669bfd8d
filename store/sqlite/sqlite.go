/*
Package sqlite provides a SQLite-backed implementation of the office storage interfaces.

PURPOSE:
  Implements every persistence interface of the office package on a single
  SQLite database. The SQL is deliberately portable: moving to PostgreSQL
  only changes placeholders and the constraint-error helpers.

INTERFACES IMPLEMENTED:
  office.StaffStore:        Accounts and staff_groups membership
  office.ClientStore:       Client CRUD and paged listing
  office.DistributionStore: Write transaction for the distribution engine
  office.RuleStore:         Incentive tier table, full replace only
  office.AttendanceStore:   Daily check-in/check-out
  office.PerformanceStore:  Additive performance records
  office.ReportStore:       One query per reporting view
  office.SettingStore:      Site key/value settings

KEY TABLES:
  staff, staff_groups:  Accounts and group membership
  clients:              Customer records, owner_id is a weak reference
  incentive_rules:      Tier table, ordered by position
  attendance_records:   One row per (staff_id, work_date)
  performance_records:  Append-only metric entries
  settings:             Key/value pairs

INDEXES:
  - idx_attendance_staff_day: UNIQUE, enforces one check-in per staff per day
  - idx_clients_owner_created: personal summary (hot path)
  - idx_clients_updated: incentive board
  - idx_performance_type: ranking

TIME STORAGE:
  Instants are stored as fixed-width UTC text (tsLayout) so that string
  comparison in SQL is chronological. Calendar days are stored as
  "YYYY-MM-DD" of the day in the caller's location and read back in the
  store's location (WithLocation).

CONCURRENCY:
  Uses sync.RWMutex for thread-safety within one process. Write
  transactions are opened with _txlock=immediate so SQLite takes the write
  lock at BEGIN, which serializes read-modify-write sequences across
  processes as well.

WAL MODE:
  File databases are opened in WAL mode: readers don't block the writer.

USAGE:
  store, err := sqlite.New("./data/office.db", sqlite.WithLocation(loc))
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  distributor := office.NewDistributor(store)

SEE ALSO:
  - office/store.go: Interface definitions
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/backoffice/office"
)

const (
	// tsLayout is fixed width so lexical order equals time order.
	tsLayout  = "2006-01-02T15:04:05.000000000Z07:00"
	dayLayout = "2006-01-02"
)

var (
	_ office.StaffStore        = (*Store)(nil)
	_ office.ClientStore       = (*Store)(nil)
	_ office.DistributionStore = (*Store)(nil)
	_ office.RuleStore         = (*Store)(nil)
	_ office.AttendanceStore   = (*Store)(nil)
	_ office.PerformanceStore  = (*Store)(nil)
	_ office.ReportStore       = (*Store)(nil)
	_ office.SettingStore      = (*Store)(nil)
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	loc *time.Location
}

// Option configures a Store.
type Option func(*Store)

// WithLocation sets the location calendar days are read back in.
// Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, loc: time.Local}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Accounts
	CREATE TABLE IF NOT EXISTS staff (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS staff_groups (
		staff_id TEXT NOT NULL REFERENCES staff(id) ON DELETE CASCADE,
		group_name TEXT NOT NULL,
		PRIMARY KEY (staff_id, group_name)
	);

	CREATE INDEX IF NOT EXISTS idx_staff_groups_group
		ON staff_groups(group_name);

	-- Clients (owner is a weak reference)
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		owner_id TEXT REFERENCES staff(id) ON DELETE SET NULL,
		name TEXT NOT NULL,
		contact TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		employee_note TEXT NOT NULL DEFAULT '',
		gender TEXT NOT NULL DEFAULT '',
		birth_date TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'PENDING',
		is_distributed BOOLEAN NOT NULL DEFAULT FALSE,
		distribution_date TEXT,
		transmission_status TEXT NOT NULL DEFAULT 'N',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_clients_owner_created
		ON clients(owner_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_clients_created
		ON clients(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_clients_updated
		ON clients(updated_at);
	CREATE INDEX IF NOT EXISTS idx_clients_address
		ON clients(address);

	-- Incentive tiers (order is significant)
	CREATE TABLE IF NOT EXISTS incentive_rules (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		condition TEXT NOT NULL,
		reward INTEGER NOT NULL
	);

	-- Attendance
	CREATE TABLE IF NOT EXISTS attendance_records (
		id TEXT PRIMARY KEY,
		staff_id TEXT NOT NULL REFERENCES staff(id) ON DELETE CASCADE,
		work_date TEXT NOT NULL,
		check_in_at TEXT NOT NULL,
		check_out_at TEXT,
		memo TEXT NOT NULL DEFAULT ''
	);

	-- CRITICAL: one check-in per staff per calendar day. Concurrent check-ins
	-- race on this index, never on a read-then-write.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_staff_day
		ON attendance_records(staff_id, work_date);

	-- Performance
	CREATE TABLE IF NOT EXISTS performance_records (
		id TEXT PRIMARY KEY,
		staff_id TEXT NOT NULL REFERENCES staff(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		record_type TEXT NOT NULL,
		value INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_performance_type
		ON performance_records(record_type, staff_id);
	CREATE INDEX IF NOT EXISTS idx_performance_staff_date
		ON performance_records(staff_id, date DESC);

	-- Site settings
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL DEFAULT ''
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"attendance_records", "performance_records", "clients",
		"staff_groups", "staff", "incentive_rules", "settings",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// inTx runs fn in a write transaction. Callers hold s.mu.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) time.Time {
	t, _ := time.Parse(tsLayout, s)
	return t
}

func formatDay(t time.Time) string {
	return t.Format(dayLayout)
}

func (s *Store) parseDay(v string) time.Time {
	t, _ := time.ParseInLocation(dayLayout, v, s.loc)
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// maxInArgs caps the ids bound into one IN list. SQLite refuses statements
// with more than SQLITE_MAX_VARIABLE_NUMBER parameters (999 on older builds).
const maxInArgs = 500

// inChunks calls fn with ids split into IN lists of at most maxInArgs.
func inChunks[T any](ids []T, fn func(args []any) error) error {
	for start := 0; start < len(ids); start += maxInArgs {
		end := min(start+maxInArgs, len(ids))
		args := make([]any, 0, end-start)
		for _, id := range ids[start:end] {
			args = append(args, id)
		}
		if err := fn(args); err != nil {
			return err
		}
	}
	return nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// escapeLike escapes LIKE wildcards; queries use ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isAttendanceDayError reports a violation of idx_attendance_staff_day. SQLite
// names the indexed columns, not the index, in the message.
func isAttendanceDayError(err error) bool {
	return isUniqueConstraintError(err) &&
		strings.Contains(err.Error(), "attendance_records.staff_id")
}

func isForeignKeyError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}

// affectedOrNotFound maps "zero rows changed" to ErrNotFound-wrapping err.
func affectedOrNotFound(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
