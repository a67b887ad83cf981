// Package runlog persists a history of watch runs in SQLite so the CLI
// can show what each scheduled pass detected and delivered.
package runlog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"libwatch/internal/config"
	"libwatch/internal/diff"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Entry is one recorded watch run.
type Entry struct {
	ID             string
	Domain         string
	StartedAt      time.Time
	FinishedAt     time.Time
	FirstRun       bool
	Items          int
	New            int
	CountIncreased int
	ValueChanged   int
	CountDecreased int
	Removed        int
	BatchesSent    int
	Truncated      bool
	Delivered      bool
}

// Tally fills the per-kind change counters from diff output.
func (e *Entry) Tally(records []diff.Record) {
	e.New, e.CountIncreased, e.ValueChanged, e.CountDecreased, e.Removed = 0, 0, 0, 0, 0
	for _, rec := range records {
		switch rec.Kind {
		case diff.KindNew:
			e.New++
		case diff.KindCountIncreased:
			e.CountIncreased++
		case diff.KindValueChanged:
			e.ValueChanged++
		case diff.KindCountDecreased:
			e.CountDecreased++
		case diff.KindRemoved:
			e.Removed++
		}
	}
}

// Changes reports the total number of change records in the entry.
func (e Entry) Changes() int {
	return e.New + e.CountIncreased + e.ValueChanged + e.CountDecreased + e.Removed
}

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the run history database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.RunLogPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Record stores one run entry. A missing ID is assigned; a zero
// FinishedAt is stamped with the current time.
func (s *Store) Record(ctx context.Context, entry Entry) (Entry, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = uuid.NewString()
	}
	if entry.StartedAt.IsZero() {
		entry.StartedAt = time.Now().UTC()
	}
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = time.Now().UTC()
	}

	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `
INSERT INTO runs (
    id, domain, started_at, finished_at, first_run, items,
    new_items, count_increased, value_changed, count_decreased, removed,
    batches_sent, truncated, delivered
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.ID,
			entry.Domain,
			entry.StartedAt.UTC().Format(time.RFC3339Nano),
			entry.FinishedAt.UTC().Format(time.RFC3339Nano),
			boolToInt(entry.FirstRun),
			entry.Items,
			entry.New,
			entry.CountIncreased,
			entry.ValueChanged,
			entry.CountDecreased,
			entry.Removed,
			entry.BatchesSent,
			boolToInt(entry.Truncated),
			boolToInt(entry.Delivered),
		)
		return execErr
	})
	if err != nil {
		return Entry{}, fmt.Errorf("record run: %w", err)
	}
	return entry, nil
}

// Recent returns the most recent runs, newest first. An empty domain
// matches all domains.
func (s *Store) Recent(ctx context.Context, domain string, limit int) ([]Entry, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}

	query := `
SELECT id, domain, started_at, finished_at, first_run, items,
       new_items, count_increased, value_changed, count_decreased, removed,
       batches_sent, truncated, delivered
FROM runs`
	args := []any{}
	if domain != "" {
		query += " WHERE domain = ?"
		args = append(args, domain)
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry                          Entry
			startedAt, finishedAt          string
			firstRun, truncated, delivered int
		)
		if err := rows.Scan(
			&entry.ID, &entry.Domain, &startedAt, &finishedAt, &firstRun, &entry.Items,
			&entry.New, &entry.CountIncreased, &entry.ValueChanged, &entry.CountDecreased, &entry.Removed,
			&entry.BatchesSent, &truncated, &delivered,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		entry.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		entry.FinishedAt, _ = time.Parse(time.RFC3339Nano, finishedAt)
		entry.FirstRun = firstRun != 0
		entry.Truncated = truncated != 0
		entry.Delivered = delivered != 0
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return entries, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
