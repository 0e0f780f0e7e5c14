package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

const (
	// Database configuration
	DBFileName         = "event-desk.db"
	driverName         = "sqlite"
	sqliteMaxVariables = 999
	timestampLayout    = "2006-01-02 15:04:05"
)

// ErrStoreUnavailable is returned by every operation on a store that failed to open.
var ErrStoreUnavailable = errors.New("local store unavailable")

// DBTX is the subset of *sql.DB and *sql.Tx used by the write helpers.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Store is the persistent, keyed event collection.
type Store struct {
	path string

	mu      sync.Mutex
	db      *sql.DB
	openErr error
}

// ResolvePath returns path, or DBFileName when path is empty.
func ResolvePath(path string) string {
	if strings.TrimSpace(path) != "" {
		return path
	}
	return DBFileName
}

// Open opens (creating when needed) the SQLite file at path and ensures the schema.
// When the engine cannot initialize, Open returns an error wrapping
// ErrStoreUnavailable together with a non-nil Store whose operations all fail
// with ErrStoreUnavailable, so callers can log and carry on.
func Open(ctx context.Context, path string) (*Store, error) {
	s := &Store{path: ResolvePath(path)}

	db, err := sql.Open(driverName, s.path)
	if err != nil {
		s.openErr = fmt.Errorf("%w: failed to open database %s: %v", ErrStoreUnavailable, s.path, err)
		return s, s.openErr
	}
	// A single connection keeps ":memory:" databases coherent and matches
	// SQLite's single-writer model.
	db.SetMaxOpenConns(1)

	if err := createTables(ctx, db); err != nil {
		db.Close()
		s.openErr = fmt.Errorf("%w: failed to create tables in %s: %v", ErrStoreUnavailable, s.path, err)
		return s, s.openErr
	}

	s.db = db
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Available reports whether the store opened successfully and is not closed.
func (s *Store) Available() bool {
	_, err := s.handle()
	return err == nil
}

// Close releases the database handle. It is safe to call on an unusable store
// and more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if s.openErr == nil {
		s.openErr = fmt.Errorf("%w: store %s is closed", ErrStoreUnavailable, s.path)
	}
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func (s *Store) handle() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		if s.openErr != nil {
			return nil, s.openErr
		}
		return nil, ErrStoreUnavailable
	}
	return s.db, nil
}

// createTables creates all required database tables if they don't exist
func createTables(ctx context.Context, db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY CHECK (id <> ''),
			type TEXT NOT NULL DEFAULT '',
			datetime_utc TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			popularity REAL NOT NULL DEFAULT 0,
			url TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL DEFAULT ''
		)`,
	}

	for _, query := range tables {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// indexes
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(type)`,
		`CREATE INDEX IF NOT EXISTS idx_events_datetime_utc ON events(datetime_utc)`,
		`CREATE INDEX IF NOT EXISTS idx_events_title ON events(title)`,
		`CREATE INDEX IF NOT EXISTS idx_events_popularity ON events(popularity)`,
		`CREATE INDEX IF NOT EXISTS idx_events_url ON events(url)`,
	}
	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// upsertBatch writes rows with multi-row INSERT ... ON CONFLICT statements,
// chunked below SQLite's bound-variable limit. The conflict target keeps the
// original rowid, so storage order stays first-arrival order.
func upsertBatch(ctx context.Context, db DBTX, table, key string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	columnCount := len(columns)
	if columnCount == 0 {
		return fmt.Errorf("no columns provided for %s", table)
	}
	if columnCount > sqliteMaxVariables {
		return fmt.Errorf("column count %d exceeds SQLite limit %d for %s", columnCount, sqliteMaxVariables, table)
	}

	values := make([]string, columnCount)
	updates := make([]string, 0, columnCount)
	for i, col := range columns {
		values[i] = "?"
		if col != key {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
		}
	}
	plHolder := "(" + strings.Join(values, ",") + ")"
	batchSize := sqliteMaxVariables / columnCount
	if batchSize == 0 {
		batchSize = 1
	}

	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}

		placeholders := make([]string, 0, end-start)
		args := make([]any, 0, columnCount*(end-start))

		for _, row := range rows[start:end] {
			if len(row) != columnCount {
				return fmt.Errorf("expected %d values for %s insert, got %d", columnCount, table, len(row))
			}
			placeholders = append(placeholders, plHolder)
			args = append(args, row...)
		}

		query := fmt.Sprintf(
			"INSERT INTO %s(%s) VALUES %s ON CONFLICT(%s) DO UPDATE SET %s",
			table,
			strings.Join(columns, ", "),
			strings.Join(placeholders, ","),
			key,
			strings.Join(updates, ", "),
		)
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to upsert into %s: %w", table, err)
		}
	}

	return nil
}
