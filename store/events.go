package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"event-desk/event"
)

// ErrPartialWrite classifies a bulk upsert where only some records committed.
var ErrPartialWrite = errors.New("partial bulk write")

var eventColumns = []string{"id", "type", "datetime_utc", "title", "popularity", "url", "updated_at"}

// RecordFailure describes one record rejected by PutMany.
type RecordFailure struct {
	Index int
	ID    event.ID
	Err   error
}

// PutResult reports the outcome of a bulk upsert.
type PutResult struct {
	Requested int
	Succeeded int
	Failures  []RecordFailure
}

// Failed returns the number of rejected records.
func (r PutResult) Failed() int { return len(r.Failures) }

// BulkError is returned by PutMany when some records failed and the rest committed.
type BulkError struct {
	PutResult
}

func (e *BulkError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d of %d events failed", ErrPartialWrite, e.Failed(), e.Requested)
	if len(e.Failures) > 0 {
		first := e.Failures[0]
		fmt.Fprintf(&b, " (first: index %d id %q: %v)", first.Index, first.ID, first.Err)
	}
	return b.String()
}

// Unwrap lets errors.Is match ErrPartialWrite.
func (e *BulkError) Unwrap() error { return ErrPartialWrite }

// GetAll returns every persisted event in storage order (first-insert order).
func (s *Store) GetAll(ctx context.Context) ([]event.Event, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, type, datetime_utc, title, popularity, url FROM events ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := make([]event.Event, 0)
	for rows.Next() {
		var (
			e  event.Event
			id string
		)
		if err := rows.Scan(&id, &e.Type, &e.DatetimeUTC, &e.Title, &e.Popularity, &e.URL); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		e.ID = event.ID(id)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("event iteration failed: %w", err)
	}
	return events, nil
}

// Count returns the number of persisted events.
func (s *Store) Count(ctx context.Context) (int, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

// Clear deletes every persisted event.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM events`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read deleted row count: %w", err)
	}
	return n, nil
}

// PutMany upserts events by id. The batch is not atomic: when the fast
// multi-row path fails, every record is retried under its own savepoint so the
// good ones commit. Rejected records are reported through a *BulkError; a store
// that cannot be written at all returns a plain error and Succeeded == 0.
func (s *Store) PutMany(ctx context.Context, events []event.Event) (PutResult, error) {
	result := PutResult{Requested: len(events)}
	db, err := s.handle()
	if err != nil {
		return result, err
	}
	if len(events) == 0 {
		return result, nil
	}

	now := time.Now().UTC().Format(timestampLayout)
	rows := make([][]any, 0, len(events))
	for _, e := range events {
		rows = append(rows, eventRow(e, now))
	}

	batchErr := withTx(ctx, db, func(tx *sql.Tx) error {
		return upsertBatch(ctx, tx, "events", "id", eventColumns, rows)
	})
	if batchErr == nil {
		result.Succeeded = len(events)
		return result, nil
	}
	if ctx.Err() != nil {
		return result, fmt.Errorf("failed to store events: %w", ctx.Err())
	}

	err = withTx(ctx, db, func(tx *sql.Tx) error {
		for i, row := range rows {
			if err := putOne(ctx, tx, row); err != nil {
				result.Failures = append(result.Failures, RecordFailure{Index: i, ID: events[i].ID, Err: err})
				continue
			}
			result.Succeeded++
		}
		return nil
	})
	if err != nil {
		result.Succeeded = 0
		result.Failures = nil
		return result, fmt.Errorf("failed to store events: %w", err)
	}
	if len(result.Failures) > 0 {
		return result, &BulkError{PutResult: result}
	}
	return result, nil
}

// putOne writes a single row inside a savepoint so its failure does not
// abort the surrounding transaction.
func putOne(ctx context.Context, tx *sql.Tx, row []any) error {
	if _, err := tx.ExecContext(ctx, `SAVEPOINT put_event`); err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}
	if err := upsertBatch(ctx, tx, "events", "id", eventColumns, [][]any{row}); err != nil {
		if _, rbErr := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT put_event`); rbErr != nil {
			return fmt.Errorf("%v (rollback failed: %v)", err, rbErr)
		}
		if _, relErr := tx.ExecContext(ctx, `RELEASE SAVEPOINT put_event`); relErr != nil {
			return fmt.Errorf("%v (release failed: %v)", err, relErr)
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, `RELEASE SAVEPOINT put_event`); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func eventRow(e event.Event, now string) []any {
	return []any{
		strings.TrimSpace(e.ID.String()),
		e.Type,
		e.DatetimeUTC,
		e.Title,
		e.Popularity,
		e.URL,
		now,
	}
}
