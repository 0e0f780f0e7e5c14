package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"event-desk/event"

	"github.com/google/go-cmp/cmp"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(context.Background(), filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func makeEvents(from, to int) []event.Event {
	events := make([]event.Event, 0, to-from+1)
	for i := from; i <= to; i++ {
		events = append(events, event.Event{
			ID:          event.ID(fmt.Sprint(i)),
			Type:        "concert",
			DatetimeUTC: fmt.Sprintf("2026-06-%02dT20:00:00", i%28+1),
			Title:       fmt.Sprintf("Event %d", i),
			Popularity:  float64(i) / 100,
			URL:         fmt.Sprintf("https://example.com/events/%d", i),
		})
	}
	return events
}

func TestOpenCreatesSchema(t *testing.T) {
	st := openTestStore(t)
	db, err := st.handle()
	if err != nil {
		t.Fatalf("handle() error = %v", err)
	}

	var tableName string
	if err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='events'").Scan(&tableName); err != nil {
		t.Fatalf("events table was not created: %v", err)
	}

	indexes := []string{"idx_events_type", "idx_events_datetime_utc", "idx_events_title", "idx_events_popularity", "idx_events_url"}
	for _, idx := range indexes {
		var name string
		if err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&name); err != nil {
			t.Errorf("index %s was not created: %v", idx, err)
		}
	}
}

func TestOpenIsReentrant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	ctx := context.Background()

	first, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	if _, err := first.PutMany(ctx, makeEvents(1, 3)); err != nil {
		t.Fatalf("PutMany() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer second.Close()
	got, err := second.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if diff := cmp.Diff(makeEvents(1, 3), got); diff != "" {
		t.Fatalf("events did not survive reopen (-want +got):\n%s", diff)
	}
}

func TestOpenUnavailable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "missing-dir", "events.db")

	st, err := Open(ctx, path)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Open() error = %v, want ErrStoreUnavailable", err)
	}
	if st == nil {
		t.Fatal("Open() should return a usable handle even on failure")
	}
	if st.Available() {
		t.Fatal("Available() = true for a store that failed to open")
	}

	if _, err := st.GetAll(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("GetAll() error = %v, want ErrStoreUnavailable", err)
	}
	res, err := st.PutMany(ctx, makeEvents(1, 2))
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("PutMany() error = %v, want ErrStoreUnavailable", err)
	}
	if res.Requested != 2 || res.Succeeded != 0 {
		t.Errorf("PutMany() result = %+v", res)
	}
	if _, err := st.Count(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Count() error = %v, want ErrStoreUnavailable", err)
	}
	if err := st.Close(); err != nil {
		t.Errorf("Close() on unusable store error = %v", err)
	}
}

func TestCloseMakesStoreUnavailable(t *testing.T) {
	st := openTestStore(t)
	if err := st.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if _, err := st.GetAll(context.Background()); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("GetAll() after Close error = %v, want ErrStoreUnavailable", err)
	}
}

func TestPutManyIdempotentUpsert(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	first := event.Event{ID: "42", Type: "concert", Title: "Before", Popularity: 0.1, URL: "https://example.com/42"}
	second := event.Event{ID: "42", Type: "sports", Title: "After", Popularity: 0.9, URL: "https://example.com/42b", DatetimeUTC: "2026-07-01T18:00:00"}

	if _, err := st.PutMany(ctx, []event.Event{first}); err != nil {
		t.Fatalf("first PutMany() error = %v", err)
	}
	res, err := st.PutMany(ctx, []event.Event{second})
	if err != nil {
		t.Fatalf("second PutMany() error = %v", err)
	}
	if res.Succeeded != 1 || res.Failed() != 0 {
		t.Fatalf("second PutMany() result = %+v", res)
	}

	got, err := st.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if diff := cmp.Diff([]event.Event{second}, got); diff != "" {
		t.Fatalf("second write should win (-want +got):\n%s", diff)
	}
}

func TestPutManyKeepsFirstArrivalOrder(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if _, err := st.PutMany(ctx, makeEvents(1, 3)); err != nil {
		t.Fatalf("PutMany() error = %v", err)
	}
	updated := makeEvents(1, 1)
	updated[0].Title = "Updated"
	if _, err := st.PutMany(ctx, append(updated, makeEvents(4, 4)...)); err != nil {
		t.Fatalf("PutMany() error = %v", err)
	}

	got, err := st.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	want := []event.ID{"1", "2", "3", "4"}
	if diff := cmp.Diff(want, event.IDs(got)); diff != "" {
		t.Fatalf("unexpected storage order (-want +got):\n%s", diff)
	}
	if got[0].Title != "Updated" {
		t.Fatalf("updated record title = %q", got[0].Title)
	}
}

func TestPutManyDuplicateIDsInBatch(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	batch := makeEvents(1, 2)
	dup := batch[0]
	dup.Title = "Later copy"
	batch = append(batch, dup)

	res, err := st.PutMany(ctx, batch)
	if err != nil {
		t.Fatalf("PutMany() error = %v", err)
	}
	if res.Succeeded != 3 {
		t.Fatalf("Succeeded = %d, want 3", res.Succeeded)
	}
	n, err := st.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("Count() = %d, want 2", n)
	}
	got, _ := st.GetAll(ctx)
	if got[0].Title != "Later copy" {
		t.Fatalf("last write in batch should win, got %q", got[0].Title)
	}
}

func TestPutManyPartialFailure(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	batch := makeEvents(1, 20)
	for _, i := range []int{2, 9, 15} {
		batch[i].ID = ""
	}

	res, err := st.PutMany(ctx, batch)
	if !errors.Is(err, ErrPartialWrite) {
		t.Fatalf("PutMany() error = %v, want ErrPartialWrite", err)
	}
	var bulkErr *BulkError
	if !errors.As(err, &bulkErr) {
		t.Fatalf("PutMany() error type = %T, want *BulkError", err)
	}
	if res.Requested != 20 || res.Succeeded != 17 || res.Failed() != 3 {
		t.Fatalf("PutMany() result = requested %d succeeded %d failed %d", res.Requested, res.Succeeded, res.Failed())
	}
	if bulkErr.Succeeded != 17 {
		t.Fatalf("BulkError.Succeeded = %d, want 17", bulkErr.Succeeded)
	}
	gotIdx := []int{res.Failures[0].Index, res.Failures[1].Index, res.Failures[2].Index}
	if diff := cmp.Diff([]int{2, 9, 15}, gotIdx); diff != "" {
		t.Fatalf("unexpected failure indexes (-want +got):\n%s", diff)
	}

	n, err := st.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 17 {
		t.Fatalf("Count() = %d, want 17", n)
	}
}

func TestPutManyLargeBatch(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	// More rows than fit into one statement.
	batch := makeEvents(1, 400)
	res, err := st.PutMany(ctx, batch)
	if err != nil {
		t.Fatalf("PutMany() error = %v", err)
	}
	if res.Succeeded != 400 {
		t.Fatalf("Succeeded = %d, want 400", res.Succeeded)
	}
	got, err := st.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if diff := cmp.Diff(event.IDs(batch), event.IDs(got)); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestPutManyEmpty(t *testing.T) {
	st := openTestStore(t)
	res, err := st.PutMany(context.Background(), nil)
	if err != nil {
		t.Fatalf("PutMany(nil) error = %v", err)
	}
	if res.Requested != 0 || res.Succeeded != 0 {
		t.Fatalf("PutMany(nil) result = %+v", res)
	}
}

func TestClear(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if _, err := st.PutMany(ctx, makeEvents(1, 5)); err != nil {
		t.Fatalf("PutMany() error = %v", err)
	}
	n, err := st.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if n != 5 {
		t.Fatalf("Clear() = %d, want 5", n)
	}
	got, err := st.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("GetAll() after Clear returned %d events", len(got))
	}
}

func TestResolvePath(t *testing.T) {
	if got := ResolvePath(""); got != DBFileName {
		t.Errorf("ResolvePath(\"\") = %q, want %q", got, DBFileName)
	}
	if got := ResolvePath("/tmp/x.db"); got != "/tmp/x.db" {
		t.Errorf("ResolvePath(custom) = %q", got)
	}
}
