package merge

import (
	"context"
	"errors"
	"log/slog"

	"event-desk/event"
	"event-desk/logging"
	"event-desk/store"
)

// Persister is the write side of the local store.
type Persister interface {
	PutMany(ctx context.Context, events []event.Event) (store.PutResult, error)
}

// Result describes one merge.
type Result struct {
	Requested int
	Persisted int
	Failed    int
	Added     int
	Replaced  int
	// Err is the persist error, if any. The view was updated regardless.
	Err error
}

// Recorder receives persist outcomes. *metrics.Collector satisfies it.
type Recorder interface {
	Persisted(succeeded, failed int)
}

// Engine persists incoming events and folds them into a view.
type Engine struct {
	store    Persister
	logger   *slog.Logger
	recorder Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger injects a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logging.OrDefault(logger) }
}

// WithRecorder reports persist outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// NewEngine creates an engine writing through p.
func NewEngine(p Persister, opts ...Option) *Engine {
	e := &Engine{store: p, logger: logging.Logger()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Merge writes incoming to the store, then appends it to view whatever the
// write outcome was. Persist failures are logged and returned in Result.
func (e *Engine) Merge(ctx context.Context, view *View, incoming []event.Event) Result {
	res := e.Persist(ctx, incoming)
	if len(incoming) > 0 {
		res.Added, res.Replaced = view.Append(incoming)
	}
	return res
}

// Persist writes incoming to the store and reports the outcome. It leaves
// Added and Replaced unset; callers that hold a view fold incoming into it.
func (e *Engine) Persist(ctx context.Context, incoming []event.Event) Result {
	res := Result{Requested: len(incoming)}
	if len(incoming) == 0 {
		return res
	}

	put, err := e.store.PutMany(ctx, incoming)
	res.Persisted = put.Succeeded
	res.Failed = len(incoming) - put.Succeeded
	res.Err = err

	var bulk *store.BulkError
	switch {
	case err == nil:
		e.logger.Debug("events persisted", "count", put.Succeeded)
	case errors.As(err, &bulk):
		e.logger.Warn("bulk write partially failed",
			"batch", len(incoming),
			"failures", bulk.Failed(),
			"succeeded", len(incoming)-bulk.Failed(),
			"error", err)
	default:
		e.logger.Error("failed to persist events", "batch", len(incoming), "error", err)
	}
	if e.recorder != nil {
		e.recorder.Persisted(res.Persisted, res.Failed)
	}
	return res
}
