// Package pager drives the event feed: it decides at mount time whether to
// serve the local cache or fetch the first page, and runs one fetch, merge and
// cursor step per "load more" trigger.
package pager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"event-desk/config"
	"event-desk/event"
	"event-desk/feed"
	"event-desk/logging"
	"event-desk/merge"
	"event-desk/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// State is the controller lifecycle state.
type State int

const (
	Init State = iota
	FetchingInitial
	CacheLoaded
	FetchingMore
	Idle
	Exhausted
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case FetchingInitial:
		return "fetching_initial"
	case CacheLoaded:
		return "cache_loaded"
	case FetchingMore:
		return "fetching_more"
	case Idle:
		return "idle"
	case Exhausted:
		return "exhausted"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// cycleKey serializes every fetch cycle of a controller.
const cycleKey = "cycle"

var (
	ErrNotMounted     = errors.New("controller is not mounted")
	ErrAlreadyMounted = errors.New("controller is already mounted")
)

// Store is the read side of the local store.
type Store interface {
	GetAll(ctx context.Context) ([]event.Event, error)
}

// Fetcher retrieves one page of events.
type Fetcher interface {
	FetchPage(ctx context.Context, page, perPage int) ([]event.Event, error)
}

// Persister writes a fetched batch to the store and reports the outcome.
// *merge.Engine satisfies it.
type Persister interface {
	Persist(ctx context.Context, incoming []event.Event) merge.Result
}

// Outcome describes one mount or load cycle.
type Outcome struct {
	// Page is the page requested; zero when no fetch happened.
	Page int
	// CacheHit is set when Mount served the view from the store.
	CacheHit bool
	Fetched  int
	Merge    merge.Result
	// FetchErr is the fetch failure, if any. The view is unchanged when set.
	FetchErr error
	// Exhausted reports that the feed has no more pages.
	Exhausted bool
	// Shared is set when the caller joined a cycle already in flight.
	Shared bool
}

// Controller owns the page cursor and the view. It is safe for concurrent use.
type Controller struct {
	store   Store
	fetcher Fetcher
	engine  Persister

	perPage int
	policy  string
	logger  *slog.Logger
	metrics *metrics.Collector

	group     singleflight.Group
	mountDone chan struct{}

	mu      sync.RWMutex
	mounted bool
	state   State
	cursor  int
	view    *merge.View
}

// Option configures a Controller.
type Option func(*Controller)

// WithPerPage sets the page size.
func WithPerPage(n int) Option {
	return func(c *Controller) { c.perPage = n }
}

// WithLogger injects a logger. Every entry carries a per-controller session id.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logging.OrDefault(logger) }
}

// WithMetrics reports cycle outcomes to m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithCursorPolicy selects when the cursor advances: config.CursorAdvanceOnSuccess
// holds it on a failed fetch so the page is retried, config.CursorAdvanceAlways
// advances after every attempt.
func WithCursorPolicy(policy string) Option {
	return func(c *Controller) { c.policy = policy }
}

// New creates an unmounted controller.
func New(st Store, f Fetcher, engine Persister, opts ...Option) (*Controller, error) {
	if st == nil || f == nil || engine == nil {
		return nil, fmt.Errorf("store, fetcher and merge engine are required")
	}
	c := &Controller{
		store:   st,
		fetcher: f,
		engine:  engine,
		perPage: config.DefaultPerPage,
		policy:  config.CursorAdvanceOnSuccess,
		logger:  logging.Logger(),
		state:   Init,
		cursor:  1,
		view:    &merge.View{},

		mountDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := config.ValidateCursorPolicy(c.policy); err != nil {
		return nil, err
	}
	if c.perPage < 1 {
		return nil, fmt.Errorf("per page must be positive, got %d", c.perPage)
	}
	c.logger = c.logger.With("session", uuid.NewString())
	return c, nil
}

// Mount loads the view. A non-empty store fills the view and no fetch is
// issued; an empty or unreadable store triggers a fetch of page 1.
func (c *Controller) Mount(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return Outcome{}, ErrAlreadyMounted
	}
	c.mounted = true
	c.mu.Unlock()
	defer close(c.mountDone)

	stored, err := c.store.GetAll(ctx)
	if err != nil {
		c.logger.Warn("failed to read local store, fetching from remote", "error", err)
	}

	if len(stored) > 0 {
		c.mu.Lock()
		c.view.Replace(stored)
		c.state = CacheLoaded
		c.publishLocked()
		c.mu.Unlock()
		c.logger.Info("view loaded from local store", "count", len(stored))
		return Outcome{CacheHit: true}, nil
	}

	v, _, _ := c.group.Do(cycleKey, func() (any, error) {
		c.setState(FetchingInitial)
		return c.runCycle(ctx), nil
	})
	return v.(Outcome), nil
}

// LoadNext runs one "load more" cycle with the current cursor. A call made
// while Mount is still running waits for it to finish. Concurrent callers
// share a single in-flight cycle, which runs under the first caller's context.
// Once the feed is exhausted it is a no-op. Fetch failures are logged and
// reported in Outcome, not returned.
func (c *Controller) LoadNext(ctx context.Context) (Outcome, error) {
	if err := c.waitMounted(ctx); err != nil {
		return Outcome{}, err
	}
	if c.State() == Exhausted {
		return Outcome{Exhausted: true}, nil
	}

	v, _, shared := c.group.Do(cycleKey, func() (any, error) {
		c.setState(FetchingMore)
		return c.runCycle(ctx), nil
	})
	out := v.(Outcome)
	out.Shared = shared
	return out, nil
}

// waitMounted blocks until Mount has returned. It fails with ErrNotMounted when
// Mount was never called.
func (c *Controller) waitMounted(ctx context.Context) error {
	if !c.Mounted() {
		return ErrNotMounted
	}
	select {
	case <-c.mountDone:
		return nil
	default:
	}
	select {
	case <-c.mountDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) runCycle(ctx context.Context) Outcome {
	c.mu.RLock()
	page := c.cursor
	c.mu.RUnlock()

	out := Outcome{Page: page}
	logger := c.logger.With("page", page, "per_page", c.perPage)
	logger.Debug("fetching page")

	events, err := c.fetcher.FetchPage(ctx, page, c.perPage)
	if err != nil {
		out.FetchErr = err
		c.metrics.FetchFailed(failureKind(err))
		logger.Error("failed to fetch page", "error", err)

		c.mu.Lock()
		// A page with no decodable record is skipped under either policy.
		if c.policy == config.CursorAdvanceAlways || errors.Is(err, feed.ErrRecordsRejected) {
			c.cursor++
		}
		c.state = Idle
		c.publishLocked()
		c.mu.Unlock()
		return out
	}
	c.metrics.PageFetched()
	out.Fetched = len(events)

	if len(events) == 0 {
		logger.Info("feed exhausted")
		out.Exhausted = true
		c.mu.Lock()
		c.state = Exhausted
		c.publishLocked()
		c.mu.Unlock()
		return out
	}

	res := c.engine.Persist(ctx, events)

	c.mu.Lock()
	res.Added, res.Replaced = c.view.Append(events)
	out.Merge = res
	c.cursor++
	c.state = Idle
	c.publishLocked()
	size := c.view.Len()
	c.mu.Unlock()

	logger.Info("page merged", "fetched", len(events), "persisted", out.Merge.Persisted, "view_size", size)
	return out
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) publishLocked() {
	c.metrics.SetView(c.view.Len(), c.cursor)
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, feed.ErrParse):
		return metrics.KindParse
	case errors.Is(err, feed.ErrNetwork):
		return metrics.KindNetwork
	default:
		return metrics.KindOther
	}
}

// Mounted reports whether Mount has been called.
func (c *Controller) Mounted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mounted
}

// PerPage returns the page size.
func (c *Controller) PerPage() int { return c.perPage }

// Len returns the number of events in the view.
func (c *Controller) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view.Len()
}

// HasMore reports whether another page may exist.
func (c *Controller) HasMore() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state != Exhausted
}

// Cursor returns the next page to request.
func (c *Controller) Cursor() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cursor
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Events returns a copy of the view in order.
func (c *Controller) Events() []event.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view.Events()
}
