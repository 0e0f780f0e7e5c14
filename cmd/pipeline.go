package cmd

import (
	"context"
	"fmt"

	"event-desk/config"
	"event-desk/feed"
	"event-desk/logging"
	"event-desk/merge"
	"event-desk/metrics"
	"event-desk/pager"
	"event-desk/store"
)

// pipeline wires the store, the feed client and the controller for one session.
type pipeline struct {
	store      *store.Store
	controller *pager.Controller
	metrics    *metrics.Collector
}

// openPipeline never fails on an unusable store: the session runs without a
// cache and every persist is logged as failed.
func openPipeline(ctx context.Context, cfg *config.Config, opts ...feed.Option) (*pipeline, error) {
	logger := logging.Logger()

	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		logger.Warn("local store unavailable, continuing without cache", "path", st.Path(), "error", err)
	}

	opts = append([]feed.Option{feed.WithUserAgent(userAgent()), feed.WithLogger(logger)}, opts...)
	client, err := feed.NewClient(cfg, opts...)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to create feed client: %w", err)
	}

	m := metrics.New()
	engine := merge.NewEngine(st, merge.WithLogger(logger), merge.WithRecorder(m))
	ctrl, err := pager.New(st, client, engine,
		pager.WithPerPage(cfg.PerPage),
		pager.WithCursorPolicy(cfg.CursorPolicy),
		pager.WithLogger(logger),
		pager.WithMetrics(m),
	)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return &pipeline{store: st, controller: ctrl, metrics: m}, nil
}

func (p *pipeline) Close() error {
	return p.store.Close()
}

// openStore opens the local database for commands that never call the feed.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}
