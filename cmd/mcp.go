package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"event-desk/logging"
	"event-desk/mcp"
)

// MCPCmd serves the feed over stdio.
type MCPCmd struct{}

// Run implements the mcp command execution
func (m *MCPCmd) Run(ctx context.Context, cli *CLI) error {
	cfg, err := cli.loadConfig(true)
	if err != nil {
		return err
	}
	p, err := openPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	if cfg.MetricsListen != "" {
		stop, err := serveMetrics(cfg.MetricsListen, p.metrics.Handler())
		if err != nil {
			return err
		}
		defer stop()
	}

	return mcp.Serve(ctx, cfg, mcp.Backend{Store: p.store, Controller: p.controller}, appVersion)
}

// serveMetrics exposes handler at /metrics on addr until the returned func is called.
func serveMetrics(addr string, handler http.Handler) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to serve metrics on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	logger := logging.Logger()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		<-done
	}, nil
}
