package cmd

import (
	"context"
	"fmt"
	"io"

	"event-desk/pager"
	"event-desk/store"
)

// LoadCmd mounts the feed and optionally fetches more pages.
type LoadCmd struct {
	More   int    `help:"Additional pages to fetch after the initial load" default:"0"`
	Format string `help:"Output format (table|json|yaml)" default:"table" enum:"table,json,yaml"`
}

type cycleReport struct {
	Page      int    `json:"page" yaml:"page"`
	Source    string `json:"source" yaml:"source"`
	Fetched   int    `json:"fetched" yaml:"fetched"`
	Persisted int    `json:"persisted" yaml:"persisted"`
	Added     int    `json:"added" yaml:"added"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
	Exhausted bool   `json:"exhausted,omitempty" yaml:"exhausted,omitempty"`
}

type loadReport struct {
	Cycles   []cycleReport `json:"cycles" yaml:"cycles"`
	Cursor   int           `json:"cursor" yaml:"cursor"`
	ViewSize int           `json:"view_size" yaml:"view_size"`
	HasMore  bool          `json:"has_more" yaml:"has_more"`
}

func (r *loadReport) add(o pager.Outcome, viewSize int) {
	c := cycleReport{
		Page:      o.Page,
		Source:    "remote",
		Fetched:   o.Fetched,
		Persisted: o.Merge.Persisted,
		Added:     o.Merge.Added,
		Exhausted: o.Exhausted,
	}
	if o.CacheHit {
		c.Source = "cache"
		c.Added = viewSize
	}
	switch {
	case o.FetchErr != nil:
		c.Error = o.FetchErr.Error()
	case o.Merge.Err != nil:
		c.Error = o.Merge.Err.Error()
	}
	r.Cycles = append(r.Cycles, c)
}

// Run implements the load command execution
func (l *LoadCmd) Run(ctx context.Context, cli *CLI) error {
	if l.More < 0 {
		return fmt.Errorf("--more must not be negative, got %d", l.More)
	}
	format, err := store.ParseOutputFormat(l.Format)
	if err != nil {
		return err
	}
	cfg, err := cli.loadConfig(true)
	if err != nil {
		return err
	}
	p, err := openPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	ctrl := p.controller
	var rep loadReport
	out, err := ctrl.Mount(ctx)
	if err != nil {
		return err
	}
	rep.add(out, ctrl.Len())

	for i := 0; i < l.More && ctrl.HasMore(); i++ {
		if ctx.Err() != nil {
			break
		}
		next, err := ctrl.LoadNext(ctx)
		if err != nil {
			return err
		}
		rep.add(next, ctrl.Len())
	}
	rep.Cursor = ctrl.Cursor()
	rep.ViewSize = ctrl.Len()
	rep.HasMore = ctrl.HasMore()

	w := cli.stdout()
	return store.Render(w, format, func() error {
		printLoadReport(w, rep, p.store.Path())
		return nil
	}, rep)
}

func printLoadReport(w io.Writer, rep loadReport, dbPath string) {
	for _, c := range rep.Cycles {
		switch {
		case c.Source == "cache":
			fmt.Fprintf(w, "cache: %d events loaded from %s\n", c.Added, dbPath)
		case c.Error != "" && c.Fetched == 0:
			fmt.Fprintf(w, "page %d: fetch failed: %s\n", c.Page, c.Error)
		case c.Exhausted:
			fmt.Fprintf(w, "page %d: no more events\n", c.Page)
		case c.Error != "":
			fmt.Fprintf(w, "page %d: fetched %d, stored %d, new %d (store error: %s)\n", c.Page, c.Fetched, c.Persisted, c.Added, c.Error)
		default:
			fmt.Fprintf(w, "page %d: fetched %d, stored %d, new %d\n", c.Page, c.Fetched, c.Persisted, c.Added)
		}
	}
	if rep.HasMore {
		fmt.Fprintf(w, "view: %d events, next page %d\n", rep.ViewSize, rep.Cursor)
	} else {
		fmt.Fprintf(w, "view: %d events, feed exhausted\n", rep.ViewSize)
	}
}
