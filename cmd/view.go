package cmd

import (
	"context"
	"fmt"

	"event-desk/store"
	v "event-desk/validate"
)

// ViewCmd renders cached events without calling the feed.
type ViewCmd struct {
	Format string `help:"Output format (table|json|yaml)" default:"table" enum:"table,json,yaml"`
	Limit  int    `help:"Maximum events to show (0 = all)" default:"0"`
	Offset int    `help:"Number of events to skip" default:"0"`
}

// Run implements the view command execution
func (c *ViewCmd) Run(ctx context.Context, cli *CLI) error {
	format, err := store.ParseOutputFormat(c.Format)
	if err != nil {
		return err
	}
	if err := validateWindow(c.Offset, c.Limit); err != nil {
		return err
	}
	cfg, err := cli.loadConfig(false)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	events, err := st.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}
	start := min(c.Offset, len(events))
	end := len(events)
	if c.Limit > 0 {
		end = min(start+c.Limit, end)
	}
	return store.RenderEvents(cli.stdout(), events[start:end], format)
}

func validateWindow(offset, limit int) error {
	if offset < 0 {
		return fmt.Errorf("--offset must not be negative, got %d", offset)
	}
	if limit < 0 || limit > v.ViewLimitMax {
		return fmt.Errorf("--limit must be between 0 and %d, got %d", v.ViewLimitMax, limit)
	}
	return nil
}

// StatusCmd summarizes the local database.
type StatusCmd struct {
	Format string `help:"Output format (table|json|yaml)" default:"table" enum:"table,json,yaml"`
}

type statusReport struct {
	DatabasePath string `json:"database_path" yaml:"database_path"`
	Exists       bool   `json:"exists" yaml:"exists"`
	Events       int    `json:"events" yaml:"events"`
	APIURL       string `json:"api_url" yaml:"api_url"`
	PerPage      int    `json:"per_page" yaml:"per_page"`
}

// Run implements the status command execution
func (c *StatusCmd) Run(ctx context.Context, cli *CLI) error {
	format, err := store.ParseOutputFormat(c.Format)
	if err != nil {
		return err
	}
	cfg, err := cli.loadConfig(false)
	if err != nil {
		return err
	}
	rep := statusReport{
		DatabasePath: store.ResolvePath(cfg.DatabasePath),
		APIURL:       cfg.APIURL,
		PerPage:      cfg.PerPage,
	}
	exists, err := fileExists(rep.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to stat database: %w", err)
	}
	if exists {
		rep.Exists = true
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		if rep.Events, err = st.Count(ctx); err != nil {
			return fmt.Errorf("failed to count events: %w", err)
		}
	}

	w := cli.stdout()
	return store.Render(w, format, func() error {
		fmt.Fprintf(w, "Database: %s\n", rep.DatabasePath)
		if !rep.Exists {
			fmt.Fprintln(w, "Events: 0 (database not created yet; run 'event-desk init' or 'event-desk load')")
		} else {
			fmt.Fprintf(w, "Events: %d\n", rep.Events)
		}
		if rep.APIURL != "" {
			fmt.Fprintf(w, "Feed: %s (per_page=%d)\n", rep.APIURL, rep.PerPage)
		} else {
			fmt.Fprintln(w, "Feed: not configured")
		}
		return nil
	}, rep)
}

// ResetCmd clears the local cache.
type ResetCmd struct {
	Exec bool `help:"Execute the operation (without this flag, runs in DRYRUN mode)"`
}

// Run implements the reset command execution
func (c *ResetCmd) Run(ctx context.Context, cli *CLI) error {
	cfg, err := cli.loadConfig(false)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	w := cli.stdout()
	if !c.Exec {
		n, err := st.Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count events: %w", err)
		}
		fmt.Fprintf(w, "DRYRUN: Would delete %d events from %s\n", n, st.Path())
		fmt.Fprintln(w, "To execute, add the --exec flag.")
		return nil
	}

	n, err := st.Clear(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	fmt.Fprintf(w, "Deleted %d events from %s\n", n, st.Path())
	return nil
}

