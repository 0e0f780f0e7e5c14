package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"event-desk/config"
	"event-desk/store"
)

// InitCmd represents the init command structure
type InitCmd struct {
	DB     InitDBCmd     `cmd:"" name:"db" help:"Create the local SQLite database"`
	Config InitConfigCmd `cmd:"" name:"config" help:"Write a config template"`
}

// InitDBCmd creates the database file and schema.
type InitDBCmd struct {
	TargetFile string `name:"target-file" help:"Create the database at this path instead of the configured one" type:"path"`
}

// Run implements the init db command execution
func (c *InitDBCmd) Run(ctx context.Context, cli *CLI) error {
	cfg, err := cli.loadConfig(false)
	if err != nil {
		return err
	}
	if c.TargetFile != "" {
		cfg.DatabasePath = c.TargetFile
	}
	path := store.ResolvePath(cfg.DatabasePath)

	w := cli.stdout()
	exists, err := fileExists(path)
	if err != nil {
		return fmt.Errorf("failed to stat database: %w", err)
	}
	if exists {
		fmt.Fprintf(w, "Database already exists at %s\n", path)
		return nil
	}
	if err := ensureDir(path); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if err := st.Close(); err != nil {
		return err
	}
	fmt.Fprintf(w, "Database initialized at %s\n", path)
	return nil
}

// InitConfigCmd writes a commented config template.
type InitConfigCmd struct {
	TargetFile string `name:"target-file" help:"Write the template to this path (default: ~/.config/event-desk/config.yaml)" type:"path"`
}

// Run implements the init config command execution
func (c *InitConfigCmd) Run(cli *CLI) error {
	path, err := config.ResolveConfigPath(c.TargetFile)
	if err != nil {
		return err
	}

	w := cli.stdout()
	exists, err := fileExists(path)
	if err != nil {
		return fmt.Errorf("failed to stat config: %w", err)
	}
	if exists {
		fmt.Fprintf(w, "Config already exists at %s\n", path)
		return nil
	}
	if err := ensureDir(path); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(w, "Config written to %s\n", path)
	return nil
}

const configTemplate = `# event-desk configuration
# Values may reference environment variables, e.g. ${EVENT_DESK_API_TOKEN}.

# Feed endpoint; page and per_page are added to its query string.
api_url: "https://api.example.com/2/events?client_id=${EVENT_DESK_CLIENT_ID}"
# Optional bearer token.
api_token: ""
per_page: 20
timeout: 30s
# Network retries per page (0 disables).
retries: 0
# success: a failed page is retried by the next load; always: it is skipped.
cursor_policy: success
database_path: ""

mcp:
  # Allow MCP clients to call the remote feed through load_more.
  allow_load: false

# host:port for Prometheus metrics while "event-desk mcp" runs.
metrics_listen: ""
`

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
