package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"event-desk/config"
	"event-desk/logging"

	"github.com/alecthomas/kong"
)

var (
	// Version information - set by version.go
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// CLI represents the command line interface structure using Kong
type CLI struct {
	ConfigPath string `name:"config" help:"Path to config file (default: ~/.config/event-desk/config.yaml)" type:"path"`
	Debug      bool   `help:"Enable debug logging"`
	DBPath     string `name:"db" help:"Path to the local SQLite database (overrides database_path)" type:"path"`

	Init    InitCmd    `cmd:"" help:"Initialize the local database"`
	Load    LoadCmd    `cmd:"" help:"Load the feed: use the local cache or fetch page 1, then fetch more pages"`
	View    ViewCmd    `cmd:"" help:"Display events from the local database"`
	Status  StatusCmd  `cmd:"" help:"Show local database status"`
	Reset   ResetCmd   `cmd:"" help:"Delete all cached events (DRYRUN unless --exec)"`
	Config  ConfigCmd  `cmd:"" help:"Inspect configuration"`
	MCP     MCPCmd     `cmd:"" name:"mcp" help:"Serve the feed over the Model Context Protocol (stdio)"`
	Version VersionCmd `cmd:"" help:"Show version information"`

	out io.Writer `kong:"-"`
}

func (c *CLI) stdout() io.Writer {
	if c == nil || c.out == nil {
		return os.Stdout
	}
	return c.out
}

func (c *CLI) applyDebug() {
	if c.Debug {
		config.Debug = true
		logging.EnableDebug()
	}
}

// Execute is the main entry point for all commands
func Execute() error {
	cli := &CLI{}

	kctx := kong.Parse(cli,
		kong.Name(config.AppName),
		kong.Description("Paginated event feed with a local SQLite cache"),
		kong.Vars{
			"version": fmt.Sprintf("%s (%s, built %s)", appVersion, appCommit, appDate),
		},
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	cli.applyDebug()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	kctx.BindTo(ctx, (*context.Context)(nil))

	return kctx.Run(cli)
}

// loadConfig reads configuration and applies the --db override. Commands that
// only touch the local database skip validation.
func (c *CLI) loadConfig(validate bool) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if validate {
		cfg, err = config.GetConfig(c.ConfigPath)
	} else {
		cfg, err = config.LoadConfigNoValidate(c.ConfigPath)
	}
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if c.DBPath != "" {
		cfg.DatabasePath = c.DBPath
	}
	return cfg, nil
}

// VersionCmd represents the version command structure
type VersionCmd struct{}

// Run implements the version command execution
func (v *VersionCmd) Run(cli *CLI) error {
	w := cli.stdout()
	fmt.Fprintf(w, "%s version %s\n", config.AppName, appVersion)
	fmt.Fprintf(w, "commit: %s\n", appCommit)
	fmt.Fprintf(w, "built at: %s\n", appDate)
	return nil
}

func userAgent() string {
	return config.AppName + "/" + appVersion
}
