package cmd

import (
	"fmt"

	"event-desk/config"

	"gopkg.in/yaml.v3"
)

// ConfigCmd groups configuration subcommands.
type ConfigCmd struct {
	View ConfigViewCmd `cmd:"" help:"Print the effective configuration with secrets masked"`
}

// ConfigViewCmd prints the masked configuration.
type ConfigViewCmd struct{}

// Run implements the config view command execution
func (c *ConfigViewCmd) Run(cli *CLI) error {
	// Use shared loader without validation. It errors only when a custom --config is invalid.
	cfg, err := cli.loadConfig(false)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	out, err := renderMaskedConfigYAML(cfg)
	if err != nil {
		return err
	}
	fmt.Fprint(cli.stdout(), out)
	return nil
}

// renderMaskedConfigYAML returns YAML of config with secrets masked.
func renderMaskedConfigYAML(cfg *config.Config) (string, error) {
	safe := struct {
		APIURL       string `yaml:"api_url"`
		APIToken     string `yaml:"api_token"`
		PerPage      int    `yaml:"per_page"`
		Timeout      string `yaml:"timeout"`
		Retries      int    `yaml:"retries"`
		CursorPolicy string `yaml:"cursor_policy"`
		DatabasePath string `yaml:"database_path"`
		MCP          struct {
			AllowLoad bool `yaml:"allow_load"`
		} `yaml:"mcp"`
		MetricsListen string `yaml:"metrics_listen,omitempty"`
	}{
		APIURL:        cfg.APIURL,
		APIToken:      config.MaskSecret(cfg.APIToken),
		PerPage:       cfg.PerPage,
		Timeout:       cfg.Timeout.String(),
		Retries:       cfg.Retries,
		CursorPolicy:  cfg.CursorPolicy,
		DatabasePath:  cfg.DatabasePath,
		MetricsListen: cfg.MetricsListen,
	}
	safe.MCP.AllowLoad = cfg.MCP.AllowLoad

	b, err := yaml.Marshal(&safe)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(b), nil
}
