package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"event-desk/validate"

	"gopkg.in/yaml.v3"
)

const (
	AppName = "event-desk"

	// Environment variable names
	EnvAPIURL   = "EVENT_DESK_API_URL"
	EnvAPIToken = "EVENT_DESK_API_TOKEN"
	EnvPerPage  = "EVENT_DESK_PER_PAGE"
	EnvDBPath   = "EVENT_DESK_DB_PATH"

	DefaultPerPage = 20
	DefaultTimeout = 30 * time.Second
)

// Cursor policies decide whether a failed fetch consumes its page number.
const (
	CursorAdvanceOnSuccess = "success"
	CursorAdvanceAlways    = "always"
)

// Debug is set by the CLI when --debug is given.
var Debug bool

// Config holds the application configuration
type Config struct {
	APIURL       string        `yaml:"api_url"`
	APIToken     string        `yaml:"api_token"`
	PerPage      int           `yaml:"per_page"`
	Timeout      time.Duration `yaml:"timeout"`
	Retries      int           `yaml:"retries"`
	CursorPolicy string        `yaml:"cursor_policy"`
	DatabasePath string        `yaml:"database_path"`
	MCP          MCPConfig     `yaml:"mcp"`
	// MetricsListen is an optional host:port for the Prometheus handler.
	MetricsListen string `yaml:"metrics_listen"`
}

// MCPConfig holds MCP server permissions
type MCPConfig struct {
	AllowLoad bool `yaml:"allow_load"`
}

// GetConfig loads configuration from file and environment variables and validates it.
func GetConfig(customPath string) (*Config, error) {
	cfg, err := LoadConfigNoValidate(customPath)
	if err != nil {
		return nil, err
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigNoValidate loads the file and environment overrides without requiring
// the feed endpoint. Commands that only read the local store use it.
func LoadConfigNoValidate(customPath string) (*Config, error) {
	cfg := &Config{}

	// 1. Load from YAML file
	configPath, err := ResolveConfigPath(customPath)
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		file, err := os.ReadFile(configPath)
		if err == nil { // File exists and is readable
			// Expand env vars before unmarshalling
			expandedFile := os.ExpandEnv(string(file))
			if err := yaml.Unmarshal([]byte(expandedFile), cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
			}
		} else if !os.IsNotExist(err) {
			// File exists but is not readable for some reason
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		} else if customPath != "" {
			return nil, fmt.Errorf("config file %s not found: %w", configPath, err)
		}
	}

	// 2. Override with environment variables
	if u := os.Getenv(EnvAPIURL); u != "" {
		cfg.APIURL = u
	}
	if token := os.Getenv(EnvAPIToken); token != "" {
		cfg.APIToken = token
	}
	if pp := os.Getenv(EnvPerPage); pp != "" {
		n, err := strconv.Atoi(strings.TrimSpace(pp))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPerPage, err)
		}
		cfg.PerPage = n
	}
	if p := os.Getenv(EnvDBPath); p != "" {
		cfg.DatabasePath = p
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	cfg.APIURL = strings.TrimSpace(cfg.APIURL)
	if cfg.PerPage == 0 {
		cfg.PerPage = DefaultPerPage
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.CursorPolicy = strings.ToLower(strings.TrimSpace(cfg.CursorPolicy))
	if cfg.CursorPolicy == "" {
		cfg.CursorPolicy = CursorAdvanceOnSuccess
	}
}

func validateConfig(cfg *Config) error {
	if cfg.APIURL == "" {
		return fmt.Errorf("api url is not set. Please set %s or add api_url to config file", EnvAPIURL)
	}
	if err := validate.ValidateAPIURL(cfg.APIURL); err != nil {
		return err
	}
	if err := validate.ValidatePerPage(cfg.PerPage); err != nil {
		return err
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", cfg.Timeout)
	}
	if cfg.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", cfg.Retries)
	}
	return ValidateCursorPolicy(cfg.CursorPolicy)
}

// ValidateCursorPolicy accepts CursorAdvanceOnSuccess or CursorAdvanceAlways.
func ValidateCursorPolicy(policy string) error {
	switch policy {
	case CursorAdvanceOnSuccess, CursorAdvanceAlways:
		return nil
	default:
		return fmt.Errorf("unknown cursor_policy %q: use %q or %q", policy, CursorAdvanceOnSuccess, CursorAdvanceAlways)
	}
}

// ResolveConfigPath returns customPath when set, or the default
// ~/.config/event-desk/config.yaml location.
func ResolveConfigPath(customPath string) (string, error) {
	if customPath != "" {
		return customPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", AppName, "config.yaml"), nil
}

// MaskSecret hides a credential for display, keeping the last four characters
// of values longer than eight.
func MaskSecret(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) > 8 {
		return "[masked]..." + s[len(s)-4:]
	}
	return "[masked]"
}
