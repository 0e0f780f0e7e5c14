package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"event-desk/validate"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvAPIToken, "")
	t.Setenv(EnvPerPage, "")
	t.Setenv(EnvDBPath, "")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGetConfig(t *testing.T) {
	t.Run("loads from environment variables", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvAPIURL, "https://api.example.com/2/events?client_id=env")
		t.Setenv(EnvAPIToken, "env-token")
		t.Setenv(EnvPerPage, "50")

		// Use a temp file to avoid reading user's real config
		cfg, err := GetConfig(writeConfig(t, ""))
		if err != nil {
			t.Fatalf("GetConfig() error = %v", err)
		}

		if cfg.APIURL != "https://api.example.com/2/events?client_id=env" {
			t.Errorf("APIURL = %v", cfg.APIURL)
		}
		if cfg.APIToken != "env-token" {
			t.Errorf("APIToken = %v, want %v", cfg.APIToken, "env-token")
		}
		if cfg.PerPage != 50 {
			t.Errorf("PerPage = %d, want 50", cfg.PerPage)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvAPIURL, "https://api.example.com/events")

		cfg, err := GetConfig(writeConfig(t, ""))
		if err != nil {
			t.Fatalf("GetConfig() error = %v", err)
		}
		if cfg.PerPage != DefaultPerPage {
			t.Errorf("PerPage = %d, want %d", cfg.PerPage, DefaultPerPage)
		}
		if cfg.Timeout != DefaultTimeout {
			t.Errorf("Timeout = %s, want %s", cfg.Timeout, DefaultTimeout)
		}
		if cfg.CursorPolicy != CursorAdvanceOnSuccess {
			t.Errorf("CursorPolicy = %q, want %q", cfg.CursorPolicy, CursorAdvanceOnSuccess)
		}
		if cfg.Retries != 0 {
			t.Errorf("Retries = %d, want 0", cfg.Retries)
		}
	})

	t.Run("loads from custom path yaml", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MY_CLIENT_ID", "custom-client")
		t.Setenv("MY_TOKEN", "custom-token")

		path := writeConfig(t, `
api_url: https://api.example.com/2/events?client_id=${MY_CLIENT_ID}
api_token: $MY_TOKEN
per_page: 25
timeout: 5s
retries: 2
cursor_policy: Always
database_path: /tmp/events.db
metrics_listen: 127.0.0.1:9090
mcp:
  allow_load: true
`)
		cfg, err := GetConfig(path)
		if err != nil {
			t.Fatalf("GetConfig() with custom path error = %v", err)
		}

		if cfg.APIURL != "https://api.example.com/2/events?client_id=custom-client" {
			t.Errorf("APIURL = %v", cfg.APIURL)
		}
		if cfg.APIToken != "custom-token" {
			t.Errorf("APIToken = %v, want %v", cfg.APIToken, "custom-token")
		}
		if cfg.PerPage != 25 || cfg.Timeout != 5*time.Second || cfg.Retries != 2 {
			t.Errorf("unexpected numeric settings: %+v", cfg)
		}
		if cfg.CursorPolicy != CursorAdvanceAlways {
			t.Errorf("CursorPolicy = %q, want %q", cfg.CursorPolicy, CursorAdvanceAlways)
		}
		if cfg.DatabasePath != "/tmp/events.db" || !cfg.MCP.AllowLoad || cfg.MetricsListen != "127.0.0.1:9090" {
			t.Errorf("unexpected settings: %+v", cfg)
		}
	})

	t.Run("env overrides file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvDBPath, "/var/lib/event-desk/events.db")
		path := writeConfig(t, "api_url: https://file.example.com/events\ndatabase_path: file.db\n")

		cfg, err := GetConfig(path)
		if err != nil {
			t.Fatalf("GetConfig() error = %v", err)
		}
		if cfg.DatabasePath != "/var/lib/event-desk/events.db" {
			t.Errorf("DatabasePath = %q", cfg.DatabasePath)
		}
	})

	t.Run("error on missing api url", func(t *testing.T) {
		clearEnv(t)
		_, err := GetConfig(writeConfig(t, ""))
		if err == nil || !strings.Contains(err.Error(), EnvAPIURL) {
			t.Fatalf("expected missing api url error, got %v", err)
		}
	})

	t.Run("error on invalid per page", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvAPIURL, "https://api.example.com/events")
		t.Setenv(EnvPerPage, "500")
		_, err := GetConfig(writeConfig(t, ""))
		if !errors.Is(err, validate.ErrInvalidPerPage) {
			t.Fatalf("expected ErrInvalidPerPage, got %v", err)
		}
	})

	t.Run("error on non numeric per page", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvPerPage, "twenty")
		_, err := GetConfig(writeConfig(t, ""))
		if err == nil || !strings.Contains(err.Error(), EnvPerPage) {
			t.Fatalf("expected per page parse error, got %v", err)
		}
	})

	t.Run("error on unknown cursor policy", func(t *testing.T) {
		clearEnv(t)
		path := writeConfig(t, "api_url: https://api.example.com/events\ncursor_policy: sometimes\n")
		_, err := GetConfig(path)
		if err == nil || !strings.Contains(err.Error(), "cursor_policy") {
			t.Fatalf("expected cursor policy error, got %v", err)
		}
	})

	t.Run("error on missing custom file", func(t *testing.T) {
		clearEnv(t)
		_, err := LoadConfigNoValidate(filepath.Join(t.TempDir(), "nope.yaml"))
		if err == nil {
			t.Fatal("expected error for missing custom config file")
		}
	})
}

func TestLoadConfigNoValidateAllowsMissingURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfigNoValidate("")
	if err != nil {
		t.Fatalf("LoadConfigNoValidate() error = %v", err)
	}
	if cfg.APIURL != "" {
		t.Errorf("APIURL = %q, want empty", cfg.APIURL)
	}
	if cfg.PerPage != DefaultPerPage {
		t.Errorf("PerPage = %d, want default", cfg.PerPage)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := map[string]string{
		"":                  "",
		"   ":               "",
		"short":             "[masked]",
		"12345678":          "[masked]",
		"abcdefghijkl":      "[masked]...ijkl",
		"  padded-secret  ": "[masked]...cret",
	}
	for in, want := range tests {
		if got := MaskSecret(in); got != want {
			t.Errorf("MaskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateCursorPolicy(t *testing.T) {
	for _, p := range []string{CursorAdvanceOnSuccess, CursorAdvanceAlways} {
		if err := ValidateCursorPolicy(p); err != nil {
			t.Errorf("ValidateCursorPolicy(%q) error = %v", p, err)
		}
	}
	for _, p := range []string{"", "never", "Success"} {
		if err := ValidateCursorPolicy(p); err == nil {
			t.Errorf("ValidateCursorPolicy(%q) expected error", p)
		}
	}
}
