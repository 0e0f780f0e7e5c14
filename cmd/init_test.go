package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitDBCmdCreatesDatabaseAtExplicitPath(t *testing.T) {
	dir := isolate(t)
	dbPath := filepath.Join(dir, "custom.db")

	cmd := InitDBCmd{TargetFile: dbPath}
	var buf bytes.Buffer
	if err := cmd.Run(context.Background(), &CLI{out: &buf}); err != nil {
		t.Fatalf("InitDBCmd.Run returned error: %v", err)
	}

	infoBefore, err := os.Stat(dbPath)
	if err != nil {
		t.Fatalf("expected database file at %s: %v", dbPath, err)
	}

	buf.Reset()
	if err := cmd.Run(context.Background(), &CLI{out: &buf}); err != nil {
		t.Fatalf("InitDBCmd.Run on existing file returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "already exists") {
		t.Errorf("unexpected output on second run: %q", buf.String())
	}

	infoAfter, err := os.Stat(dbPath)
	if err != nil {
		t.Fatalf("failed to stat db file after second run: %v", err)
	}
	if !infoAfter.ModTime().Equal(infoBefore.ModTime()) {
		t.Fatalf("expected db file not to be modified; before=%v after=%v", infoBefore.ModTime(), infoAfter.ModTime())
	}
}

func TestInitDBCmdUsesConfigDatabasePath(t *testing.T) {
	dir := isolate(t)
	dbPath := filepath.Join(dir, "nested", "config.db")
	configPath := writeConfigFile(t, dir, "database_path: \""+dbPath+"\"\n")

	cmd := InitDBCmd{}
	if err := cmd.Run(context.Background(), &CLI{ConfigPath: configPath, out: &bytes.Buffer{}}); err != nil {
		t.Fatalf("InitDBCmd.Run returned error: %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected database file via config at %s: %v", dbPath, err)
	}
}

func TestInitConfigCmdCreatesConfigAndSkipsExisting(t *testing.T) {
	dir := isolate(t)
	target := filepath.Join(dir, "conf", "config.yaml")

	cmd := InitConfigCmd{TargetFile: target}
	if err := cmd.Run(&CLI{out: &bytes.Buffer{}}); err != nil {
		t.Fatalf("InitConfigCmd.Run returned error: %v", err)
	}

	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("failed to read generated config: %v", err)
	}
	if !strings.Contains(string(content), "api_url:") || !strings.Contains(string(content), "cursor_policy: success") {
		t.Fatalf("unexpected template:\n%s", content)
	}

	infoBefore, err := os.Stat(target)
	if err != nil {
		t.Fatalf("failed to stat generated config: %v", err)
	}
	if err := cmd.Run(&CLI{out: &bytes.Buffer{}}); err != nil {
		t.Fatalf("InitConfigCmd.Run on existing file returned error: %v", err)
	}
	infoAfter, err := os.Stat(target)
	if err != nil {
		t.Fatalf("failed to stat config after second run: %v", err)
	}
	if !infoAfter.ModTime().Equal(infoBefore.ModTime()) {
		t.Fatalf("expected config file not to be modified; before=%v after=%v", infoBefore.ModTime(), infoAfter.ModTime())
	}
}

func TestInitConfigTemplateLoads(t *testing.T) {
	dir := isolate(t)
	target := filepath.Join(dir, "config.yaml")
	if err := (&InitConfigCmd{TargetFile: target}).Run(&CLI{out: &bytes.Buffer{}}); err != nil {
		t.Fatalf("InitConfigCmd.Run returned error: %v", err)
	}
	t.Setenv("EVENT_DESK_CLIENT_ID", "abc")

	cfg, err := (&CLI{ConfigPath: target}).loadConfig(true)
	if err != nil {
		t.Fatalf("template does not validate: %v", err)
	}
	if cfg.APIURL != "https://api.example.com/2/events?client_id=abc" || cfg.PerPage != 20 {
		t.Fatalf("unexpected config from template: %+v", cfg)
	}
}
