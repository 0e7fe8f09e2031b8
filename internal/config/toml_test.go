package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFileIsEmpty(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.View.Data != nil || cfg.Serve.Addr != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigDecodesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[view]
data = "/srv/timetable_data.js"
default-class = "1年1組"

[serve]
addr = ":9090"
watch = true

[import]
encoding = "utf-8"
[import.aliases]
"３理探" = "3年理数探究"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.View.Data == nil || *cfg.View.Data != "/srv/timetable_data.js" {
		t.Fatalf("unexpected data path: %v", cfg.View.Data)
	}
	if cfg.View.DefaultClass == nil || *cfg.View.DefaultClass != "1年1組" {
		t.Fatalf("unexpected default class: %v", cfg.View.DefaultClass)
	}
	if cfg.Serve.Watch == nil || !*cfg.Serve.Watch {
		t.Fatalf("expected watch enabled")
	}
	if cfg.Import.Aliases["３理探"] != "3年理数探究" {
		t.Fatalf("unexpected aliases: %v", cfg.Import.Aliases)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[view]\ncolour = \"red\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "view.colour") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestDefaultPathsHonourXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "jikanwari", "config.toml") {
		t.Fatalf("unexpected config path: %s", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "jikanwari", "jikanwari.db") {
		t.Fatalf("unexpected db path: %s", got)
	}
}
