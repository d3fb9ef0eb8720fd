package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 5005 {
		t.Errorf("Port = %d, want 5005", cfg.Server.Port)
	}
	if cfg.Scanner.BatchSize != 100 {
		t.Errorf("BatchSize = %d, want 100", cfg.Scanner.BatchSize)
	}
	if cfg.Music.IgnoreFile != ".ignore" {
		t.Errorf("IgnoreFile = %q, want .ignore", cfg.Music.IgnoreFile)
	}
	if cfg.Scanner.RequireDelivery {
		t.Error("RequireDelivery should default to false")
	}
	if cfg.State.Dir == "" {
		t.Error("State.Dir should be resolved to a default")
	}
	if cfg.History.Path == "" {
		t.Error("History.Path should be derived from the state dir")
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
music:
  path: /srv/music
  extensions: [MP3, .Flac]
  scan_time: "04:30"
server:
  url: http://music.lan
  port: 8000
scanner:
  batch_size: 25
  require_delivery: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Music.Path != "/srv/music" {
		t.Errorf("Path = %q", cfg.Music.Path)
	}
	if cfg.Server.BaseURL() != "http://music.lan:8000" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL())
	}
	if cfg.Scanner.BatchSize != 25 {
		t.Errorf("BatchSize = %d", cfg.Scanner.BatchSize)
	}
	if !cfg.Scanner.RequireDelivery {
		t.Error("RequireDelivery = false, want true")
	}

	// Extensions normalize to lowercase dotted form.
	want := []string{".mp3", ".flac"}
	for i, ext := range cfg.Music.Extensions {
		if ext != want[i] {
			t.Errorf("Extensions[%d] = %q, want %q", i, ext, want[i])
		}
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "music:\n  path: /from/file\n")
	t.Setenv("M2D_MUSIC_PATH", "/from/env")
	t.Setenv("M2D_SERVER_PORT", "9000")
	t.Setenv("M2D_BATCH_SIZE", "10")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Music.Path != "/from/env" {
		t.Errorf("Path = %q, want /from/env", cfg.Music.Path)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Scanner.BatchSize != 10 {
		t.Errorf("BatchSize = %d, want 10", cfg.Scanner.BatchSize)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Music.Path != "/music" {
		t.Errorf("Path = %q, want /music", cfg.Music.Path)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad port", "server:\n  port: 0\n"},
		{"bad batch size", "scanner:\n  batch_size: -1\n"},
		{"bad scan time", "music:\n  scan_time: \"25:00\"\n"},
		{"not a time", "music:\n  scan_time: \"soon\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("Load succeeded, want validation error")
			}
		})
	}
}

func TestDefaultStateDir_XDG(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg-state")
	if got := defaultStateDir(); got != "/tmp/xdg-state/music2db" {
		t.Errorf("defaultStateDir = %q", got)
	}
}
