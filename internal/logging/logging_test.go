package logging

import (
	"log/slog"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidLevel(t *testing.T) {
	for _, s := range []string{"debug", "info", "warn", "error"} {
		if !ValidLevel(s) {
			t.Errorf("ValidLevel(%q) = false", s)
		}
	}
	if ValidLevel("verbose") {
		t.Error("ValidLevel(verbose) = true")
	}
}

func TestNewManager_StdoutOnly(t *testing.T) {
	m, logger := NewManager(Config{Level: "debug", Format: "text"})
	defer m.Close()

	if logger == nil {
		t.Fatal("logger is nil")
	}
	if !logger.Enabled(t.Context(), slog.LevelDebug) {
		t.Error("debug should be enabled")
	}

	m.SetLevel("error")
	if logger.Enabled(t.Context(), slog.LevelInfo) {
		t.Error("info should be disabled after SetLevel(error)")
	}
}

func TestNewManager_FileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	m, logger := NewManager(Config{Level: "info", Format: "json", FilePath: path})

	logger.Info("hello")
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Close is idempotent once drained.
	if err := m.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestConfigString(t *testing.T) {
	c := Config{Level: "info", Format: "text"}
	if got := c.String(); got != "level=info format=text" {
		t.Errorf("String() = %q", got)
	}
}
