package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Music   MusicConfig   `yaml:"music"`
	Server  ServerConfig  `yaml:"server"`
	Scanner ScannerConfig `yaml:"scanner"`
	State   StateConfig   `yaml:"state"`
	History HistoryConfig `yaml:"history"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// MusicConfig holds music library settings.
type MusicConfig struct {
	Path       string   `yaml:"path"`
	Extensions []string `yaml:"extensions"`
	IgnoreFile string   `yaml:"ignore_file"`
	ScanTime   string   `yaml:"scan_time"`
	Watch      bool     `yaml:"watch"`
}

// ServerConfig holds catalog server connection settings.
type ServerConfig struct {
	URL                string `yaml:"url"`
	Port               int    `yaml:"port"`
	OneTrackEndpoint   string `yaml:"one_track_endpoint"`
	ManyTracksEndpoint string `yaml:"many_tracks_endpoint"`
}

// BaseURL returns the catalog server base URL including the port.
func (s ServerConfig) BaseURL() string {
	return fmt.Sprintf("%s:%d", strings.TrimRight(s.URL, "/"), s.Port)
}

// ScannerConfig holds scan engine settings.
type ScannerConfig struct {
	BatchSize int `yaml:"batch_size"`
	// RequireDelivery makes the checkpoint commit conditional on every
	// batch reaching the server during the scan.
	RequireDelivery bool `yaml:"require_delivery"`
}

// StateConfig holds checkpoint storage settings.
type StateConfig struct {
	Dir string `yaml:"dir"`
}

// HistoryConfig holds scan history database settings.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	FilePath string `yaml:"file_path"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Music: MusicConfig{
			Path:       "/music",
			Extensions: []string{".mp3", ".flac", ".ogg", ".m4a"},
			IgnoreFile: ".ignore",
			ScanTime:   "03:00",
		},
		Server: ServerConfig{
			URL:                "http://localhost",
			Port:               5005,
			OneTrackEndpoint:   "/add_track/",
			ManyTracksEndpoint: "/add_tracks/",
		},
		Scanner: ScannerConfig{
			BatchSize: 100,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Metrics: MetricsConfig{
			Port: 9105,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("M2D_MUSIC_PATH"); v != "" {
		c.Music.Path = v
	}
	if v := os.Getenv("M2D_SCAN_TIME"); v != "" {
		c.Music.ScanTime = v
	}
	if v := os.Getenv("M2D_SERVER_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("M2D_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("M2D_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scanner.BatchSize = n
		}
	}
	if v := os.Getenv("M2D_STATE_DIR"); v != "" {
		c.State.Dir = v
	}
	if v := os.Getenv("M2D_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("M2D_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

func (c *Config) validate() error {
	if c.Music.Path == "" {
		return fmt.Errorf("music path is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Scanner.BatchSize < 1 {
		return fmt.Errorf("invalid batch size: %d", c.Scanner.BatchSize)
	}
	if err := validateScanTime(c.Music.ScanTime); err != nil {
		return err
	}

	// Normalize extensions to lowercase dotted form.
	for i, ext := range c.Music.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Music.Extensions[i] = ext
	}
	if c.Music.IgnoreFile == "" {
		c.Music.IgnoreFile = ".ignore"
	}

	if c.State.Dir == "" {
		c.State.Dir = defaultStateDir()
	}
	if c.History.Path == "" {
		c.History.Path = filepath.Join(c.State.Dir, "history.db")
	}

	return nil
}

// validateScanTime accepts "HH:MM" wall clock times.
func validateScanTime(s string) error {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return fmt.Errorf("invalid scan_time %q: want HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return fmt.Errorf("invalid scan_time %q: bad hour", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid scan_time %q: bad minute", s)
	}
	return nil
}

// defaultStateDir resolves the per-user state directory, honoring
// XDG_STATE_HOME.
func defaultStateDir() string {
	if v := os.Getenv("XDG_STATE_HOME"); v != "" {
		return filepath.Join(v, "music2db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "music2db")
	}
	return filepath.Join(home, ".local", "state", "music2db")
}
