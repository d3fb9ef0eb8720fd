package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/kimifish/music2db-client/internal/filesystem"
)

const stateFileName = "state.json"

// checkpoint is the persisted document. The timestamp round-trips as
// fractional unix seconds for compatibility with earlier client versions.
type checkpoint struct {
	LastScanTime float64 `json:"last_scan_time"`
}

// Store persists the timestamp of the last fully completed scan. It is the
// sole owner of the checkpoint file; a scan reads it once at the start and
// writes it at most once at a clean end.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a Store keeping its checkpoint under dir.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{
		path:   filepath.Join(dir, stateFileName),
		logger: logger.With(slog.String("component", "state")),
	}
}

// Path returns the checkpoint file location.
func (s *Store) Path() string {
	return s.path
}

// Last returns the last successful scan time, or the zero time when no
// checkpoint exists or the file cannot be read. Corruption is logged and
// treated as "never scanned"; the worst case is a redundant re-scan.
func (s *Store) Last() time.Time {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("reading state file", "path", s.path, "error", err)
		}
		return time.Time{}
	}

	var cp checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		s.logger.Error("corrupt state file, assuming never scanned", "path", s.path, "error", err)
		return time.Time{}
	}
	if cp.LastScanTime <= 0 {
		return time.Time{}
	}

	sec, frac := math.Modf(cp.LastScanTime)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}

// Save persists t as the new checkpoint. Timestamps older than the stored
// one are refused so the checkpoint never moves backwards.
func (s *Store) Save(t time.Time) error {
	if last := s.Last(); !last.IsZero() && t.Before(last) {
		s.logger.Debug("refusing to move checkpoint backwards",
			"stored", last, "proposed", t)
		return nil
	}

	cp := checkpoint{
		LastScanTime: float64(t.UnixNano()) / float64(time.Second),
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	if err := filesystem.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}
