package scanner

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
)

// Detector decides whether the library changed since the last scan by
// finding the newest modification time under the root.
type Detector struct {
	logger *slog.Logger
}

// NewDetector creates a Detector.
func NewDetector(logger *slog.Logger) *Detector {
	return &Detector{logger: logger.With(slog.String("component", "detector"))}
}

// LatestModification returns the maximum of the root directory's own
// modification time and the modification times of every non-symlink file
// under it. Entries that cannot be stat-ed are logged and excluded; only a
// failure to stat the root itself is an error.
func (d *Detector) LatestModification(root string) (time.Time, error) {
	rootInfo, err := os.Stat(root)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat root: %w", err)
	}
	latest := rootInfo.ModTime()

	var mu sync.Mutex
	conf := &fastwalk.Config{Follow: false}
	err = fastwalk.Walk(conf, root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			d.logger.Warn("checking modifications", "path", path, "error", err)
			return nil
		}
		if entry.IsDir() || entry.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			d.logger.Warn("checking modifications", "path", path, "error", err)
			return nil
		}

		mu.Lock()
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		d.logger.Warn("walking for modification check", "root", root, "error", err)
	}

	return latest, nil
}
