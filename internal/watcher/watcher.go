// Package watcher triggers scans when the music root changes on disk.
package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 30 * time.Second

// Service watches the music library root and coalesces filesystem events
// into scan triggers. Events arriving in quick succession (a file copy in
// progress, a batch move) debounce into a single trigger.
type Service struct {
	root     string
	trigger  func()
	logger   *slog.Logger
	debounce time.Duration
}

// NewService creates a filesystem watcher for the given root.
func NewService(root string, trigger func(), logger *slog.Logger) *Service {
	return &Service{
		root:     root,
		trigger:  trigger,
		logger:   logger.With(slog.String("component", "fs-watcher")),
		debounce: defaultDebounce,
	}
}

// SetDebounce overrides the default debounce interval (for testing).
func (s *Service) SetDebounce(d time.Duration) {
	s.debounce = d
}

// Start blocks until ctx is canceled, dispatching debounced scan triggers.
// If fsnotify is unavailable the service logs and returns; the daily
// schedule still covers the library.
func (s *Service) Start(ctx context.Context) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("fsnotify unavailable, relying on scheduled scans only", "error", err)
		return
	}
	defer w.Close() //nolint:errcheck

	if err := w.Add(s.root); err != nil {
		s.logger.Warn("watching music root failed, relying on scheduled scans only",
			"path", s.root, "error", err)
		return
	}

	s.logger.Info("filesystem watcher starting", "path", s.root, "debounce", s.debounce)

	// Debounce timer for coalescing events into a single trigger.
	// Starts stopped; reset on each event.
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	triggerPending := false

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("filesystem watcher stopping")
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			s.logger.Debug("filesystem event", "op", ev.Op.String(), "path", ev.Name)
			if triggerPending && !debounceTimer.Stop() {
				<-debounceTimer.C
			}
			debounceTimer.Reset(s.debounce)
			triggerPending = true

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("filesystem watcher error", "error", err)

		case <-debounceTimer.C:
			triggerPending = false
			s.logger.Info("filesystem changes settled, triggering scan")
			s.trigger()
		}
	}
}
