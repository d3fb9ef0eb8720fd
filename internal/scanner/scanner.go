// Package scanner implements the incremental scan-and-sync engine: change
// detection, candidate enumeration, batching and checkpoint commit.
package scanner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kimifish/music2db-client/internal/catalog"
	"github.com/kimifish/music2db-client/internal/config"
	"github.com/kimifish/music2db-client/internal/metadata"
	"github.com/kimifish/music2db-client/internal/metrics"
)

// ErrScanInProgress is returned when a trigger arrives while a scan runs.
var ErrScanInProgress = errors.New("scan already in progress")

// CatalogClient is the slice of the catalog API the engine needs.
type CatalogClient interface {
	Health(ctx context.Context) error
	SendBatch(ctx context.Context, tracks []catalog.Track) error
}

// CheckpointStore persists the last successful scan time.
type CheckpointStore interface {
	Last() time.Time
	Save(t time.Time) error
}

// HistoryRecorder records scan runs for later inspection.
type HistoryRecorder interface {
	Begin(ctx context.Context, run *ScanResult) error
	Finish(ctx context.Context, run *ScanResult) error
}

// Service sequences health check, change detection, walking, batching and
// checkpoint commit into one cancellable scan operation. Scans never run
// concurrently; a trigger during a running scan is rejected.
type Service struct {
	cfg       *config.Config
	catalog   CatalogClient
	extractor metadata.Extractor
	state     CheckpointStore
	detector  *Detector
	walker    *Walker
	history   HistoryRecorder
	logger    *slog.Logger

	mu      sync.Mutex
	current *ScanResult
}

// NewService creates the scan orchestrator.
func NewService(cfg *config.Config, cat CatalogClient, extractor metadata.Extractor, store CheckpointStore, logger *slog.Logger) *Service {
	return &Service{
		cfg:       cfg,
		catalog:   cat,
		extractor: extractor,
		state:     store,
		detector:  NewDetector(logger),
		walker:    NewWalker(cfg.Music, logger),
		logger:    logger.With(slog.String("component", "scanner")),
	}
}

// SetHistory attaches a scan-run recorder.
func (s *Service) SetHistory(h HistoryRecorder) {
	s.history = h
}

// Status returns a snapshot of the current or most recent scan result.
// The returned value is a copy and safe to read without synchronization.
func (s *Service) Status() *ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	snapshot := *s.current
	return &snapshot
}

// Run executes one scan synchronously. It returns ErrScanInProgress when
// another scan is already running; every other outcome, including skips
// and cancellation, is reported through the returned ScanResult.
func (s *Service) Run(ctx context.Context) (*ScanResult, error) {
	s.mu.Lock()
	if s.current != nil && s.current.Status == StatusRunning {
		s.mu.Unlock()
		return nil, ErrScanInProgress
	}
	result := &ScanResult{
		ID:        uuid.New().String(),
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
	s.current = result
	s.mu.Unlock()

	metrics.ScanRunning.Set(1)
	defer metrics.ScanRunning.Set(0)

	if s.history != nil {
		if err := s.history.Begin(ctx, s.Status()); err != nil {
			s.logger.Warn("recording scan start", "error", err)
		}
	}

	s.runScan(ctx, result)

	s.mu.Lock()
	now := time.Now()
	result.CompletedAt = &now
	snapshot := *result
	s.mu.Unlock()

	s.finishRun(&snapshot)
	return &snapshot, nil
}

func (s *Service) runScan(ctx context.Context, result *ScanResult) {
	// Change detection comes first: an unchanged library must cause no
	// network traffic at all, not even a health check.
	lastScan := s.state.Last()
	latest, err := s.detector.LatestModification(s.cfg.Music.Path)
	if err != nil {
		s.logger.Error("music directory is not accessible", "path", s.cfg.Music.Path, "error", err)
		s.fail(result, err)
		return
	}
	if !latest.After(lastScan) {
		s.logger.Info("no changes in music library since last scan, skipping")
		s.skip(result, "no changes since last scan")
		return
	}

	if err := s.catalog.Health(ctx); err != nil {
		s.logger.Error("server is not healthy, skipping scan", "error", err)
		s.update(result, func(r *ScanResult) {
			r.Status = StatusSkipped
			r.Reason = "server unhealthy"
			r.Error = err.Error()
		})
		return
	}

	s.logger.Info("changes detected, starting music directory scan",
		"path", s.cfg.Music.Path, "last_scan", lastScan)

	batcher := NewBatcher(s.cfg.Scanner.BatchSize, s.catalog.SendBatch, s.logger)

	walkErr := s.walker.Walk(ctx, func(relPath, fullPath string) error {
		s.update(result, func(r *ScanResult) { r.FilesSeen++ })
		metrics.FilesSeen.Inc()

		fields, err := s.extractor.Extract(fullPath)
		if err != nil {
			s.logger.Error("processing file", "file", relPath, "error", err)
			s.update(result, func(r *ScanResult) { r.FilesFailed++ })
			return nil
		}
		if len(fields) == 0 {
			s.update(result, func(r *ScanResult) { r.FilesSkipped++ })
			return nil
		}

		s.update(result, func(r *ScanResult) { r.TracksQueued++ })
		return batcher.Add(ctx, catalog.Track{FilePath: relPath, Metadata: fields})
	})
	if walkErr == nil {
		walkErr = batcher.FlushRemainder(ctx)
	}

	s.collectCounters(result, batcher)

	if walkErr != nil {
		// Only cancellation unwinds the walk; the checkpoint stays
		// untouched so the next scan re-evaluates the same window.
		s.logger.Info("termination requested, stopping scan")
		s.update(result, func(r *ScanResult) {
			r.Status = StatusCanceled
			r.Reason = "cancellation requested"
		})
		return
	}

	s.commitCheckpoint(result, batcher)
	s.update(result, func(r *ScanResult) { r.Status = StatusCompleted })
}

// commitCheckpoint persists the scan start time so files modified while
// the scan was running are picked up again next time. A persist failure
// only costs a redundant future re-scan and is not treated as fatal.
func (s *Service) commitCheckpoint(result *ScanResult, batcher *Batcher) {
	if s.cfg.Scanner.RequireDelivery && batcher.BatchesFailed() > 0 {
		s.logger.Warn("not saving scan checkpoint, some batches were not delivered",
			"failed_batches", batcher.BatchesFailed())
		return
	}

	if err := s.state.Save(result.StartedAt); err != nil {
		s.logger.Error("saving scan state", "error", err)
		return
	}
	metrics.LastScanTimestamp.Set(float64(result.StartedAt.Unix()))
}

func (s *Service) collectCounters(result *ScanResult, batcher *Batcher) {
	s.update(result, func(r *ScanResult) {
		r.TracksSent = batcher.TracksSent()
		r.BatchesSent = batcher.BatchesSent()
		r.BatchesFailed = batcher.BatchesFailed()
	})
	metrics.TracksSent.Add(float64(batcher.TracksSent()))
	metrics.BatchesSent.Add(float64(batcher.BatchesSent()))
	metrics.BatchFailures.Add(float64(batcher.BatchesFailed()))
}

func (s *Service) finishRun(snapshot *ScanResult) {
	metrics.ScansTotal.WithLabelValues(outcomeLabel(snapshot)).Inc()
	if snapshot.Status == StatusCompleted {
		metrics.ScanDuration.Observe(snapshot.CompletedAt.Sub(snapshot.StartedAt).Seconds())
		s.logger.Info("scan complete",
			"files", snapshot.FilesSeen,
			"tracks_sent", snapshot.TracksSent,
			"batches", snapshot.BatchesSent,
			"failed_batches", snapshot.BatchesFailed,
			"duration", snapshot.CompletedAt.Sub(snapshot.StartedAt))
	}

	if s.history != nil {
		if err := s.history.Finish(context.Background(), snapshot); err != nil {
			s.logger.Warn("recording scan result", "error", err)
		}
	}
}

func (s *Service) update(result *ScanResult, fn func(*ScanResult)) {
	s.mu.Lock()
	fn(result)
	s.mu.Unlock()
}

func (s *Service) skip(result *ScanResult, reason string) {
	s.update(result, func(r *ScanResult) {
		r.Status = StatusSkipped
		r.Reason = reason
	})
}

func (s *Service) fail(result *ScanResult, err error) {
	s.update(result, func(r *ScanResult) {
		r.Status = StatusFailed
		r.Error = err.Error()
	})
}

func outcomeLabel(r *ScanResult) string {
	switch r.Status {
	case StatusCompleted:
		return metrics.ResultCompleted
	case StatusCanceled:
		return metrics.ResultCanceled
	case StatusFailed:
		return metrics.ResultFailed
	case StatusSkipped:
		if r.Reason == "server unhealthy" {
			return metrics.ResultUnhealthy
		}
		return metrics.ResultSkipped
	}
	return r.Status
}
