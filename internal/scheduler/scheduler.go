// Package scheduler triggers scans on a recurring daily schedule.
package scheduler

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
)

// Service wraps a cron runner with a single daily scan entry.
type Service struct {
	cron     *cron.Cron
	scanTime string
	logger   *slog.Logger
}

// New creates a scheduler that calls trigger every day at scanTime
// ("HH:MM"). Overlap with a running scan is handled by the scan engine's
// single-flight guard, not here.
func New(scanTime string, trigger func(), logger *slog.Logger) (*Service, error) {
	spec, err := cronSpec(scanTime)
	if err != nil {
		return nil, err
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, trigger); err != nil {
		return nil, fmt.Errorf("adding cron entry: %w", err)
	}

	return &Service{
		cron:     c,
		scanTime: scanTime,
		logger:   logger.With(slog.String("component", "scheduler")),
	}, nil
}

// Start begins triggering in its own goroutine.
func (s *Service) Start() {
	s.logger.Info("daily scan scheduled", "time", s.scanTime)
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running trigger to return.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// cronSpec converts a "HH:MM" wall clock time into a daily cron spec.
func cronSpec(scanTime string) (string, error) {
	parts := strings.Split(scanTime, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid scan time %q: want HH:MM", scanTime)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid scan time %q: bad hour", scanTime)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid scan time %q: bad minute", scanTime)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
