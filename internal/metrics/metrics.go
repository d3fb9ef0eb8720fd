// Package metrics defines the Prometheus collectors for the client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scan metrics
var (
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "music2db_scans_total",
			Help: "Total number of scan attempts by outcome",
		},
		[]string{"result"},
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "music2db_scan_duration_seconds",
			Help:    "Duration of completed scans in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		},
	)

	ScanRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "music2db_scan_running",
			Help: "Whether a scan is currently in progress",
		},
	)

	LastScanTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "music2db_last_scan_timestamp_seconds",
			Help: "Unix timestamp of the last fully completed scan",
		},
	)
)

// Delivery metrics
var (
	FilesSeen = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "music2db_files_seen_total",
			Help: "Total number of candidate files examined",
		},
	)

	TracksSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "music2db_tracks_sent_total",
			Help: "Total number of track records delivered to the catalog",
		},
	)

	BatchesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "music2db_batches_sent_total",
			Help: "Total number of batches delivered to the catalog",
		},
	)

	BatchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "music2db_batch_failures_total",
			Help: "Total number of batches that could not be delivered",
		},
	)
)

// Scan outcome label values.
const (
	ResultCompleted = "completed"
	ResultSkipped   = "skipped"
	ResultUnhealthy = "unhealthy"
	ResultCanceled  = "canceled"
	ResultFailed    = "failed"
)

// InitializeScanResults pre-populates the result label combinations so all
// series are exported from the first scrape.
func InitializeScanResults() {
	for _, r := range []string{ResultCompleted, ResultSkipped, ResultUnhealthy, ResultCanceled, ResultFailed} {
		ScansTotal.WithLabelValues(r)
	}
}
