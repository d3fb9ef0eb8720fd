package scanner

import "time"

// Scan statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusCanceled  = "canceled"
	StatusFailed    = "failed"
)

// ScanResult describes one scan invocation and its counters.
type ScanResult struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Reason      string     `json:"reason,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	FilesSeen     int `json:"files_seen"`
	FilesSkipped  int `json:"files_skipped"`
	FilesFailed   int `json:"files_failed"`
	TracksQueued  int `json:"tracks_queued"`
	TracksSent    int `json:"tracks_sent"`
	BatchesSent   int `json:"batches_sent"`
	BatchesFailed int `json:"batches_failed"`
}
