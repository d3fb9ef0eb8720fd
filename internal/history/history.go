// Package history keeps a local record of scan runs in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kimifish/music2db-client/internal/scanner"
)

// Open opens the scan history database at the given path with WAL mode
// enabled, creating the parent directory if needed.
func Open(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging history database: %w", err)
	}

	// Single writer connection for SQLite
	db.SetMaxOpenConns(1)

	return db, nil
}

// Store records scan runs. All methods are best-effort from the scanner's
// point of view: a history failure never affects a scan.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Run is one recorded scan run.
type Run struct {
	ID            string
	Status        string
	Reason        string
	Error         string
	StartedAt     time.Time
	CompletedAt   *time.Time
	FilesSeen     int
	TracksSent    int
	BatchesSent   int
	BatchesFailed int
}

// Begin inserts a new running scan row.
func (s *Store) Begin(ctx context.Context, run *scanner.ScanResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_runs (id, status, started_at) VALUES (?, ?, ?)`,
		run.ID, run.Status, run.StartedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting scan run: %w", err)
	}
	return nil
}

// Finish updates the row for a completed (or skipped/canceled/failed) run.
func (s *Store) Finish(ctx context.Context, run *scanner.ScanResult) error {
	var completed any
	if run.CompletedAt != nil {
		completed = run.CompletedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE scan_runs
		 SET status = ?, reason = ?, error = ?, completed_at = ?,
		     files_seen = ?, tracks_sent = ?, batches_sent = ?, batches_failed = ?
		 WHERE id = ?`,
		run.Status, run.Reason, run.Error, completed,
		run.FilesSeen, run.TracksSent, run.BatchesSent, run.BatchesFailed,
		run.ID)
	if err != nil {
		return fmt.Errorf("updating scan run: %w", err)
	}
	return nil
}

// Recent returns the n most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, reason, error, started_at, completed_at,
		        files_seen, tracks_sent, batches_sent, batches_failed
		 FROM scan_runs ORDER BY started_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying scan runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		var r Run
		var started string
		var completed sql.NullString
		if err := rows.Scan(&r.ID, &r.Status, &r.Reason, &r.Error, &started, &completed,
			&r.FilesSeen, &r.TracksSent, &r.BatchesSent, &r.BatchesFailed); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, started); err == nil {
			r.StartedAt = t
		}
		if completed.Valid {
			if t, err := time.Parse(time.RFC3339Nano, completed.String); err == nil {
				r.CompletedAt = &t
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
