package history

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/kimifish/music2db-client/internal/scanner"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestOpen_CreatesParentDir(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "deep", "dir", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	db.Close()
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestBeginFinishRecent(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := t.Context()

	started := time.Date(2026, 8, 30, 3, 0, 0, 0, time.UTC)
	run := &scanner.ScanResult{
		ID:        "run-1",
		Status:    scanner.StatusRunning,
		StartedAt: started,
	}
	if err := store.Begin(ctx, run); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	completed := started.Add(42 * time.Second)
	run.Status = scanner.StatusCompleted
	run.CompletedAt = &completed
	run.FilesSeen = 10
	run.TracksSent = 8
	run.BatchesSent = 1
	if err := store.Finish(ctx, run); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	runs, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}

	got := runs[0]
	if got.ID != "run-1" || got.Status != scanner.StatusCompleted {
		t.Errorf("run = %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(completed) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, completed)
	}
	if got.FilesSeen != 10 || got.TracksSent != 8 || got.BatchesSent != 1 {
		t.Errorf("counters = %+v", got)
	}
}

func TestRecent_NewestFirstAndLimited(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := t.Context()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := &scanner.ScanResult{
			ID:        string(rune('a' + i)),
			Status:    scanner.StatusCompleted,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := store.Begin(ctx, run); err != nil {
			t.Fatalf("Begin: %v", err)
		}
	}

	runs, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("len(runs) = %d, want 3", len(runs))
	}
	if runs[0].ID != "e" || runs[2].ID != "c" {
		t.Errorf("order = [%s %s %s], want [e d c]", runs[0].ID, runs[1].ID, runs[2].ID)
	}
}

func TestFinish_UnknownRunIsNoop(t *testing.T) {
	store := NewStore(openTestDB(t))
	run := &scanner.ScanResult{ID: "ghost", Status: scanner.StatusFailed, StartedAt: time.Now()}
	if err := store.Finish(t.Context(), run); err != nil {
		t.Errorf("Finish: %v", err)
	}
}
