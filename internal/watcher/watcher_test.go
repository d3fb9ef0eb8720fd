package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStart_DebouncedTrigger(t *testing.T) {
	root := t.TempDir()
	triggered := make(chan struct{}, 1)

	s := NewService(root, func() {
		select {
		case triggered <- struct{}{}:
		default:
		}
	}, discardLogger())
	s.SetDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Start(ctx)
	}()

	// Give the watcher a moment to register before producing events.
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 3; i++ {
		name := filepath.Join(root, "track"+string(rune('a'+i))+".mp3")
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-triggered:
	case <-time.After(5 * time.Second):
		t.Fatal("no trigger after filesystem events")
	}

	// A burst coalesces into one trigger; nothing else should arrive.
	select {
	case <-triggered:
		t.Error("second trigger for a single burst")
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop on cancellation")
	}
}

func TestStart_MissingRootReturns(t *testing.T) {
	s := NewService(filepath.Join(t.TempDir(), "gone"), func() {
		t.Error("trigger called for a missing root")
	}, discardLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Start(t.Context())
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not return for a missing root")
	}
}
