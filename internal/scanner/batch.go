package scanner

import (
	"context"
	"log/slog"

	"github.com/kimifish/music2db-client/internal/catalog"
)

// FlushFunc delivers one batch of track records.
type FlushFunc func(ctx context.Context, tracks []catalog.Track) error

// Batcher accumulates track records and flushes them in bounded batches.
// A failed flush is counted and logged but never aborts the scan; the only
// error Add or FlushRemainder return is the context's.
type Batcher struct {
	size   int
	flush  FlushFunc
	logger *slog.Logger

	tracks     []catalog.Track
	sent       int
	tracksSent int
	failed     int
}

// NewBatcher creates a Batcher flushing every size records.
func NewBatcher(size int, flush FlushFunc, logger *slog.Logger) *Batcher {
	return &Batcher{
		size:   size,
		flush:  flush,
		logger: logger.With(slog.String("component", "batcher")),
		tracks: make([]catalog.Track, 0, size),
	}
}

// Add appends a record to the current batch, flushing when the batch
// reaches the configured maximum.
func (b *Batcher) Add(ctx context.Context, track catalog.Track) error {
	b.tracks = append(b.tracks, track)
	if len(b.tracks) >= b.size {
		return b.flushNow(ctx)
	}
	return nil
}

// FlushRemainder sends a non-empty tail batch. Called once at end of walk.
func (b *Batcher) FlushRemainder(ctx context.Context) error {
	if len(b.tracks) == 0 {
		return nil
	}
	return b.flushNow(ctx)
}

// Pending returns the number of records awaiting delivery.
func (b *Batcher) Pending() int { return len(b.tracks) }

// BatchesSent returns the number of successfully delivered batches.
func (b *Batcher) BatchesSent() int { return b.sent }

// TracksSent returns the number of records in successfully delivered batches.
func (b *Batcher) TracksSent() int { return b.tracksSent }

// BatchesFailed returns the number of batches the server never accepted.
func (b *Batcher) BatchesFailed() int { return b.failed }

func (b *Batcher) flushNow(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	batch := b.tracks
	b.tracks = make([]catalog.Track, 0, b.size)

	if err := b.flush(ctx, batch); err != nil {
		b.failed++
		b.logger.Error("sending tracks batch to server", "tracks", len(batch), "error", err)
		return nil
	}

	b.sent++
	b.tracksSent += len(batch)
	return nil
}
