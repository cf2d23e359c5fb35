// Package rescan drains operator-submitted slot ranges from Redis into the
// interval queue, where the normal fill worker policy takes over.
package rescan

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/slotmon/internal/core/domain"
	"github.com/vietddude/slotmon/internal/syncer"
)

// RequestSource yields pending rescan requests. Satisfied by the Redis
// client; tests substitute an in-memory fake.
type RequestSource interface {
	PopRequest(ctx context.Context) (domain.RescanRequest, bool, error)
}

// Config holds feeder settings.
type Config struct {
	EmptySleep time.Duration // sleep when Redis has no requests
	BatchSize  int           // max requests drained per pass
	ChunkSize  uint64        // max slots per queued interval
}

// DefaultConfig returns default feeder configuration.
func DefaultConfig() Config {
	return Config{
		EmptySleep: 10 * time.Second,
		BatchSize:  32,
		ChunkSize:  syncer.DefaultIntervalSize,
	}
}

// Feeder moves rescan requests onto the interval queue.
type Feeder struct {
	cfg    Config
	source RequestSource
	queue  *syncer.IntervalQueue
	log    *slog.Logger
}

// NewFeeder creates a feeder draining source into queue.
func NewFeeder(cfg Config, source RequestSource, queue *syncer.IntervalQueue) *Feeder {
	return &Feeder{
		cfg:    cfg,
		source: source,
		queue:  queue,
		log:    slog.Default().With("component", "rescan"),
	}
}

// Run drains requests until ctx is cancelled.
func (f *Feeder) Run(ctx context.Context) error {
	f.log.Info("Rescan feeder started")

	for {
		select {
		case <-ctx.Done():
			f.log.Info("Rescan feeder stopped")
			return nil
		default:
		}

		queued, err := f.drain(ctx)
		if err != nil {
			f.log.Error("Failed to drain rescan requests", "error", err)
		}
		if queued == 0 {
			select {
			case <-ctx.Done():
			case <-time.After(f.cfg.EmptySleep):
			}
		}
	}
}

// drain pops up to BatchSize requests, merges overlapping ranges, and
// queues them in ChunkSize pieces. Invalid requests are discarded. A pop
// error ends the batch but whatever was already popped still gets queued:
// popped requests are gone from Redis, so dropping them here would lose
// them for good.
func (f *Feeder) drain(ctx context.Context) (int, error) {
	var intervals []syncer.SlotInterval
	var popErr error

	for len(intervals) < f.cfg.BatchSize {
		req, found, err := f.source.PopRequest(ctx)
		if err != nil {
			popErr = err
			break
		}
		if !found {
			break
		}
		if err := req.Validate(); err != nil {
			f.log.Warn("Discarding invalid rescan request", "id", req.ID, "error", err)
			continue
		}
		intervals = append(intervals, syncer.SlotInterval{Start: req.Start, End: req.End})
	}

	if len(intervals) == 0 {
		return 0, popErr
	}

	queued := 0
	for _, iv := range syncer.MergeIntervals(intervals) {
		for _, chunk := range iv.Split(f.cfg.ChunkSize) {
			f.queue.Push(chunk)
			queued++
		}
	}

	f.log.Info("Queued rescan intervals", "requests", len(intervals), "intervals", queued)
	return queued, popErr
}
