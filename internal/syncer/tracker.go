package syncer

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vietddude/slotmon/internal/metrics"
)

// TrackerConfig holds slot tracker settings.
type TrackerConfig struct {
	Interval time.Duration // poll tick period
	Depth    uint64        // monitoring depth: how far behind head work is retained
}

// Tracker polls the chain head on a fixed tick and enqueues the newly
// exposed slot range. It is the only producer of fresh intervals; every
// other interval in the queue is a refinement of one it produced.
//
// The high-water mark is written only here. Workers read it through
// Horizon to bound their re-check retention. The tracker trusts the RPC
// endpoint to report a non-decreasing head; a regression shrinks the
// active window rather than being clamped.
type Tracker struct {
	cfg    TrackerConfig
	client ChainClient
	queue  *IntervalQueue
	last   atomic.Uint64
	log    *slog.Logger
}

// NewTracker creates a slot tracker feeding the given queue.
func NewTracker(cfg TrackerConfig, client ChainClient, queue *IntervalQueue) *Tracker {
	return &Tracker{
		cfg:    cfg,
		client: client,
		queue:  queue,
		log:    slog.Default().With("component", "tracker"),
	}
}

// LastTrackedSlot returns the most recently observed chain head.
func (t *Tracker) LastTrackedSlot() uint64 {
	return t.last.Load()
}

// Horizon returns the oldest slot still within the monitoring depth.
// Intervals ending at or below the horizon are no longer worth re-checking.
func (t *Tracker) Horizon() uint64 {
	last := t.last.Load()
	if last <= t.cfg.Depth {
		return 0
	}
	return last - t.cfg.Depth
}

// Run polls until ctx is cancelled. The first poll happens immediately.
func (t *Tracker) Run(ctx context.Context) error {
	t.log.Info("Slot tracker started", "interval", t.cfg.Interval, "depth", t.cfg.Depth)

	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	for {
		t.tick(ctx)

		select {
		case <-ctx.Done():
			t.log.Info("Slot tracker stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// tick fetches the current head and enqueues [lastTracked+1, head], floored
// at head-Depth. An RPC failure skips the tick; the next one retries.
func (t *Tracker) tick(ctx context.Context) {
	head, err := t.client.GetSlot(ctx)
	if err != nil {
		t.log.Error("Failed to fetch latest slot", "error", err)
		return
	}

	metrics.ChainLatestSlot.Set(float64(head))

	begin := t.last.Load() + 1
	if head > t.cfg.Depth && begin < head-t.cfg.Depth {
		begin = head - t.cfg.Depth
	}

	if begin <= head {
		iv := SlotInterval{Start: begin, End: head}
		t.queue.Push(iv)
		t.log.Debug("Enqueued head interval",
			"start", iv.Start, "end", iv.End, "size", iv.Size())
	}

	// Advance unconditionally, even when no interval was produced.
	t.last.Store(head)
	t.log.Debug("Updated latest slot", "slot", head)
}
