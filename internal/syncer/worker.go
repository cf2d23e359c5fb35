package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/slotmon/internal/cache"
	"github.com/vietddude/slotmon/internal/metrics"
)

// PoolConfig holds fill worker pool settings.
type PoolConfig struct {
	Workers         int           // concurrent fill workers
	Tick            time.Duration // idle sleep when the queue is empty
	IntervalSize    uint64        // cap on the width of a re-queued gap
	MinIntervalSize uint64        // gaps smaller than this are dropped
}

func (cfg PoolConfig) withDefaults() PoolConfig {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.IntervalSize == 0 {
		cfg.IntervalSize = DefaultIntervalSize
	}
	if cfg.MinIntervalSize == 0 {
		cfg.MinIntervalSize = DefaultMinIntervalSize
	}
	return cfg
}

// Pool is a fixed-size set of fill workers draining the shared interval
// queue. Each worker resolves an interval with one batched getBlocks call,
// caches the confirmed slots, and re-queues the unresolved gaps under the
// min-size and retention-horizon drop rules.
type Pool struct {
	cfg       PoolConfig
	client    ChainClient
	queue     *IntervalQueue
	cache     *cache.BlockCache
	retention Retention
	log       *slog.Logger
}

// NewPool creates a fill worker pool over the shared queue and cache.
func NewPool(
	cfg PoolConfig,
	client ChainClient,
	queue *IntervalQueue,
	blockCache *cache.BlockCache,
	retention Retention,
) *Pool {
	return &Pool{
		cfg:       cfg.withDefaults(),
		client:    client,
		queue:     queue,
		cache:     blockCache,
		retention: retention,
		log:       slog.Default().With("component", "fill"),
	}
}

// Run starts the workers and blocks until ctx is cancelled and all workers
// have exited.
func (p *Pool) Run(ctx context.Context) error {
	p.log.Info("Fill worker pool started", "workers", p.cfg.Workers)

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(ctx, id)
		}(i)
	}
	wg.Wait()

	p.log.Info("Fill worker pool stopped")
	return nil
}

func (p *Pool) worker(ctx context.Context, id int) {
	log := p.log.With("worker", id)
	log.Debug("Fill worker started")

	for {
		if ctx.Err() != nil {
			log.Debug("Fill worker stopped")
			return
		}

		iv, ok := p.queue.Pop()
		if !ok {
			// Empty queue: wait a full tick for the tracker to
			// produce new work.
			sleep(ctx, p.cfg.Tick)
			continue
		}

		p.process(ctx, log, iv)

		// Short sleep between items so a backlog of not-yet-ready
		// intervals does not busy-spin the RPC endpoint.
		sleep(ctx, p.cfg.Tick/PollDivider)
	}
}

// process resolves one interval. On RPC failure the original interval is
// re-queued unchanged and nothing is written to the cache for this attempt.
func (p *Pool) process(ctx context.Context, log *slog.Logger, iv SlotInterval) {
	confirmed, err := p.client.GetBlocks(ctx, iv.Start, iv.End)
	if err != nil {
		log.Error("Failed to resolve interval, re-queueing",
			"start", iv.Start, "end", iv.End, "error", err)
		metrics.IntervalsProcessed.WithLabelValues("requeued").Inc()
		p.queue.Push(iv)
		return
	}

	inserted := 0
	for _, slot := range confirmed {
		if p.cache.Insert(slot) {
			inserted++
		}
	}

	horizon := p.retention.Horizon()
	requeued := 0
	for _, sub := range splitGaps(iv, confirmed, p.cfg.IntervalSize) {
		switch {
		case sub.Size() < p.cfg.MinIntervalSize:
			metrics.SubIntervalsDropped.WithLabelValues("size").Inc()
			log.Debug("Dropped sub-interval below minimum size",
				"start", sub.Start, "end", sub.End, "size", sub.Size())
		case sub.End <= horizon:
			metrics.SubIntervalsDropped.WithLabelValues("horizon").Inc()
			log.Debug("Dropped sub-interval behind retention horizon",
				"start", sub.Start, "end", sub.End, "horizon", horizon)
		default:
			p.queue.Push(sub)
			requeued++
			metrics.SubIntervalsRequeued.Inc()
		}
	}

	metrics.IntervalsProcessed.WithLabelValues("split").Inc()
	log.Debug("Processed interval",
		"start", iv.Start, "end", iv.End,
		"confirmed", len(confirmed), "inserted", inserted, "requeued", requeued)
}

// splitGaps partitions [iv.Start, iv.End] around the ascending confirmed
// slots. Each gap becomes a candidate sub-interval widened to at least
// intervalSize slots (but never past iv.End) so a future re-check covers a
// worthwhile batch; the unresolved tail past the last confirmed slot is
// emitted as-is, including the whole interval when confirmed is empty.
func splitGaps(iv SlotInterval, confirmed []uint64, intervalSize uint64) []SlotInterval {
	var subs []SlotInterval
	pos := iv.Start

	for _, c := range confirmed {
		if c > pos {
			desired := c - 1
			if widened := pos + intervalSize - 1; widened > desired {
				desired = widened
			}
			if desired > iv.End {
				desired = iv.End
			}
			subs = append(subs, SlotInterval{Start: pos, End: desired})
			pos = desired + 1
		} else {
			pos = c + 1
		}
	}

	if pos <= iv.End {
		subs = append(subs, SlotInterval{Start: pos, End: iv.End})
	}

	return subs
}
