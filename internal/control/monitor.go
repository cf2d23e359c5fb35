// Package control wires the monitor together: cache, interval queue, slot
// tracker, fill worker pool, optional rescan pipeline, and the HTTP server.
package control

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vietddude/slotmon/internal/cache"
	"github.com/vietddude/slotmon/internal/core/config"
	redisclient "github.com/vietddude/slotmon/internal/infra/redis"
	"github.com/vietddude/slotmon/internal/infra/rpc"
	"github.com/vietddude/slotmon/internal/rescan"
	"github.com/vietddude/slotmon/internal/server"
	"github.com/vietddude/slotmon/internal/syncer"
)

// Monitor is the process's liveness unit. The tracker and the fill worker
// pool loop forever; either of them returning while the context is still
// live is unexpected and surfaced on Fatal for main to exit on.
type Monitor struct {
	cfg         *config.AppConfig
	cache       *cache.BlockCache
	queue       *syncer.IntervalQueue
	tracker     *syncer.Tracker
	pool        *syncer.Pool
	feeder      *rescan.Feeder
	redisClient *redisclient.Client
	server      *server.Server
	fatal       chan error
	log         *slog.Logger
}

// NewMonitor creates a monitor with all dependencies initialized.
// Construction cannot fail: the RPC client dials lazily and an unreachable
// Redis degrades to the in-process queue.
func NewMonitor(cfg *config.AppConfig) *Monitor {
	client := rpc.NewClient(cfg.RPC)
	blockCache := cache.New(int(cfg.Monitor.Depth))
	queue := syncer.NewIntervalQueue()

	tracker := syncer.NewTracker(syncer.TrackerConfig{
		Interval: cfg.Monitor.Interval(),
		Depth:    cfg.Monitor.Depth,
	}, client, queue)

	pool := syncer.NewPool(syncer.PoolConfig{
		Workers: cfg.Monitor.Workers,
		Tick:    cfg.Monitor.Interval(),
	}, client, queue, blockCache, tracker)

	// Rescan submission goes through Redis when configured so requests
	// survive restarts and external tooling can enqueue them too;
	// otherwise they land straight on the in-process queue.
	var (
		feeder *rescan.Feeder
		rc     *redisclient.Client
		sink   rescan.Sink = rescan.QueueSink{Queue: queue}
	)
	if cfg.Redis.URL != "" {
		var err error
		rc, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, rescan queue runs in-process", "error", err)
		} else {
			sink = rc
			feeder = rescan.NewFeeder(rescan.DefaultConfig(), rc, queue)
		}
	}

	srv := server.New(cfg.Server.Port, blockCache, client, queue, tracker, sink)

	return &Monitor{
		cfg:         cfg,
		cache:       blockCache,
		queue:       queue,
		tracker:     tracker,
		pool:        pool,
		feeder:      feeder,
		redisClient: rc,
		server:      srv,
		fatal:       make(chan error, 1),
		log:         slog.Default().With("component", "control"),
	}
}

// Start launches all components. It returns immediately; failures of the
// long-running sides are reported on Fatal.
func (m *Monitor) Start(ctx context.Context) error {
	go func() {
		if err := m.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.reportFatal(err)
		}
	}()

	go func() {
		err := m.tracker.Run(ctx)
		if ctx.Err() == nil {
			m.log.Error("Slot tracker ended unexpectedly", "error", err)
			m.reportFatal(errors.New("slot tracker ended unexpectedly"))
		}
	}()

	go func() {
		err := m.pool.Run(ctx)
		if ctx.Err() == nil {
			m.log.Error("Fill worker pool ended unexpectedly", "error", err)
			m.reportFatal(errors.New("fill worker pool ended unexpectedly"))
		}
	}()

	if m.feeder != nil {
		go func() {
			if err := m.feeder.Run(ctx); err != nil && ctx.Err() == nil {
				// Rescan is auxiliary: losing it degrades, not kills.
				m.log.Error("Rescan feeder failed", "error", err)
			}
		}()
	}

	return nil
}

// Fatal reports unexpected termination of a component that should run
// forever. The monitor does not restart dead components.
func (m *Monitor) Fatal() <-chan error {
	return m.fatal
}

// Stop shuts down the HTTP server gracefully and closes Redis. Worker RPC
// calls in flight are abandoned via context cancellation.
func (m *Monitor) Stop(ctx context.Context) error {
	m.log.Info("Stopping monitor...")

	if err := m.server.Stop(ctx); err != nil {
		return err
	}

	if m.redisClient != nil {
		if err := m.redisClient.Close(); err != nil {
			m.log.Warn("Failed to close Redis", "error", err)
		}
	}

	return nil
}

func (m *Monitor) reportFatal(err error) {
	select {
	case m.fatal <- err:
	default:
	}
}
