// Package syncer implements the interval-based slot synchronization engine:
// a tracker that follows the chain head, a shared queue of candidate slot
// intervals, and a pool of fill workers that batch-verify intervals against
// the RPC endpoint and re-queue the unresolved remainders.
package syncer

import (
	"context"
	"time"
)

const (
	// DefaultWorkers is the fill worker count when none is configured.
	DefaultWorkers = 5

	// DefaultIntervalSize caps the width of a re-queued gap so each
	// re-check stays a single cheap RPC call.
	DefaultIntervalSize = 100

	// DefaultMinIntervalSize is the smallest gap still worth a future
	// round trip.
	DefaultMinIntervalSize = 5

	// PollDivider sets the short worker sleep to a fraction of the
	// monitor tick, keeping the queue drained without hammering the RPC
	// endpoint.
	PollDivider = 10
)

// ChainClient is the slice of the chain RPC surface the syncer consumes.
// GetBlocks returns the ascending confirmed slot numbers within
// [start, end]; unconfirmed slots are simply absent.
type ChainClient interface {
	GetSlot(ctx context.Context) (uint64, error)
	GetBlocks(ctx context.Context, start, end uint64) ([]uint64, error)
}

// Retention exposes the oldest slot still worth re-checking. Sub-intervals
// ending at or below the horizon are stale history and get dropped.
type Retention interface {
	Horizon() uint64
}

// sleep waits for d or until ctx is cancelled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
