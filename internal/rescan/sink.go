package rescan

import (
	"context"

	"github.com/vietddude/slotmon/internal/core/domain"
	"github.com/vietddude/slotmon/internal/syncer"
)

// Sink accepts validated rescan requests for later processing. The Redis
// client satisfies it directly; QueueSink is the in-process fallback.
type Sink interface {
	Submit(ctx context.Context, req domain.RescanRequest) error
}

// QueueSink pushes rescan requests straight onto the interval queue, used
// when Redis is not configured.
type QueueSink struct {
	Queue *syncer.IntervalQueue
}

func (s QueueSink) Submit(_ context.Context, req domain.RescanRequest) error {
	iv := syncer.SlotInterval{Start: req.Start, End: req.End}
	for _, chunk := range iv.Split(syncer.DefaultIntervalSize) {
		s.Queue.Push(chunk)
	}
	return nil
}
