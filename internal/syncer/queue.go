package syncer

import (
	"sync"

	"github.com/vietddude/slotmon/internal/metrics"
)

// IntervalQueue is a multi-producer multi-consumer FIFO of slot intervals.
// It is logically unbounded: growth is controlled upstream by the min-size
// and retention-horizon drop rules, not by queue capacity. Pop never
// blocks; consumers poll with idle sleeps, which keeps shutdown trivial.
type IntervalQueue struct {
	mu    sync.Mutex
	items []SlotInterval
}

// NewIntervalQueue creates an empty interval queue.
func NewIntervalQueue() *IntervalQueue {
	return &IntervalQueue{}
}

// Push appends an interval to the tail. It never blocks.
func (q *IntervalQueue) Push(iv SlotInterval) {
	q.mu.Lock()
	q.items = append(q.items, iv)
	metrics.QueueDepth.Set(float64(len(q.items)))
	q.mu.Unlock()
}

// Pop removes and returns the head interval. The second return value is
// false when the queue is empty.
func (q *IntervalQueue) Pop() (SlotInterval, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return SlotInterval{}, false
	}

	iv := q.items[0]
	q.items = q.items[1:]
	metrics.QueueDepth.Set(float64(len(q.items)))
	return iv, true
}

// Len returns the number of pending intervals.
func (q *IntervalQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
