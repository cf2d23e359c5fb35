package cache

import (
	"log/slog"
	"sync"

	"github.com/vietddude/slotmon/internal/metrics"
)

type entry struct {
	slot uint64
	ref  bool
}

// BlockCache is a bounded set of confirmed slot numbers. Capacity is fixed
// at construction; once full, inserting a new slot evicts an approximately
// least-recently-touched one using a CLOCK (second-chance) sweep.
//
// The cache is not a source of truth: confirmation is idempotent, so a slot
// that falls out under eviction pressure is simply re-derived by the next
// single-slot RPC check.
type BlockCache struct {
	mu       sync.Mutex
	capacity int
	index    map[uint64]int // slot -> position in entries
	entries  []entry
	hand     int
}

// New creates a block cache holding at most capacity slots.
func New(capacity int) *BlockCache {
	if capacity < 1 {
		capacity = 1
	}
	slog.Info("Created block cache", "capacity", capacity)
	return &BlockCache{
		capacity: capacity,
		index:    make(map[uint64]int, capacity),
		entries:  make([]entry, 0, capacity),
	}
}

// Contains reports whether slot is a known-confirmed member. A hit refreshes
// the entry's reference bit, so slots the HTTP path keeps asking about stay
// resident.
func (c *BlockCache) Contains(slot uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[slot]
	if ok {
		c.entries[i].ref = true
	}
	return ok
}

// Insert adds slot to the cache, evicting an approximately
// least-recently-touched entry when at capacity. It returns true iff the
// slot was newly added; re-inserting a resident slot only refreshes it.
func (c *BlockCache) Insert(slot uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i, ok := c.index[slot]; ok {
		c.entries[i].ref = true
		return false
	}

	// New entries start with a cleared reference bit: only a later touch
	// (Contains or duplicate Insert) earns a second chance in the sweep.
	if len(c.entries) < c.capacity {
		c.index[slot] = len(c.entries)
		c.entries = append(c.entries, entry{slot: slot})
		metrics.CacheSize.Set(float64(len(c.entries)))
		return true
	}

	// CLOCK sweep: clear reference bits until an unreferenced entry is
	// found, then replace it. Terminates within two full rotations.
	for {
		e := &c.entries[c.hand]
		if e.ref {
			e.ref = false
			c.hand = (c.hand + 1) % c.capacity
			continue
		}
		delete(c.index, e.slot)
		e.slot = slot
		e.ref = false
		c.index[slot] = c.hand
		c.hand = (c.hand + 1) % c.capacity
		return true
	}
}

// Len returns the number of cached slots.
func (c *BlockCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Capacity returns the fixed capacity chosen at construction.
func (c *BlockCache) Capacity() int {
	return c.capacity
}

// IsEmpty reports whether the cache holds no slots.
func (c *BlockCache) IsEmpty() bool {
	return c.Len() == 0
}

// Clear removes all entries. Administrative; the steady-state pipeline
// never calls it.
func (c *BlockCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.index = make(map[uint64]int, c.capacity)
	c.entries = c.entries[:0]
	c.hand = 0
	metrics.CacheSize.Set(0)
	slog.Info("Cleared block cache")
}
