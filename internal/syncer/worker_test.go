package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/slotmon/internal/cache"
)

type fixedHorizon uint64

func (h fixedHorizon) Horizon() uint64 { return uint64(h) }

func newTestPool(
	cfg PoolConfig,
	client ChainClient,
	queue *IntervalQueue,
	c *cache.BlockCache,
	horizon fixedHorizon,
) *Pool {
	if cfg.Tick == 0 {
		cfg.Tick = 10 * time.Millisecond
	}
	return NewPool(cfg, client, queue, c, horizon)
}

func TestSplitGapsUnitWidth(t *testing.T) {
	iv := SlotInterval{Start: 100, End: 105}
	subs := splitGaps(iv, []uint64{100, 102, 104}, 1)

	want := []SlotInterval{
		{Start: 101, End: 101},
		{Start: 103, End: 103},
		{Start: 105, End: 105},
	}
	if len(subs) != len(want) {
		t.Fatalf("splitGaps returned %d sub-intervals, want %d: %v", len(subs), len(want), subs)
	}
	for i, sub := range subs {
		if sub != want[i] {
			t.Errorf("subs[%d] = %v, want %v", i, sub, want[i])
		}
	}
}

func TestSplitGapsWidensToIntervalSize(t *testing.T) {
	// With a wide cap the first gap swallows the rest of the parent so
	// one re-check covers the whole remainder.
	iv := SlotInterval{Start: 100, End: 105}
	subs := splitGaps(iv, []uint64{100, 102, 104}, 100)

	want := []SlotInterval{{Start: 101, End: 105}}
	if len(subs) != 1 || subs[0] != want[0] {
		t.Errorf("splitGaps = %v, want %v", subs, want)
	}
}

func TestSplitGapsEmptyConfirmed(t *testing.T) {
	iv := SlotInterval{Start: 100, End: 105}
	subs := splitGaps(iv, nil, 1)

	if len(subs) != 1 || subs[0] != iv {
		t.Errorf("splitGaps with no confirmed slots = %v, want [%v]", subs, iv)
	}
}

func TestSplitGapsAllConfirmed(t *testing.T) {
	iv := SlotInterval{Start: 100, End: 103}
	subs := splitGaps(iv, []uint64{100, 101, 102, 103}, 1)

	if len(subs) != 0 {
		t.Errorf("splitGaps with fully confirmed interval = %v, want none", subs)
	}
}

func TestSplitGapsTail(t *testing.T) {
	iv := SlotInterval{Start: 10, End: 20}
	subs := splitGaps(iv, []uint64{10, 11, 12}, 1)

	want := []SlotInterval{{Start: 13, End: 20}}
	if len(subs) != 1 || subs[0] != want[0] {
		t.Errorf("splitGaps = %v, want %v", subs, want)
	}
}

// With unit interval size the emitted sub-intervals plus the confirmed
// slots must exactly partition the parent: no overlap, no omission.
func TestSplitGapsCoversParent(t *testing.T) {
	cases := []struct {
		iv        SlotInterval
		confirmed []uint64
	}{
		{SlotInterval{Start: 0, End: 9}, []uint64{0, 3, 4, 9}},
		{SlotInterval{Start: 50, End: 60}, []uint64{55}},
		{SlotInterval{Start: 7, End: 7}, nil},
		{SlotInterval{Start: 7, End: 7}, []uint64{7}},
		{SlotInterval{Start: 1, End: 20}, []uint64{1, 2, 3, 18, 19, 20}},
	}

	for _, tc := range cases {
		covered := make(map[uint64]int)
		for _, c := range tc.confirmed {
			covered[c]++
		}
		for _, sub := range splitGaps(tc.iv, tc.confirmed, 1) {
			for s := sub.Start; s <= sub.End; s++ {
				covered[s]++
			}
		}

		for s := tc.iv.Start; s <= tc.iv.End; s++ {
			if covered[s] != 1 {
				t.Errorf("case %v/%v: slot %d covered %d times, want exactly once",
					tc.iv, tc.confirmed, s, covered[s])
			}
		}
		if len(covered) != int(tc.iv.Size()) {
			t.Errorf("case %v/%v: covered %d slots, want %d",
				tc.iv, tc.confirmed, len(covered), tc.iv.Size())
		}
	}
}

func TestProcessCachesConfirmedAndRequeuesGaps(t *testing.T) {
	client := &fakeChainClient{blocks: []uint64{100, 102, 104}}
	queue := NewIntervalQueue()
	blockCache := cache.New(100)
	pool := newTestPool(PoolConfig{IntervalSize: 1, MinIntervalSize: 1}, client, queue, blockCache, 0)

	pool.process(context.Background(), pool.log, SlotInterval{Start: 100, End: 105})

	for _, slot := range []uint64{100, 102, 104} {
		if !blockCache.Contains(slot) {
			t.Errorf("confirmed slot %d missing from cache", slot)
		}
	}
	for _, slot := range []uint64{101, 103, 105} {
		if blockCache.Contains(slot) {
			t.Errorf("unconfirmed slot %d should not be cached", slot)
		}
	}

	if queue.Len() != 3 {
		t.Errorf("queue.Len() = %d, want 3 re-queued gaps", queue.Len())
	}
}

func TestProcessDropsBelowMinSize(t *testing.T) {
	client := &fakeChainClient{blocks: []uint64{100, 102, 104}}
	queue := NewIntervalQueue()
	blockCache := cache.New(100)
	pool := newTestPool(PoolConfig{IntervalSize: 1, MinIntervalSize: 5}, client, queue, blockCache, 0)

	pool.process(context.Background(), pool.log, SlotInterval{Start: 100, End: 105})

	if queue.Len() != 0 {
		t.Errorf("queue.Len() = %d, want 0: single-slot gaps are below the minimum", queue.Len())
	}
}

func TestProcessDropsBehindHorizon(t *testing.T) {
	client := &fakeChainClient{} // nothing confirmed
	queue := NewIntervalQueue()
	blockCache := cache.New(100)
	// lastTrackedSlot=1000, depth=50 -> horizon 950.
	pool := newTestPool(PoolConfig{IntervalSize: 1, MinIntervalSize: 1}, client, queue, blockCache, 950)

	pool.process(context.Background(), pool.log, SlotInterval{Start: 940, End: 945})
	if queue.Len() != 0 {
		t.Errorf("queue.Len() = %d, want 0: [940,945] ends at or behind horizon 950", queue.Len())
	}

	pool.process(context.Background(), pool.log, SlotInterval{Start: 951, End: 960})
	if queue.Len() != 1 {
		t.Fatalf("queue.Len() = %d, want 1: [951,960] is inside the horizon", queue.Len())
	}
	iv, _ := queue.Pop()
	if (iv != SlotInterval{Start: 951, End: 960}) {
		t.Errorf("re-queued %v, want [951,960]", iv)
	}
}

func TestProcessRequeuesOriginalOnRPCFailure(t *testing.T) {
	client := &fakeChainClient{blockErr: errors.New("rpc down")}
	queue := NewIntervalQueue()
	blockCache := cache.New(100)
	pool := newTestPool(PoolConfig{}, client, queue, blockCache, 0)

	original := SlotInterval{Start: 700, End: 800}
	pool.process(context.Background(), pool.log, original)

	iv, ok := queue.Pop()
	if !ok {
		t.Fatal("failed interval was not re-queued")
	}
	if iv != original {
		t.Errorf("re-queued %v, want original %v unchanged", iv, original)
	}
	if !blockCache.IsEmpty() {
		t.Error("no cache writes should happen on a failed attempt")
	}
}

// Sustained RPC failure must not grow the queue: each failed attempt puts
// back exactly the interval it popped. Once the endpoint recovers, the
// retained work either resolves or falls to the drop rules.
func TestQueueDepthBoundedUnderRPCFaults(t *testing.T) {
	client := &fakeChainClient{blockErr: errors.New("rpc down")}
	queue := NewIntervalQueue()
	blockCache := cache.New(200)
	pool := newTestPool(PoolConfig{IntervalSize: 1, MinIntervalSize: 1}, client, queue, blockCache, 0)

	queue.Push(SlotInterval{Start: 100, End: 149})
	for i := 0; i < 20; i++ {
		iv, ok := queue.Pop()
		if !ok {
			t.Fatalf("queue empty after %d failed attempts", i)
		}
		pool.process(context.Background(), pool.log, iv)
		if queue.Len() != 1 {
			t.Fatalf("queue.Len() = %d after %d failed attempts, want 1", queue.Len(), i+1)
		}
	}

	// Endpoint recovers and confirms the full range: the retained interval
	// resolves completely and the queue empties.
	client.blockErr = nil
	for s := uint64(100); s <= 149; s++ {
		client.blocks = append(client.blocks, s)
	}
	iv, _ := queue.Pop()
	pool.process(context.Background(), pool.log, iv)

	if queue.Len() != 0 {
		t.Errorf("queue.Len() = %d after recovery, want 0", queue.Len())
	}
	if blockCache.Len() != 50 {
		t.Errorf("cache holds %d slots after recovery, want 50", blockCache.Len())
	}
}

// An interval held back by repeated failures can outlive its usefulness;
// after recovery the split path discards it once it is behind the horizon.
func TestStaleRetriedIntervalDroppedAfterRecovery(t *testing.T) {
	client := &fakeChainClient{blockErr: errors.New("rpc down")}
	queue := NewIntervalQueue()
	blockCache := cache.New(200)
	pool := newTestPool(PoolConfig{IntervalSize: 1, MinIntervalSize: 1}, client, queue, blockCache, 0)

	queue.Push(SlotInterval{Start: 100, End: 149})
	iv, _ := queue.Pop()
	pool.process(context.Background(), pool.log, iv)
	if queue.Len() != 1 {
		t.Fatalf("queue.Len() = %d after failed attempt, want 1", queue.Len())
	}

	// Recovery with the head far ahead: nothing confirmed, horizon past the
	// interval, so the re-check is dropped rather than re-queued forever.
	client.blockErr = nil
	recovered := newTestPool(PoolConfig{IntervalSize: 1, MinIntervalSize: 1}, client, queue, blockCache, 1000)
	iv, _ = queue.Pop()
	recovered.process(context.Background(), recovered.log, iv)

	if queue.Len() != 0 {
		t.Errorf("queue.Len() = %d, want 0: stale interval should be dropped", queue.Len())
	}
}

func TestPoolRunDrainsQueue(t *testing.T) {
	client := &fakeChainClient{blocks: []uint64{10, 11, 12, 13, 14}}
	queue := NewIntervalQueue()
	blockCache := cache.New(100)
	pool := newTestPool(PoolConfig{Workers: 2, Tick: 5 * time.Millisecond}, client, queue, blockCache, 0)

	queue.Push(SlotInterval{Start: 10, End: 14})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	deadline := time.After(time.Second)
	for blockCache.Len() < 5 {
		select {
		case <-deadline:
			t.Fatal("workers never resolved the queued interval")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool did not stop after cancel")
	}
}
