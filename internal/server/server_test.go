package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/slotmon/internal/cache"
	"github.com/vietddude/slotmon/internal/core/domain"
	"github.com/vietddude/slotmon/internal/rescan"
	"github.com/vietddude/slotmon/internal/syncer"
)

type fakeClient struct {
	blocks []uint64
	err    error
	calls  int
}

func (f *fakeClient) GetSlot(ctx context.Context) (uint64, error) {
	return 0, errors.New("not used")
}

func (f *fakeClient) GetBlocks(ctx context.Context, start, end uint64) ([]uint64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []uint64
	for _, b := range f.blocks {
		if b >= start && b <= end {
			out = append(out, b)
		}
	}
	return out, nil
}

type testEnv struct {
	server *Server
	cache  *cache.BlockCache
	queue  *syncer.IntervalQueue
	client *fakeClient
}

func newTestEnv(client *fakeClient, sink rescan.Sink) testEnv {
	blockCache := cache.New(100)
	queue := syncer.NewIntervalQueue()
	tracker := syncer.NewTracker(
		syncer.TrackerConfig{Interval: time.Second, Depth: 100},
		client, queue,
	)
	srv := New(0, blockCache, client, queue, tracker, sink)
	return testEnv{server: srv, cache: blockCache, queue: queue, client: client}
}

func (e testEnv) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIsSlotConfirmedCacheHit(t *testing.T) {
	env := newTestEnv(&fakeClient{}, nil)
	env.cache.Insert(500)

	rec := env.do(t, "GET", "/isSlotConfirmed/500")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if env.client.calls != 0 {
		t.Errorf("cache hit should not reach the RPC client, got %d calls", env.client.calls)
	}
}

func TestIsSlotConfirmedMissThenConfirmed(t *testing.T) {
	env := newTestEnv(&fakeClient{blocks: []uint64{500}}, nil)

	rec := env.do(t, "GET", "/isSlotConfirmed/500")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if env.client.calls != 1 {
		t.Errorf("client calls = %d, want 1", env.client.calls)
	}
	if !env.cache.Contains(500) {
		t.Error("confirmed slot should be written back to the cache")
	}

	// Second request is served from cache.
	env.do(t, "GET", "/isSlotConfirmed/500")
	if env.client.calls != 1 {
		t.Errorf("client calls = %d after cached re-check, want 1", env.client.calls)
	}
}

func TestIsSlotConfirmedNotFound(t *testing.T) {
	env := newTestEnv(&fakeClient{}, nil)

	rec := env.do(t, "GET", "/isSlotConfirmed/500")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if env.cache.Contains(500) {
		t.Error("unconfirmed slot must not be cached")
	}
}

func TestIsSlotConfirmedRPCFailure(t *testing.T) {
	env := newTestEnv(&fakeClient{err: errors.New("rpc down")}, nil)

	rec := env.do(t, "GET", "/isSlotConfirmed/500")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestIsSlotConfirmedBadSlot(t *testing.T) {
	env := newTestEnv(&fakeClient{}, nil)

	for _, path := range []string{"/isSlotConfirmed/abc", "/isSlotConfirmed/-1"} {
		rec := env.do(t, "GET", path)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", path, rec.Code)
		}
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(&fakeClient{}, nil)
	env.cache.Insert(1)
	env.queue.Push(syncer.SlotInterval{Start: 1, End: 10})

	rec := env.do(t, "GET", "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid health JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["queue_depth"].(float64) != 1 {
		t.Errorf("queue_depth = %v, want 1", body["queue_depth"])
	}
	if body["cache_len"].(float64) != 1 {
		t.Errorf("cache_len = %v, want 1", body["cache_len"])
	}
}

func TestRescanSubmission(t *testing.T) {
	env := newTestEnv(&fakeClient{}, nil)
	env.server.sink = rescan.QueueSink{Queue: env.queue}

	rec := env.do(t, "POST", "/rescan/100/350")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	var req domain.RescanRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &req); err != nil {
		t.Fatalf("invalid rescan response JSON: %v", err)
	}
	if req.ID == "" {
		t.Error("rescan response missing job id")
	}
	if req.Start != 100 || req.End != 350 {
		t.Errorf("rescan response range = [%d,%d], want [100,350]", req.Start, req.End)
	}

	if env.queue.Len() == 0 {
		t.Error("accepted rescan produced no queued intervals")
	}
}

func TestRescanInvalidRange(t *testing.T) {
	env := newTestEnv(&fakeClient{}, rescan.QueueSink{})

	rec := env.do(t, "POST", "/rescan/20/10")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for start > end", rec.Code)
	}

	rec = env.do(t, "POST", "/rescan/abc/10")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for non-numeric slot", rec.Code)
	}
}

func TestRescanDisabled(t *testing.T) {
	env := newTestEnv(&fakeClient{}, nil)

	rec := env.do(t, "POST", "/rescan/10/20")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 when rescan is disabled", rec.Code)
	}
}
