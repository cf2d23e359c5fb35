// Package server exposes the HTTP API: slot confirmation checks, health,
// Prometheus metrics, and operator rescan submission.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/slotmon/internal/cache"
	"github.com/vietddude/slotmon/internal/core/domain"
	"github.com/vietddude/slotmon/internal/metrics"
	"github.com/vietddude/slotmon/internal/rescan"
	"github.com/vietddude/slotmon/internal/syncer"
)

// Server serves the confirmation API. It reads the block cache and, on a
// miss, issues a single-slot RPC check and opportunistically writes the
// cache; it never touches the interval queue directly.
type Server struct {
	cache   *cache.BlockCache
	client  syncer.ChainClient
	queue   *syncer.IntervalQueue
	tracker *syncer.Tracker
	sink    rescan.Sink
	server  *http.Server
	log     *slog.Logger
}

// New creates the HTTP server on the given port. sink may be nil to
// disable rescan submission.
func New(
	port int,
	blockCache *cache.BlockCache,
	client syncer.ChainClient,
	queue *syncer.IntervalQueue,
	tracker *syncer.Tracker,
	sink rescan.Sink,
) *Server {
	mux := http.NewServeMux()
	s := &Server{
		cache:   blockCache,
		client:  client,
		queue:   queue,
		tracker: tracker,
		sink:    sink,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
		log: slog.Default().With("component", "server"),
	}

	mux.HandleFunc("GET /isSlotConfirmed/{slot}", s.handleIsSlotConfirmed)
	mux.HandleFunc("POST /rescan/{start}/{end}", s.handleRescan)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Handler returns the route handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	s.log.Info("Server starting", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop shuts the HTTP server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleIsSlotConfirmed(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		metrics.SlotCheckLatency.Observe(time.Since(start).Seconds())
	}()

	slot, err := strconv.ParseUint(r.PathValue("slot"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if s.cache.Contains(slot) {
		metrics.CacheChecks.WithLabelValues("hit").Inc()
		w.WriteHeader(http.StatusOK)
		return
	}
	metrics.CacheChecks.WithLabelValues("miss").Inc()

	// Cache miss: one single-slot range query settles it.
	blocks, err := s.client.GetBlocks(r.Context(), slot, slot)
	if err != nil {
		s.log.Error("Failed to check slot", "slot", slot, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	for _, b := range blocks {
		if b == slot {
			s.cache.Insert(slot)
			w.WriteHeader(http.StatusOK)
			return
		}
	}

	w.WriteHeader(http.StatusNotFound)
}

func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	if s.sink == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	start, err := strconv.ParseUint(r.PathValue("start"), 10, 64)
	if err != nil {
		http.Error(w, "invalid start slot", http.StatusBadRequest)
		return
	}
	end, err := strconv.ParseUint(r.PathValue("end"), 10, 64)
	if err != nil {
		http.Error(w, "invalid end slot", http.StatusBadRequest)
		return
	}

	req := domain.NewRescanRequest(start, end)
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.sink.Submit(r.Context(), req); err != nil {
		s.log.Error("Failed to submit rescan request", "id", req.ID, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	metrics.RescanSubmitted.Inc()
	s.log.Info("Accepted rescan request", "id", req.ID, "start", start, "end", end)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(req)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":            "ok",
		"last_tracked_slot": s.tracker.LastTrackedSlot(),
		"queue_depth":       s.queue.Len(),
		"cache_len":         s.cache.Len(),
		"cache_capacity":    s.cache.Capacity(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
