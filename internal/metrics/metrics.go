package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChainLatestSlot tracks the most recently observed chain head slot
	ChainLatestSlot = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slotmon_chain_latest_slot",
			Help: "Most recently observed chain head slot",
		},
	)

	// QueueDepth tracks the number of pending slot intervals
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slotmon_queue_depth",
			Help: "Number of slot intervals waiting to be resolved",
		},
	)

	// CacheSize tracks the number of confirmed slots held in the cache
	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slotmon_cache_size",
			Help: "Number of confirmed slots currently cached",
		},
	)

	// CacheChecks tracks confirmation lookups by result (hit/miss)
	CacheChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotmon_cache_checks_total",
			Help: "Total cache membership checks by result",
		},
		[]string{"result"},
	)

	// RPCCalls tracks RPC calls per method
	RPCCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotmon_rpc_calls_total",
			Help: "Total number of RPC calls",
		},
		[]string{"method"},
	)

	// RPCErrors tracks RPC errors per method
	RPCErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotmon_rpc_errors_total",
			Help: "Total number of failed RPC calls",
		},
		[]string{"method"},
	)

	// RPCLatency tracks RPC call latency per method
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slotmon_rpc_latency_seconds",
			Help:    "RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// IntervalsProcessed tracks worker interval resolutions by outcome
	IntervalsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotmon_intervals_processed_total",
			Help: "Total intervals taken off the queue by outcome (split/requeued)",
		},
		[]string{"result"},
	)

	// SubIntervalsRequeued tracks unresolved sub-intervals scheduled for re-check
	SubIntervalsRequeued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slotmon_subintervals_requeued_total",
			Help: "Total unresolved sub-intervals put back on the queue",
		},
	)

	// SubIntervalsDropped tracks sub-intervals discarded by the drop policy
	SubIntervalsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotmon_subintervals_dropped_total",
			Help: "Total sub-intervals dropped by reason (size/horizon)",
		},
		[]string{"reason"},
	)

	// SlotCheckLatency tracks end-to-end isSlotConfirmed latency
	SlotCheckLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "slotmon_slot_check_latency_seconds",
			Help:    "isSlotConfirmed request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// RescanSubmitted tracks operator rescan requests accepted
	RescanSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slotmon_rescan_submitted_total",
			Help: "Total rescan requests accepted for processing",
		},
	)
)
