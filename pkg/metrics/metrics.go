// Package metrics provides Prometheus metrics for the ROOST round engine.
package metrics

import (
	"math/big"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the round engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Round activity - entries, submissions, improvements
	entriesTotal           prometheus.Counter
	submissionsTotal       prometheus.Counter
	scoreImprovementsTotal prometheus.Counter
	highScoreUpdatesTotal  prometheus.Counter

	// Claim lifecycle
	claimsSettledTotal prometheus.Counter
	claimsAbortedTotal prometheus.Counter
	claimedAmountTotal prometheus.Counter

	// Bank transfers by direction (collect, credit)
	bankTransfers *prometheus.CounterVec

	// Current-day state
	poolAmount   prometheus.Gauge
	playersToday prometheus.Gauge
	trackedDays  prometheus.Gauge

	// Store performance
	storeUpdateLatency prometheus.Histogram
	storeQueryLatency  prometheus.Histogram
	claimSettleLatency prometheus.Histogram

	// Error tracking
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "roost",
		subsystem:        "rounds",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)

	m.entriesTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "entries_total",
		Help:      "Total number of paid entries accepted.",
	})
	m.submissionsTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_submissions_total",
		Help:      "Total number of score submissions processed.",
	})
	m.scoreImprovementsTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_improvements_total",
		Help:      "Submissions that improved a player's best score.",
	})
	m.highScoreUpdatesTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "high_score_updates_total",
		Help:      "Submissions that set a new daily high score.",
	})
	m.claimsSettledTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "claims_settled_total",
		Help:      "Reward claims settled successfully.",
	})
	m.claimsAbortedTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "claims_aborted_total",
		Help:      "Reward claims rolled back before settlement.",
	})
	m.claimedAmountTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "claimed_amount_total",
		Help:      "Sum of settled reward amounts in smallest denomination.",
	})
	m.bankTransfers = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bank_transfers_total",
		Help:      "Value transfers by direction.",
	}, []string{"direction"})
	m.poolAmount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pool_amount",
		Help:      "Current day's pool in smallest denomination.",
	})
	m.playersToday = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "players_today",
		Help:      "Distinct players entered for the current day.",
	})
	m.trackedDays = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_days",
		Help:      "Number of day aggregates tracked by the store.",
	})
	m.storeUpdateLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_update_latency_ms",
		Help:      "Latency of mutating store operations in milliseconds.",
		Buckets:   m.histogramBuckets,
	})
	m.storeQueryLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_query_latency_ms",
		Help:      "Latency of read-only store operations in milliseconds.",
		Buckets:   m.histogramBuckets,
	})
	m.claimSettleLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "claim_settle_latency_ms",
		Help:      "End-to-end claim latency in milliseconds.",
		Buckets:   m.histogramBuckets,
	})
	m.errorsByComponent = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_total",
		Help:      "Errors by component and kind.",
	}, []string{"component", "kind"})
}

// Registry returns the custom registry holding all engine metrics.
func Registry() *prometheus.Registry {
	return customRegistry
}

// Package-level recording helpers delegating to the global manager.

func RecordEntry() {
	if globalManager.enabled {
		globalManager.entriesTotal.Inc()
	}
}

func RecordSubmission(improved bool) {
	if !globalManager.enabled {
		return
	}
	globalManager.submissionsTotal.Inc()
	if improved {
		globalManager.scoreImprovementsTotal.Inc()
	}
}

func RecordHighScoreUpdate() {
	if globalManager.enabled {
		globalManager.highScoreUpdatesTotal.Inc()
	}
}

func RecordClaimSettled(amount *big.Int) {
	if !globalManager.enabled {
		return
	}
	globalManager.claimsSettledTotal.Inc()
	globalManager.claimedAmountTotal.Add(amountToFloat(amount))
}

func RecordClaimAborted() {
	if globalManager.enabled {
		globalManager.claimsAbortedTotal.Inc()
	}
}

func RecordBankTransfer(direction string) {
	if globalManager.enabled {
		globalManager.bankTransfers.WithLabelValues(direction).Inc()
	}
}

func UpdatePoolAmount(amount *big.Int) {
	if globalManager.enabled {
		globalManager.poolAmount.Set(amountToFloat(amount))
	}
}

// amountToFloat converts a ledger amount for observation. Precision loss at
// float64 scale is acceptable for monitoring.
func amountToFloat(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(amount).Float64()
	return f
}

func UpdatePlayersToday(n int) {
	if globalManager.enabled {
		globalManager.playersToday.Set(float64(n))
	}
}

func UpdateTrackedDays(n int) {
	if globalManager.enabled {
		globalManager.trackedDays.Set(float64(n))
	}
}

func RecordStoreUpdateLatency(ms float64) {
	if globalManager.enabled {
		globalManager.storeUpdateLatency.Observe(ms)
	}
}

func RecordStoreQueryLatency(ms float64) {
	if globalManager.enabled {
		globalManager.storeQueryLatency.Observe(ms)
	}
}

func RecordClaimSettleLatency(ms float64) {
	if globalManager.enabled {
		globalManager.claimSettleLatency.Observe(ms)
	}
}

func RecordErrorByComponent(component, kind string) {
	if globalManager.enabled {
		globalManager.errorsByComponent.WithLabelValues(component, kind).Inc()
	}
}
