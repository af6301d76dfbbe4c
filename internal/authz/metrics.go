package authz

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains authorization metrics.
type Metrics struct {
	// decisionTotal counts enforcement decisions.
	decisionTotal *prometheus.CounterVec

	// resolutionDuration measures permission resolution duration.
	resolutionDuration *prometheus.HistogramVec

	// cacheHits counts permission cache hits.
	cacheHits prometheus.Counter

	// cacheMisses counts permission cache misses.
	cacheMisses prometheus.Counter

	// invalidationsTotal counts evicted permission snapshots.
	invalidationsTotal prometheus.Counter
}

// NewMetrics creates authorization metrics registered with the default
// registerer.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates authorization metrics registered
// with the given registerer. Duplicate registration is ignored so
// multiple components can share a namespace.
func NewMetricsWithRegisterer(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "emfgw"
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{}

	m.decisionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "decision_total",
			Help:      "Total number of enforcement decisions",
		},
		[]string{"decision"},
	)

	m.resolutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "resolution_duration_seconds",
			Help:      "Permission resolution duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"outcome"},
	)

	m.cacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "cache_hits_total",
			Help:      "Total number of permission cache hits",
		},
	)

	m.cacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "cache_misses_total",
			Help:      "Total number of permission cache misses",
		},
	)

	m.invalidationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "invalidations_total",
			Help:      "Total number of evicted permission snapshots",
		},
	)

	collectors := []prometheus.Collector{
		m.decisionTotal,
		m.resolutionDuration,
		m.cacheHits,
		m.cacheMisses,
		m.invalidationsTotal,
	}
	for _, c := range collectors {
		_ = registerer.Register(c)
	}

	return m
}

// Init pre-initializes label combinations with zero values so metrics
// appear in scrape output immediately after startup.
func (m *Metrics) Init() {
	if m == nil {
		return
	}
	for _, decision := range []string{"allowed", "denied", "error"} {
		m.decisionTotal.WithLabelValues(decision)
	}
	for _, outcome := range []string{"resolved", "error"} {
		m.resolutionDuration.WithLabelValues(outcome)
	}
}

// RecordDecision records an enforcement decision.
func (m *Metrics) RecordDecision(decision string) {
	if m == nil || m.decisionTotal == nil {
		return
	}
	m.decisionTotal.WithLabelValues(decision).Inc()
}

// RecordResolution records a permission resolution.
func (m *Metrics) RecordResolution(outcome string, duration time.Duration) {
	if m == nil || m.resolutionDuration == nil {
		return
	}
	m.resolutionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordCacheHit records a permission cache hit.
func (m *Metrics) RecordCacheHit() {
	if m == nil || m.cacheHits == nil {
		return
	}
	m.cacheHits.Inc()
}

// RecordCacheMiss records a permission cache miss.
func (m *Metrics) RecordCacheMiss() {
	if m == nil || m.cacheMisses == nil {
		return
	}
	m.cacheMisses.Inc()
}

// RecordInvalidation records an evicted snapshot.
func (m *Metrics) RecordInvalidation() {
	if m == nil || m.invalidationsTotal == nil {
		return
	}
	m.invalidationsTotal.Inc()
}
