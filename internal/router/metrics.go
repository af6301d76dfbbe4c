package router

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks route table activity.
type Metrics struct {
	matchesTotal  *prometheus.CounterVec
	activeRoutes  prometheus.Gauge
	refreshesTotal prometheus.Counter
}

// NewMetrics creates metrics registered with the default registerer.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates metrics registered with the given
// registerer.
func NewMetricsWithRegisterer(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "emfgw"
	}

	m := &Metrics{
		matchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "matches_total",
				Help:      "Route lookups by result.",
			},
			[]string{"result"},
		),
		activeRoutes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "active_routes",
				Help:      "Routes in the current table.",
			},
		),
		refreshesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "refreshes_total",
				Help:      "Bulk route table replacements.",
			},
		),
	}

	if registerer != nil {
		_ = registerer.Register(m.matchesTotal)
		_ = registerer.Register(m.activeRoutes)
		_ = registerer.Register(m.refreshesTotal)
	}

	return m
}

// Init pre-warms label combinations so dashboards see zeros.
func (m *Metrics) Init() {
	if m == nil {
		return
	}
	m.matchesTotal.WithLabelValues("exact")
	m.matchesTotal.WithLabelValues("wildcard")
	m.matchesTotal.WithLabelValues("miss")
}

// RecordMatch counts one lookup by result.
func (m *Metrics) RecordMatch(result string) {
	if m == nil {
		return
	}
	m.matchesTotal.WithLabelValues(result).Inc()
}

// SetActiveRoutes records the table size.
func (m *Metrics) SetActiveRoutes(n int) {
	if m == nil {
		return
	}
	m.activeRoutes.Set(float64(n))
}

// RecordRefresh counts one bulk replacement.
func (m *Metrics) RecordRefresh() {
	if m == nil {
		return
	}
	m.refreshesTotal.Inc()
}
