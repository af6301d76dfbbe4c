package groups

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks membership resolution behavior.
type Metrics struct {
	resolveDuration  *prometheus.HistogramVec
	depthTruncations prometheus.Counter
	danglingEdges    prometheus.Counter
	syncTotal        *prometheus.CounterVec
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
		resolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "membership",
				Name:      "resolve_duration_seconds",
				Help:      "Duration of membership graph resolution.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"direction"},
		),
		depthTruncations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "membership",
				Name:      "depth_truncations_total",
				Help:      "Traversals that reached the depth limit.",
			},
		),
		danglingEdges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "membership",
				Name:      "dangling_edges_total",
				Help:      "Membership edges skipped because the referenced group does not exist.",
			},
		),
		syncTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "membership",
				Name:      "oidc_sync_total",
				Help:      "OIDC group sync operations by outcome.",
			},
			[]string{"outcome"},
		),
	}

	if registerer != nil {
		_ = registerer.Register(m.resolveDuration)
		_ = registerer.Register(m.depthTruncations)
		_ = registerer.Register(m.danglingEdges)
		_ = registerer.Register(m.syncTotal)
	}

	return m
}

// Init pre-warms label combinations so dashboards see zeros.
func (m *Metrics) Init() {
	if m == nil {
		return
	}
	m.resolveDuration.WithLabelValues("groups")
	m.resolveDuration.WithLabelValues("users")
	m.syncTotal.WithLabelValues("changed")
	m.syncTotal.WithLabelValues("unchanged")
	m.syncTotal.WithLabelValues("error")
}

// RecordResolve records one traversal.
func (m *Metrics) RecordResolve(direction string, duration time.Duration) {
	if m == nil {
		return
	}
	m.resolveDuration.WithLabelValues(direction).Observe(duration.Seconds())
}

// RecordDepthTruncation counts a traversal that hit the depth limit.
func (m *Metrics) RecordDepthTruncation() {
	if m == nil {
		return
	}
	m.depthTruncations.Inc()
}

// RecordDanglingEdge counts a skipped dangling edge.
func (m *Metrics) RecordDanglingEdge() {
	if m == nil {
		return
	}
	m.danglingEdges.Inc()
}

// RecordSync counts one OIDC sync by outcome.
func (m *Metrics) RecordSync(outcome string) {
	if m == nil {
		return
	}
	m.syncTotal.WithLabelValues(outcome).Inc()
}
