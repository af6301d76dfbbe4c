package grants

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks grant resolution and mutation.
type Metrics struct {
	resolveDuration *prometheus.HistogramVec
	grantChanges    *prometheus.CounterVec
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
				Subsystem: "grants",
				Name:      "resolve_duration_seconds",
				Help:      "Duration of effective permission resolution.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		grantChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "grants",
				Name:      "changes_total",
				Help:      "Grant mutations by kind.",
			},
			[]string{"change"},
		),
	}

	if registerer != nil {
		_ = registerer.Register(m.resolveDuration)
		_ = registerer.Register(m.grantChanges)
	}

	return m
}

// Init pre-warms label combinations so dashboards see zeros.
func (m *Metrics) Init() {
	if m == nil {
		return
	}
	m.resolveDuration.WithLabelValues("ok")
	m.resolveDuration.WithLabelValues("error")
	m.grantChanges.WithLabelValues("created")
	m.grantChanges.WithLabelValues("deactivated")
	m.grantChanges.WithLabelValues("deleted")
}

// RecordResolve records one resolution.
func (m *Metrics) RecordResolve(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.resolveDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordChange counts one grant mutation.
func (m *Metrics) RecordChange(change string) {
	if m == nil {
		return
	}
	m.grantChanges.WithLabelValues(change).Inc()
}
