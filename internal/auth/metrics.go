package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks token verification outcomes.
type Metrics struct {
	verifyDuration *prometheus.HistogramVec
	failures       *prometheus.CounterVec
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
		verifyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "verify_duration_seconds",
				Help:      "Duration of bearer token verification.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "failures_total",
				Help:      "Token verification failures by reason.",
			},
			[]string{"reason"},
		),
	}

	if registerer != nil {
		_ = registerer.Register(m.verifyDuration)
		_ = registerer.Register(m.failures)
	}

	return m
}

// Init pre-warms label combinations so dashboards see zeros.
func (m *Metrics) Init() {
	if m == nil {
		return
	}
	m.verifyDuration.WithLabelValues("ok")
	m.verifyDuration.WithLabelValues("error")
	m.failures.WithLabelValues("missing")
	m.failures.WithLabelValues("expired")
	m.failures.WithLabelValues("invalid")
}

// RecordVerify records one verification.
func (m *Metrics) RecordVerify(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.verifyDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordFailure counts one verification failure.
func (m *Metrics) RecordFailure(reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(reason).Inc()
}
