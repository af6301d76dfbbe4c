package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records internal API request outcomes.
type Metrics struct {
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	rateLimited prometheus.Counter
}

// NewMetrics creates API metrics registered with the default registerer.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates API metrics registered with the
// provided registerer.
func NewMetricsWithRegisterer(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "emfgw"
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "internal_api",
				Name:      "requests_total",
				Help:      "Internal API requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "internal_api",
				Name:      "request_duration_seconds",
				Help:      "Internal API request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		rateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "internal_api",
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the token bucket",
			},
		),
	}

	_ = registerer.Register(m.requests)
	_ = registerer.Register(m.latency)
	_ = registerer.Register(m.rateLimited)

	return m
}

// RecordRequest counts one request. Nil-safe.
func (m *Metrics) RecordRequest(endpoint, status string, duration time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, status).Inc()
	m.latency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordRateLimited counts one rejected request. Nil-safe.
func (m *Metrics) RecordRateLimited() {
	if m == nil || m.rateLimited == nil {
		return
	}
	m.rateLimited.Inc()
}
