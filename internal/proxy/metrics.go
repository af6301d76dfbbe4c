package proxy

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records proxied request outcomes per backend service.
type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	misses   prometheus.Counter
}

// NewMetrics creates proxy metrics registered with the default registerer.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates proxy metrics registered with the
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
				Subsystem: "proxy",
				Name:      "requests_total",
				Help:      "Proxied requests by service and outcome",
			},
			[]string{"service", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "upstream_duration_seconds",
				Help:      "Time spent waiting on the backend worker",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service"},
		),
		misses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "route_misses_total",
				Help:      "Requests that matched no registered route",
			},
		),
	}

	_ = registerer.Register(m.requests)
	_ = registerer.Register(m.latency)
	_ = registerer.Register(m.misses)

	return m
}

// RecordRequest counts one proxied request. Nil-safe.
func (m *Metrics) RecordRequest(service, outcome string, duration time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(service, outcome).Inc()
	m.latency.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordMiss counts one unmatched request path. Nil-safe.
func (m *Metrics) RecordMiss() {
	if m == nil || m.misses == nil {
		return
	}
	m.misses.Inc()
}
