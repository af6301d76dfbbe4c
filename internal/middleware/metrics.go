package middleware

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts middleware outcomes.
type Metrics struct {
	panicsRecovered           prometheus.Counter
	circuitBreakerRejected    prometheus.Counter
	circuitBreakerTransitions *prometheus.CounterVec
}

// NewMetrics creates middleware metrics registered with the default
// registerer.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates middleware metrics registered with
// the provided registerer.
func NewMetricsWithRegisterer(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "emfgw"
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		panicsRecovered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "middleware",
				Name:      "panics_recovered_total",
				Help:      "Panics recovered in request handlers",
			},
		),
		circuitBreakerRejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "middleware",
				Name:      "circuit_breaker_rejected_total",
				Help:      "Requests rejected while the breaker was open",
			},
		),
		circuitBreakerTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "middleware",
				Name:      "circuit_breaker_transitions_total",
				Help:      "Circuit breaker state transitions",
			},
			[]string{"from", "to"},
		),
	}

	_ = registerer.Register(m.panicsRecovered)
	_ = registerer.Register(m.circuitBreakerRejected)
	_ = registerer.Register(m.circuitBreakerTransitions)

	return m
}

// RecordPanic counts one recovered panic. Nil-safe.
func (m *Metrics) RecordPanic() {
	if m == nil || m.panicsRecovered == nil {
		return
	}
	m.panicsRecovered.Inc()
}

// RecordBreakerRejection counts one open-breaker rejection. Nil-safe.
func (m *Metrics) RecordBreakerRejection() {
	if m == nil || m.circuitBreakerRejected == nil {
		return
	}
	m.circuitBreakerRejected.Inc()
}

// RecordBreakerTransition counts one state change. Nil-safe.
func (m *Metrics) RecordBreakerTransition(from, to string) {
	if m == nil || m.circuitBreakerTransitions == nil {
		return
	}
	m.circuitBreakerTransitions.WithLabelValues(from, to).Inc()
}
