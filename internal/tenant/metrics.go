package tenant

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts tenant resolution and isolation outcomes.
type Metrics struct {
	resolutions       *prometheus.CounterVec
	crossTenantWrites prometheus.Counter
}

// NewMetrics creates tenant metrics registered with the default registerer.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates tenant metrics registered with the
// provided registerer.
func NewMetricsWithRegisterer(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "emfgw"
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tenant",
				Name:      "resolutions_total",
				Help:      "Tenant slug resolutions by outcome",
			},
			[]string{"outcome"},
		),
		crossTenantWrites: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tenant",
				Name:      "cross_tenant_writes_total",
				Help:      "Writes blocked because the entity tenant differed from the request tenant",
			},
		),
	}

	_ = registerer.Register(m.resolutions)
	_ = registerer.Register(m.crossTenantWrites)

	m.Init()

	return m
}

// Init pre-populates label combinations so the series appear on
// /metrics before first use. Idempotent.
func (m *Metrics) Init() {
	if m == nil || m.resolutions == nil {
		return
	}
	for _, outcome := range []string{"resolved", "unknown", "invalid"} {
		m.resolutions.WithLabelValues(outcome)
	}
}

// RecordResolution counts one slug resolution. Nil-safe.
func (m *Metrics) RecordResolution(outcome string) {
	if m == nil || m.resolutions == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

// RecordCrossTenantWrite counts one blocked write. Nil-safe.
func (m *Metrics) RecordCrossTenantWrite() {
	if m == nil || m.crossTenantWrites == nil {
		return
	}
	m.crossTenantWrites.Inc()
}
