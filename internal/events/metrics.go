package events

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains event transport metrics.
type Metrics struct {
	// eventsTotal counts consumed events by channel and outcome.
	eventsTotal *prometheus.CounterVec

	// publishTotal counts published events by channel and outcome.
	publishTotal *prometheus.CounterVec
}

// NewMetrics creates event metrics registered with the default
// registerer.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates event metrics registered with the
// given registerer. Duplicate registration is ignored.
func NewMetricsWithRegisterer(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "emfgw"
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{}

	m.eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "consumed_total",
			Help:      "Total number of consumed events by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	m.publishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of published events by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	for _, c := range []prometheus.Collector{m.eventsTotal, m.publishTotal} {
		_ = registerer.Register(c)
	}

	return m
}

// Init pre-initializes label combinations with zero values so metrics
// appear in scrape output immediately after startup.
func (m *Metrics) Init(invalidationChannel, routeChannel string) {
	if m == nil {
		return
	}
	for _, channel := range []string{invalidationChannel, routeChannel} {
		for _, outcome := range []string{"applied", "malformed", "error"} {
			m.eventsTotal.WithLabelValues(channel, outcome)
		}
		for _, outcome := range []string{"published", "error"} {
			m.publishTotal.WithLabelValues(channel, outcome)
		}
	}
}

// RecordEvent records a consumed event.
func (m *Metrics) RecordEvent(channel, outcome string) {
	if m == nil || m.eventsTotal == nil {
		return
	}
	m.eventsTotal.WithLabelValues(channel, outcome).Inc()
}

// RecordPublish records a published event.
func (m *Metrics) RecordPublish(channel, outcome string) {
	if m == nil || m.publishTotal == nil {
		return
	}
	m.publishTotal.WithLabelValues(channel, outcome).Inc()
}
