package audit

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cklinker/emfgw/internal/observability"
)

// Logger records audit events.
type Logger interface {
	// Record logs a single audit event.
	Record(ctx context.Context, event *Event)
}

// logger writes audit events through the structured log and counts
// them in Prometheus.
type logger struct {
	log     observability.Logger
	metrics *Metrics
}

// Option configures the audit logger.
type Option func(*logger)

// WithMetrics sets the metrics recorder.
func WithMetrics(m *Metrics) Option {
	return func(l *logger) {
		l.metrics = m
	}
}

// NewLogger creates an audit logger writing through log.
func NewLogger(log observability.Logger, opts ...Option) Logger {
	if log == nil {
		log = observability.NopLogger()
	}
	l := &logger{log: log}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record logs the event at a level matching its severity. Security
// events are never logged below error so they cannot be filtered out
// by log-level configuration in production.
func (l *logger) Record(ctx context.Context, event *Event) {
	if event == nil {
		return
	}

	l.metrics.RecordEvent(event)

	fields := []observability.Field{
		observability.String("audit_id", event.ID),
		observability.String("audit_type", string(event.Type)),
		observability.String("audit_action", string(event.Action)),
		observability.String("audit_outcome", string(event.Outcome)),
	}
	if event.TenantID != "" {
		fields = append(fields, observability.String("tenant_id", event.TenantID))
	}
	if event.UserID != "" {
		fields = append(fields, observability.String("user_id", event.UserID))
	}
	if event.Resource != "" {
		fields = append(fields, observability.String("resource", event.Resource))
	}
	if len(event.Details) > 0 {
		fields = append(fields, observability.Any("details", event.Details))
	}

	log := l.log.WithContext(ctx)
	if event.Type == EventTypeSecurity {
		log.Error("audit event", fields...)
		return
	}
	log.Info("audit event", fields...)
}

// Metrics counts audit events by type, action and outcome.
type Metrics struct {
	eventsTotal *prometheus.CounterVec
}

// NewMetrics creates audit metrics registered with the default registerer.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates audit metrics registered with the
// provided registerer, so they can share the gateway registry behind
// the /metrics endpoint.
func NewMetricsWithRegisterer(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "emfgw"
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "audit",
				Name:      "events_total",
				Help:      "Total number of audit events",
			},
			[]string{"type", "action", "outcome"},
		),
	}

	// Duplicate registrations are ignored; descriptors are identical.
	_ = registerer.Register(m.eventsTotal)

	m.Init()

	return m
}

// Init pre-populates the security label combination so the counter is
// visible on /metrics before the first incident. Idempotent.
func (m *Metrics) Init() {
	if m == nil || m.eventsTotal == nil {
		return
	}
	m.eventsTotal.WithLabelValues(
		string(EventTypeSecurity), string(ActionCrossTenantWrite), string(OutcomeBlocked),
	)
}

// RecordEvent counts one event. Nil-safe.
func (m *Metrics) RecordEvent(event *Event) {
	if m == nil || m.eventsTotal == nil || event == nil {
		return
	}
	m.eventsTotal.WithLabelValues(
		string(event.Type), string(event.Action), string(event.Outcome),
	).Inc()
}
