package audit

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cklinker/emfgw/internal/observability"
)

func TestNewEvent(t *testing.T) {
	t.Parallel()

	event := NewEvent(EventTypeSecurity, ActionCrossTenantWrite, OutcomeBlocked)

	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, EventTypeSecurity, event.Type)
	assert.Equal(t, ActionCrossTenantWrite, event.Action)
	assert.Equal(t, OutcomeBlocked, event.Outcome)
}

func TestLoggerRecord(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	metrics := NewMetricsWithRegisterer("test_audit", registry)
	logger := NewLogger(observability.NopLogger(), WithMetrics(metrics))

	event := NewEvent(EventTypeSecurity, ActionCrossTenantWrite, OutcomeBlocked)
	event.TenantID = "tenant-a"
	event.UserID = "user-1"
	event.Resource = "group/g-1"
	event.Details = map[string]any{"entity_tenant": "tenant-b"}

	logger.Record(context.Background(), event)

	families, err := registry.Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range families {
		if mf.GetName() != "test_audit_audit_events_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, total)
}

func TestLoggerRecordNilEvent(t *testing.T) {
	t.Parallel()

	logger := NewLogger(nil)
	assert.NotPanics(t, func() {
		logger.Record(context.Background(), nil)
	})
}

func TestMetricsNilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.Init()
		m.RecordEvent(NewEvent(EventTypeMembership, ActionGroupSync, OutcomeApplied))
	})
}
