package tenant

import (
	"context"

	"github.com/cklinker/emfgw/internal/audit"
	"github.com/cklinker/emfgw/internal/observability"
)

// Guard enforces the write half of tenant isolation: an entity may only
// be persisted by a request bound to the entity's own tenant.
type Guard struct {
	logger  observability.Logger
	auditor audit.Logger
	metrics *Metrics
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithGuardLogger sets the logger.
func WithGuardLogger(logger observability.Logger) GuardOption {
	return func(g *Guard) {
		g.logger = logger
	}
}

// WithGuardAuditor sets the audit logger for security events.
func WithGuardAuditor(auditor audit.Logger) GuardOption {
	return func(g *Guard) {
		g.auditor = auditor
	}
}

// WithGuardMetrics sets the metrics recorder.
func WithGuardMetrics(m *Metrics) GuardOption {
	return func(g *Guard) {
		g.metrics = m
	}
}

// NewGuard creates a Guard.
func NewGuard(opts ...GuardOption) *Guard {
	g := &Guard{
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CheckWrite compares the entity's tenant against the request tenant.
// Both non-empty and different is a fatal violation: the returned error
// aborts the write, the incident is recorded as a security event, and
// callers must propagate the error, never downgrade it to a warning.
// An empty entity tenant (infrastructure entities such as routes) and
// an unbound context (system jobs) are allowed through.
func (g *Guard) CheckWrite(ctx context.Context, entityTenantID string) error {
	contextTenantID := ID(ctx)
	if contextTenantID == "" || entityTenantID == "" || contextTenantID == entityTenantID {
		return nil
	}

	g.metrics.RecordCrossTenantWrite()

	g.logger.WithContext(ctx).Error("blocked cross-tenant write",
		observability.String("context_tenant_id", contextTenantID),
		observability.String("entity_tenant_id", entityTenantID),
	)

	if g.auditor != nil {
		event := audit.NewEvent(audit.EventTypeSecurity, audit.ActionCrossTenantWrite, audit.OutcomeBlocked)
		event.TenantID = contextTenantID
		event.Details = map[string]any{"entity_tenant_id": entityTenantID}
		g.auditor.Record(ctx, event)
	}

	return &CrossTenantWriteError{
		ContextTenantID: contextTenantID,
		EntityTenantID:  entityTenantID,
	}
}
