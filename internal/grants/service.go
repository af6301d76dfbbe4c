package grants

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cklinker/emfgw/internal/audit"
	"github.com/cklinker/emfgw/internal/observability"
)

// Service owns grant mutations. Every mutation returns the user ids
// whose effective permissions may change: the user itself for USER
// grants, every user effectively in the group for GROUP grants. The
// caller publishes a cache invalidation for exactly those ids.
type Service struct {
	store   Store
	groups  GroupResolver
	logger  observability.Logger
	auditor audit.Logger
	metrics *Metrics
}

// ServiceOption configures the service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger.
func WithServiceLogger(logger observability.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithServiceAuditor sets the audit sink.
func WithServiceAuditor(auditor audit.Logger) ServiceOption {
	return func(s *Service) {
		s.auditor = auditor
	}
}

// WithServiceMetrics sets the metrics recorder.
func WithServiceMetrics(metrics *Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// NewService creates a grant service.
func NewService(store Store, groups GroupResolver, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		groups: groups,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGrant validates and persists a grant.
func (s *Service) CreateGrant(ctx context.Context, grant *AccessGrant) ([]string, error) {
	if grant.ID == "" {
		grant.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = now
	}
	grant.UpdatedAt = now

	if err := grant.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateGrant(ctx, grant); err != nil {
		return nil, err
	}

	s.metrics.RecordChange("created")
	s.recordGrantEvent(ctx, grant, "created")
	return s.affectedUsers(ctx, grant)
}

// DeactivateGrant flips a grant inactive, removing its contribution
// from every future merge.
func (s *Service) DeactivateGrant(ctx context.Context, tenantID, grantID string) ([]string, error) {
	grant, err := s.store.GrantByID(ctx, tenantID, grantID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetGrantActive(ctx, tenantID, grantID, false); err != nil {
		return nil, err
	}

	s.metrics.RecordChange("deactivated")
	s.recordGrantEvent(ctx, grant, "deactivated")
	return s.affectedUsers(ctx, grant)
}

// DeleteGrant removes a grant entirely.
func (s *Service) DeleteGrant(ctx context.Context, tenantID, grantID string) ([]string, error) {
	grant, err := s.store.GrantByID(ctx, tenantID, grantID)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteGrant(ctx, tenantID, grantID); err != nil {
		return nil, err
	}

	s.metrics.RecordChange("deleted")
	s.recordGrantEvent(ctx, grant, "deleted")
	return s.affectedUsers(ctx, grant)
}

// affectedUsers expands a grant's grantee into the user ids whose
// cached permissions must be evicted.
func (s *Service) affectedUsers(ctx context.Context, grant *AccessGrant) ([]string, error) {
	if grant.GranteeType == GranteeUser {
		return []string{grant.GranteeID}, nil
	}
	return s.groups.EffectiveUserIDs(ctx, grant.TenantID, grant.GranteeID)
}

func (s *Service) recordGrantEvent(ctx context.Context, grant *AccessGrant, change string) {
	if s.auditor == nil {
		return
	}
	event := audit.NewEvent(audit.EventTypeAuthorization, audit.ActionGrantChange, audit.OutcomeApplied)
	event.TenantID = grant.TenantID
	event.Resource = string(grant.ResourceType) + ":" + grant.ResourceID
	event.Details = map[string]any{
		"grant_id":     grant.ID,
		"grantee_type": string(grant.GranteeType),
		"grantee_id":   grant.GranteeID,
		"change":       change,
	}
	s.auditor.Record(ctx, event)
}
