package grants

import (
	"context"
	"fmt"
	"time"

	"github.com/cklinker/emfgw/internal/observability"
)

// GroupResolver supplies effective membership, both directions.
// Satisfied by the groups package resolver.
type GroupResolver interface {
	EffectiveGroupIDs(ctx context.Context, tenantID, userID string) ([]string, error)
	EffectiveUserIDs(ctx context.Context, tenantID, groupID string) ([]string, error)
}

// Resolver computes effective permissions: flatten the user's group
// membership, fetch every active grant addressed to the user or those
// groups, and OR-merge them per resource.
type Resolver struct {
	groups  GroupResolver
	store   Store
	logger  observability.Logger
	metrics *Metrics
}

// ResolverOption configures the resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger.
func WithResolverLogger(logger observability.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithResolverMetrics sets the metrics recorder.
func WithResolverMetrics(metrics *Metrics) ResolverOption {
	return func(r *Resolver) {
		r.metrics = metrics
	}
}

// NewResolver creates a grant resolver.
func NewResolver(groups GroupResolver, store Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		groups: groups,
		store:  store,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve computes the user's effective permissions. A user with no
// grants resolves to an empty, deny-everything result, not an error.
// Upstream failures propagate so the caller can fail closed.
func (r *Resolver) Resolve(ctx context.Context, tenantID, userID string) (*EffectivePermissions, error) {
	start := time.Now()

	groupIDs, err := r.groups.EffectiveGroupIDs(ctx, tenantID, userID)
	if err != nil {
		r.metrics.RecordResolve("error", time.Since(start))
		return nil, fmt.Errorf("resolving effective groups: %w", err)
	}

	matched, err := r.store.ActiveGrantsFor(ctx, tenantID, userID, groupIDs)
	if err != nil {
		r.metrics.RecordResolve("error", time.Since(start))
		return nil, fmt.Errorf("loading grants: %w", err)
	}

	result := Merge(tenantID, userID, matched)
	result.GroupIDs = groupIDs

	r.metrics.RecordResolve("ok", time.Since(start))
	r.logger.WithContext(ctx).Debug("resolved effective permissions",
		observability.String("tenant_id", tenantID),
		observability.String("user_id", userID),
		observability.Int("groups", len(groupIDs)),
		observability.Int("grants", len(matched)),
	)

	return result, nil
}

// Merge OR-folds grants into one result. Inactive grants are skipped.
// The fold is commutative and associative: any ordering of the same
// grants produces the same result.
func Merge(tenantID, userID string, matched []*AccessGrant) *EffectivePermissions {
	result := NewEffectivePermissions(tenantID, userID)
	for _, grant := range matched {
		result.apply(grant)
	}
	return result
}
