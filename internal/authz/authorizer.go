package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/cklinker/emfgw/internal/grants"
	"github.com/cklinker/emfgw/internal/observability"
)

const authzTracerName = "emfgw/authz"

// PermissionResolver computes a fresh permission snapshot for a user.
// *grants.Resolver satisfies it.
type PermissionResolver interface {
	Resolve(ctx context.Context, tenantID, userID string) (*grants.EffectivePermissions, error)
}

// Authorizer answers permission lookups with cached snapshots and
// evicts them when invalidation events arrive.
type Authorizer interface {
	// EffectivePermissions returns the snapshot for (tenant, user). A
	// cache hit short-circuits resolution; a miss resolves and caches.
	EffectivePermissions(ctx context.Context, tenantID, userID string) (*grants.EffectivePermissions, error)

	// Invalidate evicts the cached snapshots for the named users.
	Invalidate(ctx context.Context, tenantID string, userIDs ...string) error
}

type authorizer struct {
	resolver PermissionResolver
	cache    *PermissionCache
	group    singleflight.Group
	logger   observability.Logger
	metrics  *Metrics
}

// AuthorizerOption is a functional option for the authorizer.
type AuthorizerOption func(*authorizer)

// WithAuthorizerLogger sets the logger.
func WithAuthorizerLogger(logger observability.Logger) AuthorizerOption {
	return func(a *authorizer) {
		a.logger = logger
	}
}

// WithAuthorizerMetrics sets the metrics.
func WithAuthorizerMetrics(metrics *Metrics) AuthorizerOption {
	return func(a *authorizer) {
		a.metrics = metrics
	}
}

// NewAuthorizer creates an authorizer over the given resolver. The
// permission cache may be nil, in which case every lookup resolves.
func NewAuthorizer(resolver PermissionResolver, permCache *PermissionCache, opts ...AuthorizerOption) (Authorizer, error) {
	if resolver == nil {
		return nil, errors.New("authz: resolver is required")
	}

	a := &authorizer{
		resolver: resolver,
		cache:    permCache,
		logger:   observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// EffectivePermissions implements Authorizer. Concurrent misses for the
// same (tenant, user) share a single resolution.
func (a *authorizer) EffectivePermissions(ctx context.Context, tenantID, userID string) (*grants.EffectivePermissions, error) {
	tracer := otel.Tracer(authzTracerName)
	ctx, span := tracer.Start(ctx, "authz.effective_permissions",
		oteltrace.WithSpanKind(oteltrace.SpanKindInternal),
		oteltrace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	if cached, ok := a.cache.Get(ctx, tenantID, userID); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	result, err, _ := a.group.Do(tenantID+":"+userID, func() (interface{}, error) {
		start := time.Now()

		perms, err := a.resolver.Resolve(ctx, tenantID, userID)
		if err != nil {
			a.metrics.RecordResolution("error", time.Since(start))
			return nil, err
		}
		a.metrics.RecordResolution("resolved", time.Since(start))

		a.cache.Set(ctx, perms)
		return perms, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger.WithContext(ctx).Error("permission resolution failed",
			observability.String("tenant_id", tenantID),
			observability.String("user_id", userID),
			observability.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrPermissionsUnavailable, err)
	}

	return result.(*grants.EffectivePermissions), nil
}

// Invalidate implements Authorizer.
func (a *authorizer) Invalidate(ctx context.Context, tenantID string, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}

	a.logger.WithContext(ctx).Debug("invalidating permission snapshots",
		observability.String("tenant_id", tenantID),
		observability.Int("users", len(userIDs)),
	)

	return a.cache.Invalidate(ctx, tenantID, userIDs...)
}

var _ Authorizer = (*authorizer)(nil)
