package authz

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cklinker/emfgw/internal/cache"
	"github.com/cklinker/emfgw/internal/grants"
	"github.com/cklinker/emfgw/internal/observability"
)

// PermissionCache stores resolved permission snapshots keyed by
// (tenant, user). Entries expire after a TTL and are evicted explicitly
// when an invalidation event names the user.
type PermissionCache struct {
	cache   cache.Cache
	ttl     time.Duration
	logger  observability.Logger
	metrics *Metrics
}

// PermissionCacheOption is a functional option for the permission cache.
type PermissionCacheOption func(*PermissionCache)

// WithPermissionCacheLogger sets the logger.
func WithPermissionCacheLogger(logger observability.Logger) PermissionCacheOption {
	return func(pc *PermissionCache) {
		pc.logger = logger
	}
}

// WithPermissionCacheMetrics sets the metrics.
func WithPermissionCacheMetrics(metrics *Metrics) PermissionCacheOption {
	return func(pc *PermissionCache) {
		pc.metrics = metrics
	}
}

// NewPermissionCache creates a permission cache over the given backend.
// A zero or negative ttl falls back to one minute.
func NewPermissionCache(c cache.Cache, ttl time.Duration, opts ...PermissionCacheOption) *PermissionCache {
	if ttl <= 0 {
		ttl = time.Minute
	}

	pc := &PermissionCache{
		cache:  c,
		ttl:    ttl,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(pc)
	}

	return pc
}

// permissionKey builds the cache key for a (tenant, user) pair.
func permissionKey(tenantID, userID string) string {
	return cache.Key("permissions", tenantID, userID)
}

// Get retrieves a cached snapshot. Any backend or decode failure is
// reported as a miss so resolution always has a path forward.
func (pc *PermissionCache) Get(ctx context.Context, tenantID, userID string) (*grants.EffectivePermissions, bool) {
	if pc == nil || pc.cache == nil {
		return nil, false
	}

	key := permissionKey(tenantID, userID)

	data, err := pc.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) && !errors.Is(err, cache.ErrCacheDisabled) {
			pc.logger.Warn("permission cache read failed",
				observability.String("key", key),
				observability.Error(err),
			)
		}
		pc.metrics.RecordCacheMiss()
		return nil, false
	}

	var perms grants.EffectivePermissions
	if err := json.Unmarshal(data, &perms); err != nil {
		pc.logger.Warn("discarding undecodable permission snapshot",
			observability.String("key", key),
			observability.Error(err),
		)
		pc.metrics.RecordCacheMiss()
		return nil, false
	}

	pc.metrics.RecordCacheHit()
	return &perms, true
}

// Set stores a snapshot with the configured TTL. Failures are logged
// and swallowed: a write that does not land only costs a future miss.
func (pc *PermissionCache) Set(ctx context.Context, perms *grants.EffectivePermissions) {
	if pc == nil || pc.cache == nil || perms == nil {
		return
	}

	key := permissionKey(perms.TenantID, perms.UserID)

	data, err := json.Marshal(perms)
	if err != nil {
		pc.logger.Warn("failed to marshal permission snapshot",
			observability.String("key", key),
			observability.Error(err),
		)
		return
	}

	if err := pc.cache.Set(ctx, key, data, pc.ttl); err != nil {
		if !errors.Is(err, cache.ErrCacheDisabled) {
			pc.logger.Warn("permission cache write failed",
				observability.String("key", key),
				observability.Error(err),
			)
		}
	}
}

// Invalidate evicts the snapshots for the named users. Eviction keeps
// going past individual failures; the first error is returned so the
// caller can log it.
func (pc *PermissionCache) Invalidate(ctx context.Context, tenantID string, userIDs ...string) error {
	if pc == nil || pc.cache == nil {
		return nil
	}

	var firstErr error
	for _, userID := range userIDs {
		key := permissionKey(tenantID, userID)

		if err := pc.cache.Delete(ctx, key); err != nil {
			if errors.Is(err, cache.ErrCacheDisabled) {
				continue
			}
			pc.logger.Warn("permission cache eviction failed",
				observability.String("key", key),
				observability.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		pc.metrics.RecordInvalidation()
	}

	return firstErr
}
