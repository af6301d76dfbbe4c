package tenant

import (
	"context"
	"sync"
	"time"
)

// Tenant is an isolated customer partition.
type Tenant struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name,omitempty"`
}

// Directory resolves tenant slugs to tenants. Implemented by the store.
type Directory interface {
	// TenantBySlug returns the tenant for slug, or ErrUnknownTenant.
	TenantBySlug(ctx context.Context, slug string) (*Tenant, error)
}

// slugCacheEntry is a cached slug resolution.
type slugCacheEntry struct {
	tenant    *Tenant
	expiresAt time.Time
}

// CachedDirectory wraps a Directory with a TTL cache keyed by slug.
// Slug-to-tenant bindings change rarely; a short TTL keeps lookups off
// the hot path without holding deleted tenants for long.
type CachedDirectory struct {
	next Directory
	ttl  time.Duration

	mu      sync.RWMutex
	entries map[string]slugCacheEntry
}

// NewCachedDirectory creates a caching directory with the given TTL.
func NewCachedDirectory(next Directory, ttl time.Duration) *CachedDirectory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedDirectory{
		next:    next,
		ttl:     ttl,
		entries: make(map[string]slugCacheEntry),
	}
}

// TenantBySlug resolves through the cache. Negative results are not
// cached so a freshly created tenant becomes routable immediately.
func (d *CachedDirectory) TenantBySlug(ctx context.Context, slug string) (*Tenant, error) {
	d.mu.RLock()
	entry, ok := d.entries[slug]
	d.mu.RUnlock()

	if ok && time.Now().Before(entry.expiresAt) {
		return entry.tenant, nil
	}

	tenant, err := d.next.TenantBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.entries[slug] = slugCacheEntry{
		tenant:    tenant,
		expiresAt: time.Now().Add(d.ttl),
	}
	d.mu.Unlock()

	return tenant, nil
}

// Invalidate drops the cached entry for slug.
func (d *CachedDirectory) Invalidate(slug string) {
	d.mu.Lock()
	delete(d.entries, slug)
	d.mu.Unlock()
}
