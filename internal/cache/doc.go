// Package cache provides the permission cache backends for the gateway.
//
// Two backends are available: an in-process LRU cache for single-instance
// deployments and a Redis-backed cache for multi-instance deployments where
// invalidation events must take effect across all gateway replicas. Both
// implement the Cache interface and are selected through config.CacheConfig.
//
// Values are opaque byte slices. Callers own serialization; the authz
// package stores JSON-encoded permission snapshots keyed per tenant and
// user. A disabled cache satisfies the interface and rejects every
// operation with ErrCacheDisabled so callers fall through to recomputing.
package cache
