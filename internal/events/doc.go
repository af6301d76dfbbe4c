// Package events moves permission invalidations and route table
// changes between gateway instances over Redis pub/sub.
//
// The control plane (or this gateway's own internal API) publishes an
// invalidation event whenever a grant or membership change could alter
// a user's effective permissions; every instance's consumer evicts the
// named snapshots. Route change events upsert, delete or atomically
// replace entries in the route registry.
//
// Delivery is best-effort: malformed payloads are logged and dropped,
// handler failures are logged and do not stop the subscription loop. A
// dropped invalidation only extends staleness until the cache TTL
// expires the snapshot.
package events
