// Package authz orchestrates permission resolution and enforces access
// on proxied collection routes.
//
// The Authorizer is a read-through layer over the grants resolver: a
// cached permission snapshot short-circuits resolution entirely, a miss
// resolves and stores the result with a TTL. Invalidation events evict
// exactly the (tenant, user) keys they name, so a stale snapshot can be
// served at most once between a permission change and its processed
// invalidation event.
//
// The enforcement middleware derives the required collection from the
// matched route's service name and checks the request method against
// the snapshot's collection flags. Denials are 403, resolution failures
// are 503. The middleware never fails open: a missing identity, an
// unknown collection or an unreachable store all block the request.
package authz
