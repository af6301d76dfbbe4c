// Package tenant enforces per-tenant isolation: it binds the
// (tenantId, tenantSlug) pair to the request context at entry, scopes
// reads to that tenant, and aborts any write whose entity belongs to a
// different tenant.
//
// The binding lives in the request context, so it is released on every
// exit path (normal return, panic, timeout) together with the request
// itself and can never leak into a reused goroutine.
package tenant
