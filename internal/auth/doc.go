// Package auth verifies bearer tokens on inbound requests and binds the
// resulting identity to the request context.
//
// Verification is backed by lestrrat-go/jwx: either a JWKS endpoint with
// a periodically refreshed key set, or a static HS256 secret for
// development setups. The platform user id is taken from a configurable
// claim, "sub" by default. Downstream packages read the identity through
// IdentityFromContext; the authorization layer denies requests that carry
// none.
package auth
