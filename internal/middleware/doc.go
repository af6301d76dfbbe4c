// Package middleware provides the generic HTTP middleware of the
// gateway: panic recovery, request ids, request logging and the
// backend circuit breaker. Domain middleware (tenant binding, token
// verification, permission enforcement) lives with its domain package.
package middleware
