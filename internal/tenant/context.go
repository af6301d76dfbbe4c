package tenant

import "context"

// Context is the request-scoped tenant binding.
type Context struct {
	TenantID string
	Slug     string
}

type ctxKey struct{}

// ContextWithTenant binds tc to ctx.
func ContextWithTenant(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext returns the tenant binding, if any.
func FromContext(ctx context.Context) (*Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(*Context)
	return tc, ok
}

// ID returns the bound tenant id, or "" when none is bound.
func ID(ctx context.Context) string {
	if tc, ok := FromContext(ctx); ok {
		return tc.TenantID
	}
	return ""
}

// ScopedID returns the bound tenant id or ErrNoTenant, so callers that
// must run tenant-scoped cannot accidentally run unscoped.
func ScopedID(ctx context.Context) (string, error) {
	tc, ok := FromContext(ctx)
	if !ok || tc.TenantID == "" {
		return "", ErrNoTenant
	}
	return tc.TenantID, nil
}
