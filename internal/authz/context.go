package authz

import (
	"context"

	"github.com/cklinker/emfgw/internal/grants"
)

type permissionsCtxKey struct{}

// ContextWithPermissions binds a resolved snapshot to the context so
// the proxy can forward identity headers without a second lookup.
func ContextWithPermissions(ctx context.Context, perms *grants.EffectivePermissions) context.Context {
	return context.WithValue(ctx, permissionsCtxKey{}, perms)
}

// PermissionsFromContext returns the snapshot bound by the enforcement
// middleware, if any.
func PermissionsFromContext(ctx context.Context) (*grants.EffectivePermissions, bool) {
	perms, ok := ctx.Value(permissionsCtxKey{}).(*grants.EffectivePermissions)
	if !ok || perms == nil {
		return nil, false
	}
	return perms, true
}
