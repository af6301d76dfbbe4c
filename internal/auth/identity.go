package auth

import (
	"context"
	"time"
)

// Identity is the authenticated caller bound to a request.
type Identity struct {
	// UserID is the platform user id, taken from the configured claim.
	UserID string `json:"userId"`

	// Email is the email claim when present.
	Email string `json:"email,omitempty"`

	// Issuer is the token issuer.
	Issuer string `json:"issuer,omitempty"`

	// ExpiresAt is the token expiry.
	ExpiresAt time.Time `json:"expiresAt,omitempty"`

	// Claims carries the remaining private claims.
	Claims map[string]any `json:"claims,omitempty"`
}

type identityCtxKey struct{}

// ContextWithIdentity binds an identity to the context.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, identity)
}

// IdentityFromContext returns the identity bound to the context, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey{}).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

// UserID returns the bound identity's user id, or "" when no identity
// is bound.
func UserID(ctx context.Context) string {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return ""
	}
	return identity.UserID
}
