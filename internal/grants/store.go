package grants

import "context"

// Store is the persistence boundary for access grants.
type Store interface {
	// ActiveGrantsFor returns every active grant in the tenant whose
	// grantee is the user directly or any of the given group ids.
	ActiveGrantsFor(ctx context.Context, tenantID, userID string, groupIDs []string) ([]*AccessGrant, error)

	// GrantByID returns the grant or ErrGrantNotFound.
	GrantByID(ctx context.Context, tenantID, grantID string) (*AccessGrant, error)

	// CreateGrant persists a new grant.
	CreateGrant(ctx context.Context, grant *AccessGrant) error

	// SetGrantActive flips the active flag, or ErrGrantNotFound.
	SetGrantActive(ctx context.Context, tenantID, grantID string, active bool) error

	// DeleteGrant removes the grant, or ErrGrantNotFound.
	DeleteGrant(ctx context.Context, tenantID, grantID string) error
}
