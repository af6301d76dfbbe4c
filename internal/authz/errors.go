package authz

import "errors"

var (
	// ErrNoIdentity is returned when enforcement runs without an
	// authenticated identity in the request context.
	ErrNoIdentity = errors.New("no identity in request context")

	// ErrNoTenant is returned when enforcement runs without a tenant
	// bound to the request context.
	ErrNoTenant = errors.New("no tenant in request context")

	// ErrPermissionsUnavailable is returned when a permission snapshot
	// could not be resolved. Callers must treat this as a denial.
	ErrPermissionsUnavailable = errors.New("permissions unavailable")
)
