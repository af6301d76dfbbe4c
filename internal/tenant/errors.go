package tenant

import (
	"errors"
	"fmt"
)

// Sentinel errors for tenant isolation.
var (
	// ErrNoTenant indicates that no tenant is bound to the context.
	ErrNoTenant = errors.New("no tenant in context")

	// ErrUnknownTenant indicates that a slug did not resolve to a tenant.
	ErrUnknownTenant = errors.New("unknown tenant")

	// ErrCrossTenantWrite indicates a write whose entity belongs to a
	// different tenant than the request context. This is fatal for the
	// operation and must never be swallowed.
	ErrCrossTenantWrite = errors.New("cross-tenant write")
)

// CrossTenantWriteError carries both tenant ids of a blocked write.
type CrossTenantWriteError struct {
	ContextTenantID string
	EntityTenantID  string
}

// Error implements the error interface.
func (e *CrossTenantWriteError) Error() string {
	return fmt.Sprintf("cross-tenant write: context tenant %q, entity tenant %q",
		e.ContextTenantID, e.EntityTenantID)
}

// Unwrap returns ErrCrossTenantWrite so errors.Is works.
func (e *CrossTenantWriteError) Unwrap() error {
	return ErrCrossTenantWrite
}

// IsCrossTenantWrite reports whether err is a cross-tenant write violation.
func IsCrossTenantWrite(err error) bool {
	return errors.Is(err, ErrCrossTenantWrite)
}
