package grants

import "errors"

// Sentinel errors shared by stores and the service.
var (
	ErrGrantNotFound  = errors.New("grant not found")
	ErrDuplicateGrant = errors.New("grant already exists")
	ErrInvalidGrant   = errors.New("invalid grant")
)
