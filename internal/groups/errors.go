package groups

import "errors"

// Sentinel errors returned by stores and the service. Stores map their
// engine-specific failures onto these so callers can branch without
// knowing the backend.
var (
	ErrGroupNotFound      = errors.New("group not found")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrDuplicateGroup     = errors.New("group already exists")
	ErrDuplicateMember    = errors.New("membership already exists")
	ErrInvalidGroup       = errors.New("invalid group")
	ErrInvalidMembership  = errors.New("invalid membership")
	ErrSelfMembership     = errors.New("self membership not allowed")
	ErrSystemGroup        = errors.New("system group cannot be modified")
)
