package store

import "errors"

// ErrInvalidConfig reports unusable store configuration.
var ErrInvalidConfig = errors.New("invalid store configuration")
