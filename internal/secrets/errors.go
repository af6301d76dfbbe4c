package secrets

import "errors"

// Sentinel errors for secret resolution.
var (
	// ErrSecretNotFound indicates the named secret does not exist in
	// the backend.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrInvalidName indicates the secret name is empty or escapes the
	// provider's namespace.
	ErrInvalidName = errors.New("invalid secret name")
)
