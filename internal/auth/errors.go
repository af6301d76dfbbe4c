package auth

import "errors"

// Sentinel errors for token verification.
var (
	// ErrNoCredentials indicates the request carried no bearer token.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidToken indicates the token failed verification.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired indicates the token is past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrNoKeySource indicates the verifier has neither a JWKS endpoint
	// nor a static secret to verify against.
	ErrNoKeySource = errors.New("no key source configured")
)
