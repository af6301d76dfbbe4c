package proxy

import "errors"

// Sentinel errors for proxy operations.
var (
	// ErrNoRoute indicates no registered pattern matched the request
	// path. This is a normal condition answered with 404.
	ErrNoRoute = errors.New("no matching route")

	// ErrBadBackend indicates the matched route's backend URL could not
	// be used as a proxy target.
	ErrBadBackend = errors.New("invalid backend url")
)
