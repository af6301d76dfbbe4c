package router

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Sentinel errors for registry operations.
var (
	ErrRouteNotFound  = errors.New("route not found")
	ErrDuplicateRoute = errors.New("duplicate route")
	ErrInvalidRoute   = errors.New("invalid route")
)

// RouteDefinition maps a path pattern to a backend worker. Patterns
// are exact paths or carry a wildcard suffix: "/**" matches any number
// of trailing segments, "/*" matches exactly one. Routes are shared
// infrastructure and carry no tenant reference.
type RouteDefinition struct {
	ID         string `json:"id"`
	Path       string `json:"path"`
	BackendURL string `json:"backendUrl"`
	Service    string `json:"service"`
}

// Validate checks the definition before it enters the table.
func (d *RouteDefinition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRoute)
	}
	if d.Path == "" || !strings.HasPrefix(d.Path, "/") {
		return fmt.Errorf("%w: path must start with /", ErrInvalidRoute)
	}
	if d.Service == "" {
		return fmt.Errorf("%w: missing service", ErrInvalidRoute)
	}
	parsed, err := url.Parse(d.BackendURL)
	if err != nil {
		return fmt.Errorf("%w: backend url: %v", ErrInvalidRoute, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: backend url scheme must be http or https", ErrInvalidRoute)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: backend url missing host", ErrInvalidRoute)
	}
	return nil
}
