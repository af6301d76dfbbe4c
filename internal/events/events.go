package events

import (
	"fmt"

	"github.com/cklinker/emfgw/internal/router"
)

// RouteChangeAction identifies what a route change event does to the
// table.
type RouteChangeAction string

const (
	// RouteActionUpsert adds or replaces the routes in the payload.
	RouteActionUpsert RouteChangeAction = "upsert"

	// RouteActionDelete removes the route named by RouteID.
	RouteActionDelete RouteChangeAction = "delete"

	// RouteActionReplace swaps the whole table for the payload.
	RouteActionReplace RouteChangeAction = "replace"
)

// PermissionInvalidationEvent names users whose cached permission
// snapshots must be evicted.
type PermissionInvalidationEvent struct {
	TenantID        string   `json:"tenantId"`
	AffectedUserIDs []string `json:"affectedUserIds"`
}

// Validate checks the event carries enough to act on.
func (e *PermissionInvalidationEvent) Validate() error {
	if e.TenantID == "" {
		return fmt.Errorf("%w: missing tenantId", ErrMalformedEvent)
	}
	if len(e.AffectedUserIDs) == 0 {
		return fmt.Errorf("%w: no affected user ids", ErrMalformedEvent)
	}
	return nil
}

// RouteChangeEvent describes a change to the route table.
type RouteChangeEvent struct {
	Action RouteChangeAction `json:"action"`

	// Routes carries the definitions for upsert and replace actions.
	Routes []router.RouteDefinition `json:"routes,omitempty"`

	// RouteID names the route for the delete action.
	RouteID string `json:"routeId,omitempty"`
}

// Validate checks the event carries enough to act on. Route payload
// validation happens in the registry.
func (e *RouteChangeEvent) Validate() error {
	switch e.Action {
	case RouteActionUpsert:
		if len(e.Routes) == 0 {
			return fmt.Errorf("%w: upsert without routes", ErrMalformedEvent)
		}
	case RouteActionDelete:
		if e.RouteID == "" {
			return fmt.Errorf("%w: delete without routeId", ErrMalformedEvent)
		}
	case RouteActionReplace:
		// An empty set is a legal replace: it clears the table.
	default:
		return fmt.Errorf("%w: unknown action %q", ErrMalformedEvent, e.Action)
	}
	return nil
}
