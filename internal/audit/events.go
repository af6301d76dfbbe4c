package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies an audit event.
type EventType string

// Event types.
const (
	EventTypeSecurity      EventType = "security"
	EventTypeAuthorization EventType = "authorization"
	EventTypeMembership    EventType = "membership"
)

// Action identifies what happened.
type Action string

// Actions.
const (
	ActionCrossTenantWrite Action = "cross_tenant_write"
	ActionAccessDenied     Action = "access_denied"
	ActionGroupSync        Action = "group_sync"
	ActionGroupChange      Action = "group_change"
	ActionGrantChange      Action = "grant_change"
)

// Outcome is the result of the audited action.
type Outcome string

// Outcomes.
const (
	OutcomeBlocked Outcome = "blocked"
	OutcomeDenied  Outcome = "denied"
	OutcomeApplied Outcome = "applied"
)

// Event is a single audit record.
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Action    Action         `json:"action"`
	Outcome   Outcome        `json:"outcome"`
	TenantID  string         `json:"tenantId,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	Resource  string         `json:"resource,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// NewEvent creates an event with a fresh id and timestamp.
func NewEvent(eventType EventType, action Action, outcome Outcome) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		Action:    action,
		Outcome:   outcome,
	}
}
