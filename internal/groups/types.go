package groups

import (
	"fmt"
	"time"
)

// GroupType classifies how a group is used.
type GroupType string

// Group types.
const (
	GroupTypePublic GroupType = "PUBLIC"
	GroupTypeQueue  GroupType = "QUEUE"
	GroupTypeSystem GroupType = "SYSTEM"
)

// Valid reports whether the group type is known.
func (t GroupType) Valid() bool {
	switch t {
	case GroupTypePublic, GroupTypeQueue, GroupTypeSystem:
		return true
	default:
		return false
	}
}

// GroupSource records where a group's membership is managed.
type GroupSource string

// Group sources.
const (
	SourceManual GroupSource = "MANUAL"
	SourceOIDC   GroupSource = "OIDC"
	SourceSystem GroupSource = "SYSTEM"
)

// Valid reports whether the group source is known.
func (s GroupSource) Valid() bool {
	switch s {
	case SourceManual, SourceOIDC, SourceSystem:
		return true
	default:
		return false
	}
}

// MemberType discriminates membership edge targets.
type MemberType string

// Member types.
const (
	MemberTypeUser  MemberType = "USER"
	MemberTypeGroup MemberType = "GROUP"
)

// Valid reports whether the member type is known.
func (m MemberType) Valid() bool {
	return m == MemberTypeUser || m == MemberTypeGroup
}

// Group is a named set of users and nested groups within a tenant.
// Each tenant has exactly one SYSTEM group representing all
// authenticated users.
type Group struct {
	ID          string      `json:"id"`
	TenantID    string      `json:"tenantId"`
	Name        string      `json:"name"`
	Type        GroupType   `json:"type"`
	Source      GroupSource `json:"source"`
	Description string      `json:"description,omitempty"`

	// OIDCGroupName is the identity provider claim value this group
	// tracks. Set iff Source is OIDC.
	OIDCGroupName string `json:"oidcGroupName,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks structural invariants before a write.
func (g *Group) Validate() error {
	if g.TenantID == "" {
		return fmt.Errorf("%w: missing tenant id", ErrInvalidGroup)
	}
	if g.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidGroup)
	}
	if !g.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidGroup, g.Type)
	}
	if !g.Source.Valid() {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidGroup, g.Source)
	}
	if g.Source == SourceOIDC && g.OIDCGroupName == "" {
		return fmt.Errorf("%w: OIDC group requires oidcGroupName", ErrInvalidGroup)
	}
	if g.Source != SourceOIDC && g.OIDCGroupName != "" {
		return fmt.Errorf("%w: oidcGroupName only valid for OIDC groups", ErrInvalidGroup)
	}
	return nil
}

// Membership is a directed edge: member is contained in group. USER
// edges are leaves; GROUP edges nest and may form cycles. Edges are
// unique per (tenant, group, memberType, member) tuple and are owned
// by the containing group, cascading with its deletion.
type Membership struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenantId"`
	GroupID    string     `json:"groupId"`
	MemberType MemberType `json:"memberType"`
	MemberID   string     `json:"memberId"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Validate checks structural invariants before a write.
func (m *Membership) Validate() error {
	if m.TenantID == "" {
		return fmt.Errorf("%w: missing tenant id", ErrInvalidMembership)
	}
	if m.GroupID == "" {
		return fmt.Errorf("%w: missing group id", ErrInvalidMembership)
	}
	if !m.MemberType.Valid() {
		return fmt.Errorf("%w: unknown member type %q", ErrInvalidMembership, m.MemberType)
	}
	if m.MemberID == "" {
		return fmt.Errorf("%w: missing member id", ErrInvalidMembership)
	}
	if m.MemberType == MemberTypeGroup && m.MemberID == m.GroupID {
		return fmt.Errorf("%w: group %s cannot contain itself", ErrSelfMembership, m.GroupID)
	}
	return nil
}
