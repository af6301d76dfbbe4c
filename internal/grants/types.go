package grants

import (
	"fmt"
	"time"
)

// GranteeType says whether a grant applies to a user or a group.
type GranteeType string

// Grantee types.
const (
	GranteeUser  GranteeType = "USER"
	GranteeGroup GranteeType = "GROUP"
)

// Valid reports whether the grantee type is known.
func (g GranteeType) Valid() bool {
	return g == GranteeUser || g == GranteeGroup
}

// ResourceType selects the permission payload shape.
type ResourceType string

// Resource types.
const (
	ResourceCollection ResourceType = "COLLECTION"
	ResourceSystem     ResourceType = "SYSTEM"
	ResourceField      ResourceType = "FIELD"
)

// Valid reports whether the resource type is known.
func (r ResourceType) Valid() bool {
	switch r {
	case ResourceCollection, ResourceSystem, ResourceField:
		return true
	default:
		return false
	}
}

// CollectionPermissions are the per-collection action flags.
type CollectionPermissions struct {
	CanCreate    bool `json:"canCreate"`
	CanRead      bool `json:"canRead"`
	CanEdit      bool `json:"canEdit"`
	CanDelete    bool `json:"canDelete"`
	CanViewAll   bool `json:"canViewAll"`
	CanModifyAll bool `json:"canModifyAll"`
}

// or folds another grant's flags in. True never reverts to false.
func (p CollectionPermissions) or(other CollectionPermissions) CollectionPermissions {
	return CollectionPermissions{
		CanCreate:    p.CanCreate || other.CanCreate,
		CanRead:      p.CanRead || other.CanRead,
		CanEdit:      p.CanEdit || other.CanEdit,
		CanDelete:    p.CanDelete || other.CanDelete,
		CanViewAll:   p.CanViewAll || other.CanViewAll,
		CanModifyAll: p.CanModifyAll || other.CanModifyAll,
	}
}

// FieldVisibility is the per-field access level.
type FieldVisibility string

// Field visibility levels, least to most permissive.
const (
	FieldHidden   FieldVisibility = "HIDDEN"
	FieldReadOnly FieldVisibility = "READ_ONLY"
	FieldVisible  FieldVisibility = "VISIBLE"
)

// Valid reports whether the visibility level is known.
func (v FieldVisibility) Valid() bool {
	switch v {
	case FieldHidden, FieldReadOnly, FieldVisible:
		return true
	default:
		return false
	}
}

func (v FieldVisibility) rank() int {
	switch v {
	case FieldVisible:
		return 2
	case FieldReadOnly:
		return 1
	default:
		return 0
	}
}

// MorePermissive returns the higher of two visibility levels.
func MorePermissive(a, b FieldVisibility) FieldVisibility {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// AccessGrant gives a user or group a permission payload on one
// resource. Exactly one payload field is set, selected by ResourceType:
// Collection for COLLECTION, Granted for SYSTEM (ResourceID names the
// permission), Visibility for FIELD (ResourceID names the field).
type AccessGrant struct {
	ID           string       `json:"id"`
	TenantID     string       `json:"tenantId"`
	GranteeType  GranteeType  `json:"granteeType"`
	GranteeID    string       `json:"granteeId"`
	ResourceType ResourceType `json:"resourceType"`
	ResourceID   string       `json:"resourceId"`

	Collection *CollectionPermissions `json:"collection,omitempty"`
	Granted    *bool                  `json:"granted,omitempty"`
	Visibility FieldVisibility        `json:"visibility,omitempty"`

	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate rejects malformed grants at the write boundary so the
// resolver never sees them.
func (g *AccessGrant) Validate() error {
	if g.TenantID == "" {
		return fmt.Errorf("%w: missing tenant id", ErrInvalidGrant)
	}
	if !g.GranteeType.Valid() {
		return fmt.Errorf("%w: unknown grantee type %q", ErrInvalidGrant, g.GranteeType)
	}
	if g.GranteeID == "" {
		return fmt.Errorf("%w: missing grantee id", ErrInvalidGrant)
	}
	if !g.ResourceType.Valid() {
		return fmt.Errorf("%w: unknown resource type %q", ErrInvalidGrant, g.ResourceType)
	}
	if g.ResourceID == "" {
		return fmt.Errorf("%w: missing resource id", ErrInvalidGrant)
	}

	switch g.ResourceType {
	case ResourceCollection:
		if g.Collection == nil {
			return fmt.Errorf("%w: collection grant requires a flags payload", ErrInvalidGrant)
		}
		if g.Granted != nil || g.Visibility != "" {
			return fmt.Errorf("%w: collection grant carries extra payloads", ErrInvalidGrant)
		}
	case ResourceSystem:
		if g.Granted == nil {
			return fmt.Errorf("%w: system grant requires the granted flag", ErrInvalidGrant)
		}
		if g.Collection != nil || g.Visibility != "" {
			return fmt.Errorf("%w: system grant carries extra payloads", ErrInvalidGrant)
		}
	case ResourceField:
		if !g.Visibility.Valid() {
			return fmt.Errorf("%w: field grant requires a visibility level", ErrInvalidGrant)
		}
		if g.Collection != nil || g.Granted != nil {
			return fmt.Errorf("%w: field grant carries extra payloads", ErrInvalidGrant)
		}
	}
	return nil
}

// EffectivePermissions is the merged result for one user within one
// tenant, indexed by resource id inside each resource type. Absent
// entries mean no access.
type EffectivePermissions struct {
	TenantID string `json:"tenantId"`
	UserID   string `json:"userId"`

	// GroupIDs is the effective membership set the merge was computed
	// from, sorted. Proxied requests forward it downstream.
	GroupIDs []string `json:"groupIds"`

	Collections map[string]CollectionPermissions `json:"collections"`
	System      map[string]bool                  `json:"system"`
	Fields      map[string]FieldVisibility       `json:"fields"`

	ComputedAt time.Time `json:"computedAt"`
}

// NewEffectivePermissions returns an empty, deny-everything result.
func NewEffectivePermissions(tenantID, userID string) *EffectivePermissions {
	return &EffectivePermissions{
		TenantID:    tenantID,
		UserID:      userID,
		GroupIDs:    []string{},
		Collections: make(map[string]CollectionPermissions),
		System:      make(map[string]bool),
		Fields:      make(map[string]FieldVisibility),
		ComputedAt:  time.Now().UTC(),
	}
}

// Collection returns the flags for a collection id. Missing entries
// come back zero-valued: every action denied.
func (p *EffectivePermissions) Collection(resourceID string) CollectionPermissions {
	if p == nil {
		return CollectionPermissions{}
	}
	return p.Collections[resourceID]
}

// HasSystem reports whether the named system permission is granted.
func (p *EffectivePermissions) HasSystem(name string) bool {
	if p == nil {
		return false
	}
	return p.System[name]
}

// FieldLevel returns the visibility for a field id, HIDDEN when no
// grant mentions the field.
func (p *EffectivePermissions) FieldLevel(fieldID string) FieldVisibility {
	if p == nil {
		return FieldHidden
	}
	if v, ok := p.Fields[fieldID]; ok {
		return v
	}
	return FieldHidden
}

// apply folds one grant into the result. Inactive grants contribute
// nothing. The fold is commutative and associative, so the merged
// result is stable under any grant ordering.
func (p *EffectivePermissions) apply(grant *AccessGrant) {
	if !grant.Active {
		return
	}
	switch grant.ResourceType {
	case ResourceCollection:
		if grant.Collection != nil {
			p.Collections[grant.ResourceID] = p.Collections[grant.ResourceID].or(*grant.Collection)
		}
	case ResourceSystem:
		if grant.Granted != nil {
			p.System[grant.ResourceID] = p.System[grant.ResourceID] || *grant.Granted
		}
	case ResourceField:
		current, ok := p.Fields[grant.ResourceID]
		if !ok {
			current = FieldHidden
		}
		p.Fields[grant.ResourceID] = MorePermissive(current, grant.Visibility)
	}
}
