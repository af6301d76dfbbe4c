// Package memory is the in-process store backend. One RWMutex guards
// plain maps; nothing survives a restart. It exists for tests and
// single-node development, and mirrors the Postgres backend's error
// mapping so callers cannot tell them apart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cklinker/emfgw/internal/grants"
	"github.com/cklinker/emfgw/internal/groups"
	"github.com/cklinker/emfgw/internal/router"
	"github.com/cklinker/emfgw/internal/tenant"
)

// Store keeps all gateway state in memory.
type Store struct {
	guard *tenant.Guard

	mu          sync.RWMutex
	tenants     map[string]*tenant.Tenant                 // by slug
	groups      map[string]map[string]*groups.Group       // tenant id -> group id
	memberships map[string]map[string]*groups.Membership  // tenant id -> edge key
	grants      map[string]map[string]*grants.AccessGrant // tenant id -> grant id
	routes      map[string]router.RouteDefinition         // route id
}

// Option configures the store.
type Option func(*Store)

// WithGuard sets the tenant isolation guard consulted before writes.
func WithGuard(guard *tenant.Guard) Option {
	return func(s *Store) {
		if guard != nil {
			s.guard = guard
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		guard:       tenant.NewGuard(),
		tenants:     make(map[string]*tenant.Tenant),
		groups:      make(map[string]map[string]*groups.Group),
		memberships: make(map[string]map[string]*groups.Membership),
		grants:      make(map[string]map[string]*grants.AccessGrant),
		routes:      make(map[string]router.RouteDefinition),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// edgeKey identifies a membership by its unique tuple.
func edgeKey(groupID string, memberType groups.MemberType, memberID string) string {
	return groupID + "/" + string(memberType) + "/" + memberID
}

func copyGroup(g *groups.Group) *groups.Group {
	copied := *g
	return &copied
}

func copyMembership(m *groups.Membership) *groups.Membership {
	copied := *m
	return &copied
}

// copyGrant clones the grant including its pointer payload so callers
// never alias store-owned data.
func copyGrant(g *grants.AccessGrant) *grants.AccessGrant {
	copied := *g
	if g.Collection != nil {
		flags := *g.Collection
		copied.Collection = &flags
	}
	if g.Granted != nil {
		granted := *g.Granted
		copied.Granted = &granted
	}
	return &copied
}

// --- tenants ---

// AddTenant registers a tenant. Dev seeding and tests only; production
// tenants are provisioned by the control plane.
func (s *Store) AddTenant(t *tenant.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *t
	s.tenants[t.Slug] = &copied
}

// TenantBySlug implements tenant.Directory.
func (s *Store) TenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %s", tenant.ErrUnknownTenant, slug)
	}
	copied := *t
	return &copied, nil
}

// --- groups ---

// GroupByID implements groups.Store.
func (s *Store) GroupByID(ctx context.Context, tenantID, groupID string) (*groups.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	group, ok := s.groups[tenantID][groupID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", groups.ErrGroupNotFound, groupID)
	}
	return copyGroup(group), nil
}

// GroupByOIDCName implements groups.Store.
func (s *Store) GroupByOIDCName(ctx context.Context, tenantID, oidcName string) (*groups.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, group := range s.groups[tenantID] {
		if group.Source == groups.SourceOIDC && group.OIDCGroupName == oidcName {
			return copyGroup(group), nil
		}
	}
	return nil, fmt.Errorf("%w: oidc name %q", groups.ErrGroupNotFound, oidcName)
}

// SystemGroup implements groups.Store.
func (s *Store) SystemGroup(ctx context.Context, tenantID string) (*groups.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, group := range s.groups[tenantID] {
		if group.Type == groups.GroupTypeSystem {
			return copyGroup(group), nil
		}
	}
	return nil, fmt.Errorf("%w: no system group for tenant %s", groups.ErrGroupNotFound, tenantID)
}

// ListGroups implements groups.Store. Results are ordered by name.
func (s *Store) ListGroups(ctx context.Context, tenantID string) ([]*groups.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*groups.Group, 0, len(s.groups[tenantID]))
	for _, group := range s.groups[tenantID] {
		list = append(list, copyGroup(group))
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

// CreateGroup implements groups.Store. The uniqueness rules match the
// Postgres indexes: one id, one OIDC claim name and one SYSTEM group
// per tenant.
func (s *Store) CreateGroup(ctx context.Context, group *groups.Group) error {
	if err := s.guard.CheckWrite(ctx, group.TenantID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.groups[group.TenantID]
	if byID == nil {
		byID = make(map[string]*groups.Group)
		s.groups[group.TenantID] = byID
	}

	if _, exists := byID[group.ID]; exists {
		return fmt.Errorf("%w: id %s", groups.ErrDuplicateGroup, group.ID)
	}
	for _, existing := range byID {
		if group.Source == groups.SourceOIDC &&
			existing.Source == groups.SourceOIDC &&
			existing.OIDCGroupName == group.OIDCGroupName {
			return fmt.Errorf("%w: oidc name %q", groups.ErrDuplicateGroup, group.OIDCGroupName)
		}
		if group.Type == groups.GroupTypeSystem && existing.Type == groups.GroupTypeSystem {
			return fmt.Errorf("%w: tenant %s already has a system group", groups.ErrDuplicateGroup, group.TenantID)
		}
	}

	byID[group.ID] = copyGroup(group)
	return nil
}

// DeleteGroup implements groups.Store. Edges owned by the group cascade;
// edges elsewhere that name it as a member dangle, as they would under
// the Postgres foreign keys.
func (s *Store) DeleteGroup(ctx context.Context, tenantID, groupID string) error {
	if err := s.guard.CheckWrite(ctx, tenantID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[tenantID][groupID]; !ok {
		return fmt.Errorf("%w: %s", groups.ErrGroupNotFound, groupID)
	}
	delete(s.groups[tenantID], groupID)

	for key, edge := range s.memberships[tenantID] {
		if edge.GroupID == groupID {
			delete(s.memberships[tenantID], key)
		}
	}
	return nil
}

// GroupsContainingMember implements groups.Store. Results are ordered
// by group id.
func (s *Store) GroupsContainingMember(ctx context.Context, tenantID string, memberType groups.MemberType, memberID string) ([]*groups.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var edges []*groups.Membership
	for _, edge := range s.memberships[tenantID] {
		if edge.MemberType == memberType && edge.MemberID == memberID {
			edges = append(edges, copyMembership(edge))
		}
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].GroupID < edges[j].GroupID })
	return edges, nil
}

// GroupMembers implements groups.Store. Results are ordered by member id.
func (s *Store) GroupMembers(ctx context.Context, tenantID, groupID string) ([]*groups.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var edges []*groups.Membership
	for _, edge := range s.memberships[tenantID] {
		if edge.GroupID == groupID {
			edges = append(edges, copyMembership(edge))
		}
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].MemberID < edges[j].MemberID })
	return edges, nil
}

// AddMembership implements groups.Store. The containing group must
// exist, matching the foreign key the Postgres backend enforces.
func (s *Store) AddMembership(ctx context.Context, membership *groups.Membership) error {
	if err := s.guard.CheckWrite(ctx, membership.TenantID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[membership.TenantID][membership.GroupID]; !ok {
		return fmt.Errorf("%w: %s", groups.ErrGroupNotFound, membership.GroupID)
	}

	byKey := s.memberships[membership.TenantID]
	if byKey == nil {
		byKey = make(map[string]*groups.Membership)
		s.memberships[membership.TenantID] = byKey
	}

	key := edgeKey(membership.GroupID, membership.MemberType, membership.MemberID)
	if _, exists := byKey[key]; exists {
		return fmt.Errorf("%w: %s", groups.ErrDuplicateMember, key)
	}
	byKey[key] = copyMembership(membership)
	return nil
}

// RemoveMembership implements groups.Store.
func (s *Store) RemoveMembership(ctx context.Context, tenantID, groupID string, memberType groups.MemberType, memberID string) error {
	if err := s.guard.CheckWrite(ctx, tenantID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey(groupID, memberType, memberID)
	if _, ok := s.memberships[tenantID][key]; !ok {
		return fmt.Errorf("%w: %s", groups.ErrMembershipNotFound, key)
	}
	delete(s.memberships[tenantID], key)
	return nil
}

// --- grants ---

// ActiveGrantsFor implements grants.Store. Results are ordered by id.
func (s *Store) ActiveGrantsFor(ctx context.Context, tenantID, userID string, groupIDs []string) ([]*grants.AccessGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groupSet := make(map[string]struct{}, len(groupIDs))
	for _, id := range groupIDs {
		groupSet[id] = struct{}{}
	}

	var result []*grants.AccessGrant
	for _, grant := range s.grants[tenantID] {
		if !grant.Active {
			continue
		}
		switch grant.GranteeType {
		case grants.GranteeUser:
			if grant.GranteeID != userID {
				continue
			}
		case grants.GranteeGroup:
			if _, ok := groupSet[grant.GranteeID]; !ok {
				continue
			}
		default:
			continue
		}
		result = append(result, copyGrant(grant))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// GrantByID implements grants.Store.
func (s *Store) GrantByID(ctx context.Context, tenantID, grantID string) (*grants.AccessGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grant, ok := s.grants[tenantID][grantID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", grants.ErrGrantNotFound, grantID)
	}
	return copyGrant(grant), nil
}

// CreateGrant implements grants.Store.
func (s *Store) CreateGrant(ctx context.Context, grant *grants.AccessGrant) error {
	if err := s.guard.CheckWrite(ctx, grant.TenantID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.grants[grant.TenantID]
	if byID == nil {
		byID = make(map[string]*grants.AccessGrant)
		s.grants[grant.TenantID] = byID
	}
	if _, exists := byID[grant.ID]; exists {
		return fmt.Errorf("%w: %s", grants.ErrDuplicateGrant, grant.ID)
	}
	byID[grant.ID] = copyGrant(grant)
	return nil
}

// SetGrantActive implements grants.Store.
func (s *Store) SetGrantActive(ctx context.Context, tenantID, grantID string, active bool) error {
	if err := s.guard.CheckWrite(ctx, tenantID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	grant, ok := s.grants[tenantID][grantID]
	if !ok {
		return fmt.Errorf("%w: %s", grants.ErrGrantNotFound, grantID)
	}
	grant.Active = active
	grant.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteGrant implements grants.Store.
func (s *Store) DeleteGrant(ctx context.Context, tenantID, grantID string) error {
	if err := s.guard.CheckWrite(ctx, tenantID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.grants[tenantID][grantID]; !ok {
		return fmt.Errorf("%w: %s", grants.ErrGrantNotFound, grantID)
	}
	delete(s.grants[tenantID], grantID)
	return nil
}

// --- routes ---

// AddRoute seeds a bootstrap route. Dev seeding and tests only.
func (s *Store) AddRoute(def router.RouteDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.routes[def.ID] = def
}

// Routes returns the seeded route table ordered by id.
func (s *Store) Routes(ctx context.Context) ([]router.RouteDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]router.RouteDefinition, 0, len(s.routes))
	for _, def := range s.routes {
		list = append(list, def)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// Ping implements the readiness probe. Memory is always reachable.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Close implements the store surface. Nothing to release.
func (s *Store) Close() error {
	return nil
}

var (
	_ groups.Store     = (*Store)(nil)
	_ grants.Store     = (*Store)(nil)
	_ tenant.Directory = (*Store)(nil)
)
