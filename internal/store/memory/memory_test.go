package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cklinker/emfgw/internal/grants"
	"github.com/cklinker/emfgw/internal/groups"
	"github.com/cklinker/emfgw/internal/router"
	"github.com/cklinker/emfgw/internal/tenant"
)

func testGroup(tenantID, id, name string) *groups.Group {
	now := time.Now().UTC()
	return &groups.Group{
		ID:        id,
		TenantID:  tenantID,
		Name:      name,
		Type:      groups.GroupTypePublic,
		Source:    groups.SourceManual,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testEdge(tenantID, id, groupID string, memberType groups.MemberType, memberID string) *groups.Membership {
	return &groups.Membership{
		ID:         id,
		TenantID:   tenantID,
		GroupID:    groupID,
		MemberType: memberType,
		MemberID:   memberID,
		CreatedAt:  time.Now().UTC(),
	}
}

func collectionGrant(tenantID, id, granteeID string, flags grants.CollectionPermissions) *grants.AccessGrant {
	now := time.Now().UTC()
	return &grants.AccessGrant{
		ID:           id,
		TenantID:     tenantID,
		GranteeType:  grants.GranteeUser,
		GranteeID:    granteeID,
		ResourceType: grants.ResourceCollection,
		ResourceID:   "orders",
		Collection:   &flags,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestTenantBySlug(t *testing.T) {
	t.Parallel()

	s := New()
	s.AddTenant(&tenant.Tenant{ID: "tenant-1", Slug: "acme", Name: "Acme"})

	got, err := s.TenantBySlug(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", got.ID)

	_, err = s.TenantBySlug(context.Background(), "nope")
	assert.ErrorIs(t, err, tenant.ErrUnknownTenant)
}

func TestGroupLifecycle(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateGroup(ctx, testGroup("tenant-1", "grp-1", "engineering")))

	got, err := s.GroupByID(ctx, "tenant-1", "grp-1")
	require.NoError(t, err)
	assert.Equal(t, "engineering", got.Name)

	// The returned group is a copy; mutating it must not leak back.
	got.Name = "mutated"
	again, err := s.GroupByID(ctx, "tenant-1", "grp-1")
	require.NoError(t, err)
	assert.Equal(t, "engineering", again.Name)

	_, err = s.GroupByID(ctx, "tenant-2", "grp-1")
	assert.ErrorIs(t, err, groups.ErrGroupNotFound)

	err = s.CreateGroup(ctx, testGroup("tenant-1", "grp-1", "engineering"))
	assert.ErrorIs(t, err, groups.ErrDuplicateGroup)

	require.NoError(t, s.DeleteGroup(ctx, "tenant-1", "grp-1"))
	assert.ErrorIs(t, s.DeleteGroup(ctx, "tenant-1", "grp-1"), groups.ErrGroupNotFound)
}

func TestCreateGroup_OIDCNameUnique(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	first := testGroup("tenant-1", "grp-1", "sales")
	first.Source = groups.SourceOIDC
	first.OIDCGroupName = "sales"
	require.NoError(t, s.CreateGroup(ctx, first))

	second := testGroup("tenant-1", "grp-2", "sales")
	second.Source = groups.SourceOIDC
	second.OIDCGroupName = "sales"
	assert.ErrorIs(t, s.CreateGroup(ctx, second), groups.ErrDuplicateGroup)

	// Same claim name in another tenant is fine.
	third := testGroup("tenant-2", "grp-3", "sales")
	third.Source = groups.SourceOIDC
	third.OIDCGroupName = "sales"
	assert.NoError(t, s.CreateGroup(ctx, third))

	found, err := s.GroupByOIDCName(ctx, "tenant-1", "sales")
	require.NoError(t, err)
	assert.Equal(t, "grp-1", found.ID)

	_, err = s.GroupByOIDCName(ctx, "tenant-1", "marketing")
	assert.ErrorIs(t, err, groups.ErrGroupNotFound)
}

func TestSystemGroup_OnePerTenant(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	_, err := s.SystemGroup(ctx, "tenant-1")
	assert.ErrorIs(t, err, groups.ErrGroupNotFound)

	system := testGroup("tenant-1", "grp-sys", "All Users")
	system.Type = groups.GroupTypeSystem
	system.Source = groups.SourceSystem
	require.NoError(t, s.CreateGroup(ctx, system))

	got, err := s.SystemGroup(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "grp-sys", got.ID)

	second := testGroup("tenant-1", "grp-sys-2", "All Users Again")
	second.Type = groups.GroupTypeSystem
	second.Source = groups.SourceSystem
	assert.ErrorIs(t, s.CreateGroup(ctx, second), groups.ErrDuplicateGroup)
}

func TestListGroups_SortedByName(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateGroup(ctx, testGroup("tenant-1", "grp-1", "zeta")))
	require.NoError(t, s.CreateGroup(ctx, testGroup("tenant-1", "grp-2", "alpha")))
	require.NoError(t, s.CreateGroup(ctx, testGroup("tenant-2", "grp-3", "other")))

	list, err := s.ListGroups(ctx, "tenant-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "zeta", list[1].Name)
}

func TestMemberships(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateGroup(ctx, testGroup("tenant-1", "grp-1", "engineering")))
	require.NoError(t, s.CreateGroup(ctx, testGroup("tenant-1", "grp-2", "oncall")))

	err := s.AddMembership(ctx, testEdge("tenant-1", "m-0", "missing", groups.MemberTypeUser, "user-1"))
	assert.ErrorIs(t, err, groups.ErrGroupNotFound)

	require.NoError(t, s.AddMembership(ctx, testEdge("tenant-1", "m-1", "grp-1", groups.MemberTypeUser, "user-1")))
	require.NoError(t, s.AddMembership(ctx, testEdge("tenant-1", "m-2", "grp-2", groups.MemberTypeUser, "user-1")))
	require.NoError(t, s.AddMembership(ctx, testEdge("tenant-1", "m-3", "grp-1", groups.MemberTypeGroup, "grp-2")))

	err = s.AddMembership(ctx, testEdge("tenant-1", "m-4", "grp-1", groups.MemberTypeUser, "user-1"))
	assert.ErrorIs(t, err, groups.ErrDuplicateMember)

	containers, err := s.GroupsContainingMember(ctx, "tenant-1", groups.MemberTypeUser, "user-1")
	require.NoError(t, err)
	require.Len(t, containers, 2)
	assert.Equal(t, "grp-1", containers[0].GroupID)
	assert.Equal(t, "grp-2", containers[1].GroupID)

	members, err := s.GroupMembers(ctx, "tenant-1", "grp-1")
	require.NoError(t, err)
	require.Len(t, members, 2)

	require.NoError(t, s.RemoveMembership(ctx, "tenant-1", "grp-2", groups.MemberTypeUser, "user-1"))
	err = s.RemoveMembership(ctx, "tenant-1", "grp-2", groups.MemberTypeUser, "user-1")
	assert.ErrorIs(t, err, groups.ErrMembershipNotFound)
}

func TestDeleteGroup_CascadesOwnedEdges(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateGroup(ctx, testGroup("tenant-1", "grp-1", "parent")))
	require.NoError(t, s.CreateGroup(ctx, testGroup("tenant-1", "grp-2", "child")))
	require.NoError(t, s.AddMembership(ctx, testEdge("tenant-1", "m-1", "grp-2", groups.MemberTypeUser, "user-1")))
	require.NoError(t, s.AddMembership(ctx, testEdge("tenant-1", "m-2", "grp-1", groups.MemberTypeGroup, "grp-2")))

	require.NoError(t, s.DeleteGroup(ctx, "tenant-1", "grp-2"))

	// Edges owned by the deleted group are gone.
	members, err := s.GroupMembers(ctx, "tenant-1", "grp-2")
	require.NoError(t, err)
	assert.Empty(t, members)

	// The edge naming it as a member of grp-1 dangles, matching the
	// Postgres foreign keys; resolvers tolerate it.
	members, err = s.GroupMembers(ctx, "tenant-1", "grp-1")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "grp-2", members[0].MemberID)
}

func TestActiveGrantsFor(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	readOnly := grants.CollectionPermissions{CanRead: true}

	require.NoError(t, s.CreateGrant(ctx, collectionGrant("tenant-1", "g-user", "user-1", readOnly)))

	groupGrant := collectionGrant("tenant-1", "g-group", "grp-1", readOnly)
	groupGrant.GranteeType = grants.GranteeGroup
	require.NoError(t, s.CreateGrant(ctx, groupGrant))

	inactive := collectionGrant("tenant-1", "g-inactive", "user-1", readOnly)
	inactive.Active = false
	require.NoError(t, s.CreateGrant(ctx, inactive))

	otherUser := collectionGrant("tenant-1", "g-other", "user-2", readOnly)
	require.NoError(t, s.CreateGrant(ctx, otherUser))

	otherTenant := collectionGrant("tenant-2", "g-t2", "user-1", readOnly)
	require.NoError(t, s.CreateGrant(ctx, otherTenant))

	list, err := s.ActiveGrantsFor(ctx, "tenant-1", "user-1", []string{"grp-1"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "g-group", list[0].ID)
	assert.Equal(t, "g-user", list[1].ID)

	// No effective groups: only the direct user grant remains.
	list, err = s.ActiveGrantsFor(ctx, "tenant-1", "user-1", nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "g-user", list[0].ID)
}

func TestGrantLifecycle(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	grant := collectionGrant("tenant-1", "g-1", "user-1", grants.CollectionPermissions{CanRead: true})
	require.NoError(t, s.CreateGrant(ctx, grant))
	assert.ErrorIs(t, s.CreateGrant(ctx, grant), grants.ErrDuplicateGrant)

	// The stored grant does not alias the caller's payload.
	grant.Collection.CanDelete = true
	stored, err := s.GrantByID(ctx, "tenant-1", "g-1")
	require.NoError(t, err)
	assert.False(t, stored.Collection.CanDelete)

	require.NoError(t, s.SetGrantActive(ctx, "tenant-1", "g-1", false))
	stored, err = s.GrantByID(ctx, "tenant-1", "g-1")
	require.NoError(t, err)
	assert.False(t, stored.Active)

	assert.ErrorIs(t, s.SetGrantActive(ctx, "tenant-1", "missing", true), grants.ErrGrantNotFound)

	require.NoError(t, s.DeleteGrant(ctx, "tenant-1", "g-1"))
	_, err = s.GrantByID(ctx, "tenant-1", "g-1")
	assert.ErrorIs(t, err, grants.ErrGrantNotFound)
}

func TestCrossTenantWriteBlocked(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := tenant.ContextWithTenant(context.Background(), &tenant.Context{TenantID: "tenant-2", Slug: "other"})

	err := s.CreateGroup(ctx, testGroup("tenant-1", "grp-1", "engineering"))
	require.Error(t, err)
	assert.True(t, tenant.IsCrossTenantWrite(err))

	// The write never landed.
	_, err = s.GroupByID(context.Background(), "tenant-1", "grp-1")
	assert.ErrorIs(t, err, groups.ErrGroupNotFound)

	err = s.CreateGrant(ctx, collectionGrant("tenant-1", "g-1", "user-1", grants.CollectionPermissions{}))
	assert.True(t, tenant.IsCrossTenantWrite(err))

	// A context bound to the entity's own tenant passes.
	own := tenant.ContextWithTenant(context.Background(), &tenant.Context{TenantID: "tenant-1", Slug: "acme"})
	assert.NoError(t, s.CreateGroup(own, testGroup("tenant-1", "grp-1", "engineering")))
}

func TestRoutes(t *testing.T) {
	t.Parallel()

	s := New()
	s.AddRoute(router.RouteDefinition{ID: "r-2", Path: "/api/leads/**", BackendURL: "http://leads:8080", Service: "leads"})
	s.AddRoute(router.RouteDefinition{ID: "r-1", Path: "/api/orders/**", BackendURL: "http://orders:8080", Service: "orders"})

	routes, err := s.Routes(context.Background())
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, "r-1", routes[0].ID)
	assert.Equal(t, "r-2", routes[1].ID)
}

func TestPingAndClose(t *testing.T) {
	t.Parallel()

	s := New()
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}
