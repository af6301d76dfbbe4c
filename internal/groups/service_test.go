package groups

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(store Store) *Service {
	return NewService(store, NewResolver(store))
}

// seedOIDCGroup registers an OIDC group tracking claimName.
func (f *fakeStore) seedOIDCGroup(tenantID, groupID, claimName string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.groups[f.key(tenantID, groupID)] = &Group{
		ID:            groupID,
		TenantID:      tenantID,
		Name:          claimName,
		Type:          GroupTypePublic,
		Source:        SourceOIDC,
		OIDCGroupName: claimName,
	}
}

func (f *fakeStore) seedSystemGroup(tenantID, groupID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.groups[f.key(tenantID, groupID)] = &Group{
		ID:       groupID,
		TenantID: tenantID,
		Name:     SystemGroupName,
		Type:     GroupTypeSystem,
		Source:   SourceSystem,
	}
}

func (f *fakeStore) hasEdge(tenantID, groupID string, memberType MemberType, memberID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, edge := range f.edges {
		if edge.TenantID == tenantID && edge.GroupID == groupID &&
			edge.MemberType == memberType && edge.MemberID == memberID {
			return true
		}
	}
	return false
}

func TestSyncOIDCGroupsFirstLogin(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	service := newTestService(store)

	result, err := service.SyncOIDCGroups(context.Background(), testTenant, "u1", []string{"engineering", "sales"})
	require.NoError(t, err)
	assert.True(t, result.Changed())

	// System group plus the two claim groups were provisioned.
	assert.Len(t, result.CreatedGroupIDs, 3)
	assert.Len(t, result.JoinedGroupIDs, 3)

	system, err := store.SystemGroup(context.Background(), testTenant)
	require.NoError(t, err)
	assert.True(t, store.hasEdge(testTenant, system.ID, MemberTypeUser, "u1"))

	eng, err := store.GroupByOIDCName(context.Background(), testTenant, "engineering")
	require.NoError(t, err)
	assert.Equal(t, GroupTypePublic, eng.Type)
	assert.True(t, store.hasEdge(testTenant, eng.ID, MemberTypeUser, "u1"))
}

func TestSyncOIDCGroupsIdempotent(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	service := newTestService(store)
	claims := []string{"engineering", "sales"}

	first, err := service.SyncOIDCGroups(context.Background(), testTenant, "u1", claims)
	require.NoError(t, err)
	require.True(t, first.Changed())

	second, err := service.SyncOIDCGroups(context.Background(), testTenant, "u1", claims)
	require.NoError(t, err)
	assert.False(t, second.Changed())
	assert.Empty(t, second.CreatedGroupIDs)
}

func TestSyncOIDCGroupsRemovesStale(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.seedSystemGroup(testTenant, "sys")
	store.seedEdge(testTenant, "sys", MemberTypeUser, "u1")
	store.seedOIDCGroup(testTenant, "g-eng", "engineering")
	store.seedOIDCGroup(testTenant, "g-sales", "sales")
	store.seedEdge(testTenant, "g-eng", MemberTypeUser, "u1")
	store.seedEdge(testTenant, "g-sales", MemberTypeUser, "u1")

	service := newTestService(store)

	result, err := service.SyncOIDCGroups(context.Background(), testTenant, "u1", []string{"engineering"})
	require.NoError(t, err)
	assert.True(t, result.Changed())
	assert.Equal(t, []string{"g-sales"}, result.LeftGroupIDs)
	assert.Empty(t, result.JoinedGroupIDs)

	assert.True(t, store.hasEdge(testTenant, "g-eng", MemberTypeUser, "u1"))
	assert.False(t, store.hasEdge(testTenant, "g-sales", MemberTypeUser, "u1"))
}

func TestSyncOIDCGroupsNeverTouchesManual(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.seedSystemGroup(testTenant, "sys")
	store.seedEdge(testTenant, "sys", MemberTypeUser, "u1")
	store.seedGroup(testTenant, "manual-admins")
	store.seedEdge(testTenant, "manual-admins", MemberTypeUser, "u1")

	service := newTestService(store)

	result, err := service.SyncOIDCGroups(context.Background(), testTenant, "u1", nil)
	require.NoError(t, err)
	assert.False(t, result.Changed())

	assert.True(t, store.hasEdge(testTenant, "manual-admins", MemberTypeUser, "u1"))
	assert.True(t, store.hasEdge(testTenant, "sys", MemberTypeUser, "u1"))
}

func TestSyncOIDCGroupsReusesExistingGroup(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.seedSystemGroup(testTenant, "sys")
	store.seedEdge(testTenant, "sys", MemberTypeUser, "u1")
	store.seedOIDCGroup(testTenant, "g-eng", "engineering")

	service := newTestService(store)

	result, err := service.SyncOIDCGroups(context.Background(), testTenant, "u1", []string{"engineering"})
	require.NoError(t, err)
	assert.Empty(t, result.CreatedGroupIDs)
	assert.Equal(t, []string{"g-eng"}, result.JoinedGroupIDs)
}

func TestCreateGroupRejectsSystemType(t *testing.T) {
	t.Parallel()

	service := newTestService(newFakeStore())

	err := service.CreateGroup(context.Background(), &Group{
		TenantID: testTenant,
		Name:     "rogue",
		Type:     GroupTypeSystem,
		Source:   SourceSystem,
	})
	assert.ErrorIs(t, err, ErrSystemGroup)
}

func TestCreateGroupValidation(t *testing.T) {
	t.Parallel()

	service := newTestService(newFakeStore())

	err := service.CreateGroup(context.Background(), &Group{
		TenantID: testTenant,
		Name:     "broken",
		Type:     GroupTypePublic,
		Source:   SourceManual,
		// oidcGroupName without OIDC source is invalid.
		OIDCGroupName: "engineering",
	})
	assert.ErrorIs(t, err, ErrInvalidGroup)
}

func TestDeleteGroupSystemImmutable(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.seedSystemGroup(testTenant, "sys")

	service := newTestService(store)

	_, err := service.DeleteGroup(context.Background(), testTenant, "sys")
	assert.ErrorIs(t, err, ErrSystemGroup)
}

func TestDeleteGroupReturnsAffectedUsers(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.seedGroup(testTenant, "parent")
	store.seedGroup(testTenant, "child")
	store.seedEdge(testTenant, "parent", MemberTypeGroup, "child")
	store.seedEdge(testTenant, "parent", MemberTypeUser, "u1")
	store.seedEdge(testTenant, "child", MemberTypeUser, "u2")

	service := newTestService(store)

	affected, err := service.DeleteGroup(context.Background(), testTenant, "parent")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, affected)

	_, err = store.GroupByID(context.Background(), testTenant, "parent")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestAddChildGroupRejectsSelf(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.seedGroup(testTenant, "g1")

	service := newTestService(store)

	_, err := service.AddChildGroup(context.Background(), testTenant, "g1", "g1")
	assert.ErrorIs(t, err, ErrSelfMembership)
}

func TestAddChildGroupAffectedUsers(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.seedGroup(testTenant, "parent")
	store.seedGroup(testTenant, "child")
	store.seedEdge(testTenant, "child", MemberTypeUser, "u1")
	store.seedEdge(testTenant, "child", MemberTypeUser, "u2")

	service := newTestService(store)

	affected, err := service.AddChildGroup(context.Background(), testTenant, "parent", "child")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, affected)
	assert.True(t, store.hasEdge(testTenant, "parent", MemberTypeGroup, "child"))
}

func TestAddChildGroupIdempotent(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.seedGroup(testTenant, "parent")
	store.seedGroup(testTenant, "child")
	store.seedEdge(testTenant, "parent", MemberTypeGroup, "child")

	service := newTestService(store)

	affected, err := service.AddChildGroup(context.Background(), testTenant, "parent", "child")
	require.NoError(t, err)
	assert.Nil(t, affected)
}

func TestRemoveChildGroupAffectedBeforeRemoval(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.seedGroup(testTenant, "parent")
	store.seedGroup(testTenant, "child")
	store.seedEdge(testTenant, "parent", MemberTypeGroup, "child")
	store.seedEdge(testTenant, "child", MemberTypeUser, "u1")

	service := newTestService(store)

	affected, err := service.RemoveChildGroup(context.Background(), testTenant, "parent", "child")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, affected)
	assert.False(t, store.hasEdge(testTenant, "parent", MemberTypeGroup, "child"))
}

func TestAddUserToGroup(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.seedGroup(testTenant, "g1")

	service := newTestService(store)

	affected, err := service.AddUserToGroup(context.Background(), testTenant, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, affected)

	// Second add is a no-op with no invalidation.
	affected, err = service.AddUserToGroup(context.Background(), testTenant, "g1", "u1")
	require.NoError(t, err)
	assert.Nil(t, affected)
}

func TestRemoveUserFromGroup(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.seedGroup(testTenant, "g1")
	store.seedEdge(testTenant, "g1", MemberTypeUser, "u1")

	service := newTestService(store)

	affected, err := service.RemoveUserFromGroup(context.Background(), testTenant, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, affected)

	affected, err = service.RemoveUserFromGroup(context.Background(), testTenant, "g1", "u1")
	require.NoError(t, err)
	assert.Nil(t, affected)
}
