package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cklinker/emfgw/internal/grants"
	"github.com/cklinker/emfgw/internal/groups"
	"github.com/cklinker/emfgw/internal/observability"
	"github.com/cklinker/emfgw/internal/tenant"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &Store{
		db:     db,
		guard:  tenant.NewGuard(),
		logger: observability.NopLogger(),
	}, mock
}

func groupRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "name", "type", "source",
		"description", "oidc_group_name", "created_at", "updated_at",
	})
}

func membershipRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "group_id", "member_type", "member_id", "created_at",
	})
}

func grantRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "grantee_type", "grantee_id", "resource_type",
		"resource_id", "payload", "active", "created_at", "updated_at",
	})
}

func TestTenantBySlug(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, slug, name FROM tenants").
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "name"}).
			AddRow("tenant-1", "acme", "Acme"))

	got, err := s.TenantBySlug(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", got.ID)
	assert.Equal(t, "Acme", got.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTenantBySlug_Unknown(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, slug, name FROM tenants").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := s.TenantBySlug(context.Background(), "ghost")
	assert.ErrorIs(t, err, tenant.ErrUnknownTenant)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupByID(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM groups WHERE tenant_id").
		WithArgs("tenant-1", "grp-1").
		WillReturnRows(groupRows().
			AddRow("grp-1", "tenant-1", "engineering", "PUBLIC", "MANUAL", "", nil, now, now))

	got, err := s.GroupByID(context.Background(), "tenant-1", "grp-1")
	require.NoError(t, err)
	assert.Equal(t, "engineering", got.Name)
	assert.Equal(t, groups.GroupTypePublic, got.Type)
	assert.Equal(t, groups.SourceManual, got.Source)
	assert.Empty(t, got.OIDCGroupName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupByID_NotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectQuery("FROM groups WHERE tenant_id").
		WithArgs("tenant-1", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GroupByID(context.Background(), "tenant-1", "missing")
	assert.ErrorIs(t, err, groups.ErrGroupNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupByOIDCName(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM groups").
		WithArgs("tenant-1", "OIDC", "sales").
		WillReturnRows(groupRows().
			AddRow("grp-2", "tenant-1", "sales", "PUBLIC", "OIDC", "", "sales", now, now))

	got, err := s.GroupByOIDCName(context.Background(), "tenant-1", "sales")
	require.NoError(t, err)
	assert.Equal(t, "grp-2", got.ID)
	assert.Equal(t, "sales", got.OIDCGroupName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSystemGroup(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM groups").
		WithArgs("tenant-1", "SYSTEM").
		WillReturnRows(groupRows().
			AddRow("grp-sys", "tenant-1", "All Users", "SYSTEM", "SYSTEM", "", nil, now, now))

	got, err := s.SystemGroup(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, groups.GroupTypeSystem, got.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListGroups(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM groups WHERE tenant_id").
		WithArgs("tenant-1").
		WillReturnRows(groupRows().
			AddRow("grp-2", "tenant-1", "alpha", "PUBLIC", "MANUAL", "", nil, now, now).
			AddRow("grp-1", "tenant-1", "zeta", "QUEUE", "MANUAL", "queue group", nil, now, now))

	list, err := s.ListGroups(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, groups.GroupTypeQueue, list[1].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGroup(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec("INSERT INTO groups").
		WithArgs("grp-1", "tenant-1", "engineering", "PUBLIC", "MANUAL", "", nil,
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.CreateGroup(context.Background(), &groups.Group{
		ID:        "grp-1",
		TenantID:  "tenant-1",
		Name:      "engineering",
		Type:      groups.GroupTypePublic,
		Source:    groups.SourceManual,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGroup_Duplicate(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO groups").
		WillReturnError(&pq.Error{Code: "23505"})

	err := s.CreateGroup(context.Background(), &groups.Group{
		ID:       "grp-1",
		TenantID: "tenant-1",
		Name:     "engineering",
		Type:     groups.GroupTypePublic,
		Source:   groups.SourceManual,
	})
	assert.ErrorIs(t, err, groups.ErrDuplicateGroup)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGroup_CrossTenantBlocked(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	ctx := tenant.ContextWithTenant(context.Background(), &tenant.Context{TenantID: "tenant-2", Slug: "other"})

	err := s.CreateGroup(ctx, &groups.Group{
		ID:       "grp-1",
		TenantID: "tenant-1",
		Name:     "engineering",
		Type:     groups.GroupTypePublic,
		Source:   groups.SourceManual,
	})
	require.Error(t, err)
	assert.True(t, tenant.IsCrossTenantWrite(err))

	// The statement never reached the database.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteGroup_NotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM groups").
		WithArgs("tenant-1", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteGroup(context.Background(), "tenant-1", "missing")
	assert.ErrorIs(t, err, groups.ErrGroupNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupsContainingMember(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM group_memberships").
		WithArgs("tenant-1", "USER", "user-1").
		WillReturnRows(membershipRows().
			AddRow("m-1", "tenant-1", "grp-1", "USER", "user-1", now).
			AddRow("m-2", "tenant-1", "grp-2", "USER", "user-1", now))

	edges, err := s.GroupsContainingMember(context.Background(), "tenant-1", groups.MemberTypeUser, "user-1")
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, "grp-1", edges[0].GroupID)
	assert.Equal(t, groups.MemberTypeUser, edges[0].MemberType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMembership_Duplicate(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO group_memberships").
		WillReturnError(&pq.Error{Code: "23505"})

	err := s.AddMembership(context.Background(), &groups.Membership{
		ID:         "m-1",
		TenantID:   "tenant-1",
		GroupID:    "grp-1",
		MemberType: groups.MemberTypeUser,
		MemberID:   "user-1",
	})
	assert.ErrorIs(t, err, groups.ErrDuplicateMember)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMembership_MissingGroup(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO group_memberships").
		WillReturnError(&pq.Error{Code: "23503"})

	err := s.AddMembership(context.Background(), &groups.Membership{
		ID:         "m-1",
		TenantID:   "tenant-1",
		GroupID:    "missing",
		MemberType: groups.MemberTypeUser,
		MemberID:   "user-1",
	})
	assert.ErrorIs(t, err, groups.ErrGroupNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveMembership_NotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM group_memberships").
		WithArgs("tenant-1", "grp-1", "USER", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.RemoveMembership(context.Background(), "tenant-1", "grp-1", groups.MemberTypeUser, "user-1")
	assert.ErrorIs(t, err, groups.ErrMembershipNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveGrantsFor(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM access_grants").
		WithArgs("tenant-1", "USER", "user-1", "GROUP", pq.Array([]string{"grp-1", "grp-2"})).
		WillReturnRows(grantRows().
			AddRow("g-1", "tenant-1", "USER", "user-1", "COLLECTION", "orders",
				[]byte(`{"collection":{"canCreate":false,"canRead":true,"canEdit":false,"canDelete":false,"canViewAll":false,"canModifyAll":false}}`),
				true, now, now).
			AddRow("g-2", "tenant-1", "GROUP", "grp-1", "SYSTEM", "manage_users",
				[]byte(`{"granted":true}`), true, now, now))

	list, err := s.ActiveGrantsFor(context.Background(), "tenant-1", "user-1", []string{"grp-1", "grp-2"})
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NotNil(t, list[0].Collection)
	assert.True(t, list[0].Collection.CanRead)
	assert.False(t, list[0].Collection.CanEdit)

	require.NotNil(t, list[1].Granted)
	assert.True(t, *list[1].Granted)
	assert.Equal(t, grants.ResourceSystem, list[1].ResourceType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveGrantsFor_UndecodablePayload(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM access_grants").
		WillReturnRows(grantRows().
			AddRow("g-1", "tenant-1", "USER", "user-1", "COLLECTION", "orders",
				[]byte(`{broken`), true, now, now))

	_, err := s.ActiveGrantsFor(context.Background(), "tenant-1", "user-1", nil)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGrant(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	now := time.Now().UTC()
	flags := grants.CollectionPermissions{CanRead: true}

	mock.ExpectExec("INSERT INTO access_grants").
		WithArgs("g-1", "tenant-1", "USER", "user-1", "COLLECTION", "orders",
			sqlmock.AnyArg(), true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.CreateGrant(context.Background(), &grants.AccessGrant{
		ID:           "g-1",
		TenantID:     "tenant-1",
		GranteeType:  grants.GranteeUser,
		GranteeID:    "user-1",
		ResourceType: grants.ResourceCollection,
		ResourceID:   "orders",
		Collection:   &flags,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGrant_Duplicate(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO access_grants").
		WillReturnError(&pq.Error{Code: "23505"})

	granted := true
	err := s.CreateGrant(context.Background(), &grants.AccessGrant{
		ID:           "g-1",
		TenantID:     "tenant-1",
		GranteeType:  grants.GranteeUser,
		GranteeID:    "user-1",
		ResourceType: grants.ResourceSystem,
		ResourceID:   "manage_users",
		Granted:      &granted,
		Active:       true,
	})
	assert.ErrorIs(t, err, grants.ErrDuplicateGrant)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetGrantActive_NotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE access_grants").
		WithArgs("tenant-1", "missing", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.SetGrantActive(context.Background(), "tenant-1", "missing", false)
	assert.ErrorIs(t, err, grants.ErrGrantNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantByID_NotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectQuery("FROM access_grants").
		WithArgs("tenant-1", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GrantByID(context.Background(), "tenant-1", "missing")
	assert.ErrorIs(t, err, grants.ErrGrantNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoutes(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, path, backend_url, service FROM routes").
		WillReturnRows(sqlmock.NewRows([]string{"id", "path", "backend_url", "service"}).
			AddRow("r-1", "/api/orders/**", "http://orders:8080", "orders").
			AddRow("r-2", "/api/leads/**", "http://leads:8080", "leads"))

	routes, err := s.Routes(context.Background())
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, "/api/orders/**", routes[0].Path)
	assert.Equal(t, "leads", routes[1].Service)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS tenants").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
