package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cklinker/emfgw/internal/groups"
)

const groupColumns = `id, tenant_id, name, type, source, description, oidc_group_name, created_at, updated_at`

func scanGroup(row rowScanner) (*groups.Group, error) {
	var g groups.Group
	var oidcName sql.NullString
	err := row.Scan(&g.ID, &g.TenantID, &g.Name, &g.Type, &g.Source,
		&g.Description, &oidcName, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	g.OIDCGroupName = oidcName.String
	return &g, nil
}

// GroupByID implements groups.Store.
func (s *Store) GroupByID(ctx context.Context, tenantID, groupID string) (*groups.Group, error) {
	const query = `SELECT ` + groupColumns + ` FROM groups WHERE tenant_id = $1 AND id = $2`

	group, err := scanGroup(s.db.QueryRowContext(ctx, query, tenantID, groupID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", groups.ErrGroupNotFound, groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading group %s: %w", groupID, err)
	}
	return group, nil
}

// GroupByOIDCName implements groups.Store.
func (s *Store) GroupByOIDCName(ctx context.Context, tenantID, oidcName string) (*groups.Group, error) {
	const query = `SELECT ` + groupColumns + ` FROM groups
		WHERE tenant_id = $1 AND source = $2 AND oidc_group_name = $3`

	group, err := scanGroup(s.db.QueryRowContext(ctx, query, tenantID, string(groups.SourceOIDC), oidcName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: oidc name %q", groups.ErrGroupNotFound, oidcName)
	}
	if err != nil {
		return nil, fmt.Errorf("loading oidc group %q: %w", oidcName, err)
	}
	return group, nil
}

// SystemGroup implements groups.Store. The partial unique index
// guarantees at most one row.
func (s *Store) SystemGroup(ctx context.Context, tenantID string) (*groups.Group, error) {
	const query = `SELECT ` + groupColumns + ` FROM groups WHERE tenant_id = $1 AND type = $2`

	group, err := scanGroup(s.db.QueryRowContext(ctx, query, tenantID, string(groups.GroupTypeSystem)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no system group for tenant %s", groups.ErrGroupNotFound, tenantID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading system group: %w", err)
	}
	return group, nil
}

// ListGroups implements groups.Store. Results are ordered by name.
func (s *Store) ListGroups(ctx context.Context, tenantID string) ([]*groups.Group, error) {
	const query = `SELECT ` + groupColumns + ` FROM groups WHERE tenant_id = $1 ORDER BY name, id`

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	defer rows.Close()

	var list []*groups.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		list = append(list, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating groups: %w", err)
	}
	return list, nil
}

// CreateGroup implements groups.Store.
func (s *Store) CreateGroup(ctx context.Context, group *groups.Group) error {
	if err := s.guard.CheckWrite(ctx, group.TenantID); err != nil {
		return err
	}

	const query = `INSERT INTO groups
		(id, tenant_id, name, type, source, description, oidc_group_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	var oidcName any
	if group.OIDCGroupName != "" {
		oidcName = group.OIDCGroupName
	}
	_, err := s.db.ExecContext(ctx, query,
		group.ID, group.TenantID, group.Name, string(group.Type), string(group.Source),
		group.Description, oidcName, group.CreatedAt, group.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", groups.ErrDuplicateGroup, group.Name)
	}
	if err != nil {
		return fmt.Errorf("creating group %s: %w", group.ID, err)
	}
	return nil
}

// DeleteGroup implements groups.Store. Memberships owned by the group
// cascade through the foreign key.
func (s *Store) DeleteGroup(ctx context.Context, tenantID, groupID string) error {
	if err := s.guard.CheckWrite(ctx, tenantID); err != nil {
		return err
	}

	const query = `DELETE FROM groups WHERE tenant_id = $1 AND id = $2`

	res, err := s.db.ExecContext(ctx, query, tenantID, groupID)
	if err != nil {
		return fmt.Errorf("deleting group %s: %w", groupID, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: %s", groups.ErrGroupNotFound, groupID)
	}
	return nil
}

const membershipColumns = `id, tenant_id, group_id, member_type, member_id, created_at`

func scanMembership(row rowScanner) (*groups.Membership, error) {
	var m groups.Membership
	err := row.Scan(&m.ID, &m.TenantID, &m.GroupID, &m.MemberType, &m.MemberID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GroupsContainingMember implements groups.Store. Results are ordered
// by group id.
func (s *Store) GroupsContainingMember(ctx context.Context, tenantID string, memberType groups.MemberType, memberID string) ([]*groups.Membership, error) {
	const query = `SELECT ` + membershipColumns + ` FROM group_memberships
		WHERE tenant_id = $1 AND member_type = $2 AND member_id = $3
		ORDER BY group_id`

	rows, err := s.db.QueryContext(ctx, query, tenantID, string(memberType), memberID)
	if err != nil {
		return nil, fmt.Errorf("listing containers of %s %s: %w", memberType, memberID, err)
	}
	defer rows.Close()

	return collectMemberships(rows)
}

// GroupMembers implements groups.Store. Results are ordered by member id.
func (s *Store) GroupMembers(ctx context.Context, tenantID, groupID string) ([]*groups.Membership, error) {
	const query = `SELECT ` + membershipColumns + ` FROM group_memberships
		WHERE tenant_id = $1 AND group_id = $2
		ORDER BY member_id`

	rows, err := s.db.QueryContext(ctx, query, tenantID, groupID)
	if err != nil {
		return nil, fmt.Errorf("listing members of group %s: %w", groupID, err)
	}
	defer rows.Close()

	return collectMemberships(rows)
}

func collectMemberships(rows *sql.Rows) ([]*groups.Membership, error) {
	var edges []*groups.Membership
	for rows.Next() {
		edge, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning membership: %w", err)
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating memberships: %w", err)
	}
	return edges, nil
}

// AddMembership implements groups.Store. A missing containing group
// surfaces as ErrGroupNotFound via the foreign key.
func (s *Store) AddMembership(ctx context.Context, membership *groups.Membership) error {
	if err := s.guard.CheckWrite(ctx, membership.TenantID); err != nil {
		return err
	}

	const query = `INSERT INTO group_memberships
		(id, tenant_id, group_id, member_type, member_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.ExecContext(ctx, query,
		membership.ID, membership.TenantID, membership.GroupID,
		string(membership.MemberType), membership.MemberID, membership.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s in group %s", groups.ErrDuplicateMember, membership.MemberID, membership.GroupID)
	}
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: %s", groups.ErrGroupNotFound, membership.GroupID)
	}
	if err != nil {
		return fmt.Errorf("adding membership %s: %w", membership.ID, err)
	}
	return nil
}

// RemoveMembership implements groups.Store.
func (s *Store) RemoveMembership(ctx context.Context, tenantID, groupID string, memberType groups.MemberType, memberID string) error {
	if err := s.guard.CheckWrite(ctx, tenantID); err != nil {
		return err
	}

	const query = `DELETE FROM group_memberships
		WHERE tenant_id = $1 AND group_id = $2 AND member_type = $3 AND member_id = $4`

	res, err := s.db.ExecContext(ctx, query, tenantID, groupID, string(memberType), memberID)
	if err != nil {
		return fmt.Errorf("removing membership: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: %s %s in group %s", groups.ErrMembershipNotFound, memberType, memberID, groupID)
	}
	return nil
}
