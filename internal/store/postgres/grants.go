package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/cklinker/emfgw/internal/grants"
)

const grantColumns = `id, tenant_id, grantee_type, grantee_id, resource_type, resource_id, payload, active, created_at, updated_at`

// grantPayload is the JSONB payload column. Exactly one field is set,
// matching the grant's resource type.
type grantPayload struct {
	Collection *grants.CollectionPermissions `json:"collection,omitempty"`
	Granted    *bool                         `json:"granted,omitempty"`
	Visibility grants.FieldVisibility        `json:"visibility,omitempty"`
}

func scanGrant(row rowScanner) (*grants.AccessGrant, error) {
	var g grants.AccessGrant
	var payload []byte
	err := row.Scan(&g.ID, &g.TenantID, &g.GranteeType, &g.GranteeID,
		&g.ResourceType, &g.ResourceID, &payload, &g.Active, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}

	var p grantPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decoding payload of grant %s: %w", g.ID, err)
	}
	g.Collection = p.Collection
	g.Granted = p.Granted
	g.Visibility = p.Visibility
	return &g, nil
}

// ActiveGrantsFor implements grants.Store. Results are ordered by id.
func (s *Store) ActiveGrantsFor(ctx context.Context, tenantID, userID string, groupIDs []string) ([]*grants.AccessGrant, error) {
	const query = `SELECT ` + grantColumns + ` FROM access_grants
		WHERE tenant_id = $1
		  AND active
		  AND ((grantee_type = $2 AND grantee_id = $3)
		    OR (grantee_type = $4 AND grantee_id = ANY($5)))
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query,
		tenantID, string(grants.GranteeUser), userID,
		string(grants.GranteeGroup), pq.Array(groupIDs))
	if err != nil {
		return nil, fmt.Errorf("listing grants for user %s: %w", userID, err)
	}
	defer rows.Close()

	var list []*grants.AccessGrant
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning grant: %w", err)
		}
		list = append(list, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating grants: %w", err)
	}
	return list, nil
}

// GrantByID implements grants.Store.
func (s *Store) GrantByID(ctx context.Context, tenantID, grantID string) (*grants.AccessGrant, error) {
	const query = `SELECT ` + grantColumns + ` FROM access_grants WHERE tenant_id = $1 AND id = $2`

	grant, err := scanGrant(s.db.QueryRowContext(ctx, query, tenantID, grantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", grants.ErrGrantNotFound, grantID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading grant %s: %w", grantID, err)
	}
	return grant, nil
}

// CreateGrant implements grants.Store.
func (s *Store) CreateGrant(ctx context.Context, grant *grants.AccessGrant) error {
	if err := s.guard.CheckWrite(ctx, grant.TenantID); err != nil {
		return err
	}

	payload, err := json.Marshal(grantPayload{
		Collection: grant.Collection,
		Granted:    grant.Granted,
		Visibility: grant.Visibility,
	})
	if err != nil {
		return fmt.Errorf("encoding payload of grant %s: %w", grant.ID, err)
	}

	const query = `INSERT INTO access_grants
		(id, tenant_id, grantee_type, grantee_id, resource_type, resource_id, payload, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = s.db.ExecContext(ctx, query,
		grant.ID, grant.TenantID, string(grant.GranteeType), grant.GranteeID,
		string(grant.ResourceType), grant.ResourceID, payload, grant.Active,
		grant.CreatedAt, grant.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", grants.ErrDuplicateGrant, grant.ID)
	}
	if err != nil {
		return fmt.Errorf("creating grant %s: %w", grant.ID, err)
	}
	return nil
}

// SetGrantActive implements grants.Store.
func (s *Store) SetGrantActive(ctx context.Context, tenantID, grantID string, active bool) error {
	if err := s.guard.CheckWrite(ctx, tenantID); err != nil {
		return err
	}

	const query = `UPDATE access_grants SET active = $3, updated_at = $4 WHERE tenant_id = $1 AND id = $2`

	res, err := s.db.ExecContext(ctx, query, tenantID, grantID, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("updating grant %s: %w", grantID, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: %s", grants.ErrGrantNotFound, grantID)
	}
	return nil
}

// DeleteGrant implements grants.Store.
func (s *Store) DeleteGrant(ctx context.Context, tenantID, grantID string) error {
	if err := s.guard.CheckWrite(ctx, tenantID); err != nil {
		return err
	}

	const query = `DELETE FROM access_grants WHERE tenant_id = $1 AND id = $2`

	res, err := s.db.ExecContext(ctx, query, tenantID, grantID)
	if err != nil {
		return fmt.Errorf("deleting grant %s: %w", grantID, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: %s", grants.ErrGrantNotFound, grantID)
	}
	return nil
}
