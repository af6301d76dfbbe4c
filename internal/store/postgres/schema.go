package postgres

import (
	"context"
	"fmt"
)

// schema is the DDL the store depends on. Every statement is idempotent
// so the gateway can apply it on each start; the control plane owns the
// authoritative migrations and this set only guarantees a fresh
// database is usable.
const schema = `
CREATE TABLE IF NOT EXISTS tenants (
    id         TEXT PRIMARY KEY,
    slug       TEXT NOT NULL UNIQUE,
    name       TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS groups (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL REFERENCES tenants (id),
    name            TEXT NOT NULL,
    type            TEXT NOT NULL,
    source          TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    oidc_group_name TEXT,
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS groups_tenant_idx ON groups (tenant_id);

CREATE UNIQUE INDEX IF NOT EXISTS groups_tenant_oidc_name_idx
    ON groups (tenant_id, oidc_group_name) WHERE source = 'OIDC';

CREATE UNIQUE INDEX IF NOT EXISTS groups_tenant_system_idx
    ON groups (tenant_id) WHERE type = 'SYSTEM';

CREATE TABLE IF NOT EXISTS group_memberships (
    id          TEXT PRIMARY KEY,
    tenant_id   TEXT NOT NULL,
    group_id    TEXT NOT NULL REFERENCES groups (id) ON DELETE CASCADE,
    member_type TEXT NOT NULL,
    member_id   TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL,
    UNIQUE (tenant_id, group_id, member_type, member_id)
);

CREATE INDEX IF NOT EXISTS group_memberships_member_idx
    ON group_memberships (tenant_id, member_type, member_id);

CREATE TABLE IF NOT EXISTS access_grants (
    id            TEXT PRIMARY KEY,
    tenant_id     TEXT NOT NULL,
    grantee_type  TEXT NOT NULL,
    grantee_id    TEXT NOT NULL,
    resource_type TEXT NOT NULL,
    resource_id   TEXT NOT NULL,
    payload       JSONB NOT NULL,
    active        BOOLEAN NOT NULL DEFAULT TRUE,
    created_at    TIMESTAMPTZ NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS access_grants_grantee_idx
    ON access_grants (tenant_id, grantee_type, grantee_id) WHERE active;

CREATE TABLE IF NOT EXISTS routes (
    id          TEXT PRIMARY KEY,
    path        TEXT NOT NULL UNIQUE,
    backend_url TEXT NOT NULL,
    service     TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema applies the idempotent DDL.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
