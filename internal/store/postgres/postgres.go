// Package postgres is the PostgreSQL store backend. Every query is
// parameterized and tenant-scoped, writes consult the tenant guard
// first, and engine failures are mapped onto the callers' sentinel
// errors at this boundary.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/cklinker/emfgw/internal/config"
	"github.com/cklinker/emfgw/internal/observability"
	"github.com/cklinker/emfgw/internal/router"
	"github.com/cklinker/emfgw/internal/tenant"
)

// connectTimeout bounds the startup connectivity check.
const connectTimeout = 5 * time.Second

// Store persists gateway state in PostgreSQL.
type Store struct {
	db     *sql.DB
	guard  *tenant.Guard
	logger observability.Logger
}

// Option configures the store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGuard sets the tenant isolation guard consulted before writes.
func WithGuard(guard *tenant.Guard) Option {
	return func(s *Store) {
		if guard != nil {
			s.guard = guard
		}
	}
}

// New opens a connection pool, verifies connectivity and applies the
// idempotent schema.
func New(ctx context.Context, dsn string, cfg *config.PostgresConfig, opts ...Option) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.GetMaxOpenConns())
	db.SetMaxIdleConns(cfg.GetMaxIdleConns())
	db.SetConnMaxLifetime(cfg.GetConnMaxLifetime())

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	s := &Store{
		db:     db,
		guard:  tenant.NewGuard(),
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.logger.Info("postgres store connected",
		observability.Int("max_open_conns", cfg.GetMaxOpenConns()),
		observability.Int("max_idle_conns", cfg.GetMaxIdleConns()),
	)
	return s, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// isUniqueViolation reports a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// isForeignKeyViolation reports a Postgres foreign_key_violation.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

// TenantBySlug implements tenant.Directory.
func (s *Store) TenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	const query = `SELECT id, slug, name FROM tenants WHERE slug = $1`

	var t tenant.Tenant
	err := s.db.QueryRowContext(ctx, query, slug).Scan(&t.ID, &t.Slug, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", tenant.ErrUnknownTenant, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("loading tenant %q: %w", slug, err)
	}
	return &t, nil
}

// Routes returns the persisted bootstrap route table ordered by id.
func (s *Store) Routes(ctx context.Context) ([]router.RouteDefinition, error) {
	const query = `SELECT id, path, backend_url, service FROM routes ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("loading routes: %w", err)
	}
	defer rows.Close()

	var routes []router.RouteDefinition
	for rows.Next() {
		var def router.RouteDefinition
		if err := rows.Scan(&def.ID, &def.Path, &def.BackendURL, &def.Service); err != nil {
			return nil, fmt.Errorf("scanning route: %w", err)
		}
		routes = append(routes, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating routes: %w", err)
	}
	return routes, nil
}

// Ping reports database reachability for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
