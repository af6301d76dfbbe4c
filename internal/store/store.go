package store

import (
	"context"
	"fmt"

	"github.com/cklinker/emfgw/internal/config"
	"github.com/cklinker/emfgw/internal/grants"
	"github.com/cklinker/emfgw/internal/groups"
	"github.com/cklinker/emfgw/internal/observability"
	"github.com/cklinker/emfgw/internal/router"
	"github.com/cklinker/emfgw/internal/store/memory"
	"github.com/cklinker/emfgw/internal/store/postgres"
	"github.com/cklinker/emfgw/internal/tenant"
)

// Store is the full persistence surface the gateway composes against.
type Store interface {
	groups.Store
	grants.Store
	tenant.Directory

	// Routes returns the persisted bootstrap route table.
	Routes(ctx context.Context) ([]router.RouteDefinition, error)

	// Ping reports backend reachability for readiness probes.
	Ping(ctx context.Context) error

	// Close releases backend connections.
	Close() error
}

// Option configures backend construction.
type Option func(*settings)

type settings struct {
	logger observability.Logger
	guard  *tenant.Guard
	dsn    string
}

// WithLogger sets the logger handed to the backend.
func WithLogger(logger observability.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGuard sets the tenant isolation guard consulted before writes.
func WithGuard(guard *tenant.Guard) Option {
	return func(s *settings) {
		if guard != nil {
			s.guard = guard
		}
	}
}

// WithDSN overrides the configured Postgres connection string, carrying
// a value resolved through the secrets provider.
func WithDSN(dsn string) Option {
	return func(s *settings) {
		s.dsn = dsn
	}
}

// New constructs the backend named by cfg.
func New(ctx context.Context, cfg *config.StoreConfig, opts ...Option) (Store, error) {
	s := &settings{
		logger: observability.NopLogger(),
		guard:  tenant.NewGuard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	switch cfg.GetType() {
	case config.StoreTypeMemory:
		return memory.New(memory.WithGuard(s.guard)), nil

	case config.StoreTypePostgres:
		dsn := s.dsn
		if dsn == "" && cfg != nil && cfg.Postgres != nil {
			dsn = cfg.Postgres.DSN
		}
		if dsn == "" {
			return nil, fmt.Errorf("%w: postgres store requires a dsn", ErrInvalidConfig)
		}
		var pg *config.PostgresConfig
		if cfg != nil {
			pg = cfg.Postgres
		}
		return postgres.New(ctx, dsn, pg, postgres.WithLogger(s.logger), postgres.WithGuard(s.guard))

	default:
		return nil, fmt.Errorf("%w: unknown store type %q", ErrInvalidConfig, cfg.GetType())
	}
}

// Both backends satisfy the composite surface.
var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*postgres.Store)(nil)
)
