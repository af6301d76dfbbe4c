package config

import "time"

// Default values applied when configuration fields are omitted.
const (
	// DefaultServerPort is the public proxy listener port.
	DefaultServerPort = 8080

	// DefaultInternalAPIPort is the internal admin API listener port.
	DefaultInternalAPIPort = 8081

	// DefaultMetricsPath is the Prometheus scrape path.
	DefaultMetricsPath = "/metrics"

	// DefaultRateLimitRPS is the internal API sustained request rate.
	DefaultRateLimitRPS = 50

	// DefaultRateLimitBurst is the internal API burst size.
	DefaultRateLimitBurst = 100

	// DefaultUserIDClaim is the JWT claim carrying the platform user id.
	DefaultUserIDClaim = "sub"

	// DefaultAuthClockSkew is the tolerated clock drift for token validation.
	DefaultAuthClockSkew = 30 * time.Second

	// DefaultJWKSRefreshInterval is how often the JWKS is refreshed.
	DefaultJWKSRefreshInterval = 15 * time.Minute

	// DefaultTenantDirectoryTTL is the tenant slug cache lifetime.
	DefaultTenantDirectoryTTL = 5 * time.Minute

	// DefaultPermissionTTL is the permission cache entry lifetime.
	DefaultPermissionTTL = 5 * time.Minute

	// DefaultMaxGroupDepth bounds nested group traversal.
	DefaultMaxGroupDepth = 10

	// DefaultCacheTTL is the default cache entry lifetime.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultCacheMaxEntries bounds the in-memory cache size.
	DefaultCacheMaxEntries = 10000

	// DefaultRedisPoolSize is the Redis connection pool size.
	DefaultRedisPoolSize = 10

	// DefaultRedisConnectTimeout is the Redis dial timeout.
	DefaultRedisConnectTimeout = 5 * time.Second

	// DefaultRedisReadTimeout is the Redis read timeout.
	DefaultRedisReadTimeout = 3 * time.Second

	// DefaultRedisWriteTimeout is the Redis write timeout.
	DefaultRedisWriteTimeout = 3 * time.Second

	// DefaultRedisKeyPrefix is prepended to all Redis cache keys.
	DefaultRedisKeyPrefix = "emfgw:"

	// DefaultRetryMaxRetries is the retry attempt bound for Redis operations.
	DefaultRetryMaxRetries = 3

	// DefaultRetryInitialBackoff is the initial retry backoff.
	DefaultRetryInitialBackoff = 100 * time.Millisecond

	// DefaultRetryMaxBackoff caps the retry backoff.
	DefaultRetryMaxBackoff = 2 * time.Second

	// DefaultInvalidationChannel carries permission invalidation events.
	DefaultInvalidationChannel = "emf.permission-invalidation"

	// DefaultRouteChannel carries route table change events.
	DefaultRouteChannel = "emf.route-changes"

	// DefaultPostgresMaxOpenConns bounds open PostgreSQL connections.
	DefaultPostgresMaxOpenConns = 25

	// DefaultPostgresMaxIdleConns bounds idle PostgreSQL connections.
	DefaultPostgresMaxIdleConns = 5

	// DefaultPostgresConnMaxLifetime bounds PostgreSQL connection age.
	DefaultPostgresConnMaxLifetime = 30 * time.Minute

	// DefaultSecretsEnvPrefix is the env provider variable prefix.
	DefaultSecretsEnvPrefix = "EMFGW_SECRET_"

	// DefaultVaultMount is the Vault KV v2 mount point.
	DefaultVaultMount = "secret"

	// DefaultVaultTimeout is the Vault request timeout.
	DefaultVaultTimeout = 10 * time.Second

	// DefaultCircuitBreakerThreshold trips the proxy breaker after this
	// many requests with a failing majority.
	DefaultCircuitBreakerThreshold = 5

	// DefaultCircuitBreakerTimeout is how long the breaker stays open.
	DefaultCircuitBreakerTimeout = 30 * time.Second
)
