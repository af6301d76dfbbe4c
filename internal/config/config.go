package config

import "time"

// APIVersionPrefix is the required prefix for the apiVersion field.
const APIVersionPrefix = "emfgw.io/"

// KindGateway is the only supported document kind.
const KindGateway = "Gateway"

// GatewayConfig is the root of the YAML configuration document.
type GatewayConfig struct {
	// APIVersion identifies the configuration schema, e.g. "emfgw.io/v1".
	APIVersion string `yaml:"apiVersion" json:"apiVersion"`

	// Kind is the document kind. Must be "Gateway".
	Kind string `yaml:"kind" json:"kind"`

	// Metadata holds identifying information about this gateway instance.
	Metadata Metadata `yaml:"metadata" json:"metadata"`

	// Spec holds the gateway configuration.
	Spec GatewaySpec `yaml:"spec" json:"spec"`
}

// Metadata holds identifying information for a configuration document.
type Metadata struct {
	Name        string            `yaml:"name" json:"name"`
	Labels      map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

// GatewaySpec holds all gateway configuration sections.
type GatewaySpec struct {
	// Server configures the public proxy listener.
	Server ServerConfig `yaml:"server" json:"server"`

	// InternalAPI configures the internal admin API listener.
	InternalAPI InternalAPIConfig `yaml:"internalAPI" json:"internalAPI"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Metrics configures the Prometheus metrics endpoint.
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Tracing configures OpenTelemetry tracing.
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`

	// Auth configures token verification for inbound requests.
	Auth AuthConfig `yaml:"auth" json:"auth"`

	// Tenancy configures tenant slug resolution.
	Tenancy TenancyConfig `yaml:"tenancy" json:"tenancy"`

	// Authz configures permission resolution and enforcement.
	Authz AuthzConfig `yaml:"authz" json:"authz"`

	// Cache configures the permission cache backend.
	Cache *CacheConfig `yaml:"cache,omitempty" json:"cache,omitempty"`

	// Events configures the pub/sub channels used for cache invalidation
	// and route table updates.
	Events *EventsConfig `yaml:"events,omitempty" json:"events,omitempty"`

	// Store configures the backing store for tenants, groups, grants and routes.
	Store StoreConfig `yaml:"store" json:"store"`

	// Secrets configures the secret resolution provider.
	Secrets *SecretsConfig `yaml:"secrets,omitempty" json:"secrets,omitempty"`

	// Routes is the bootstrap route table loaded at startup. Later route
	// change events replace or amend these entries.
	Routes []RouteConfig `yaml:"routes,omitempty" json:"routes,omitempty"`
}

// ServerConfig configures the public proxy HTTP listener.
type ServerConfig struct {
	Host            string   `yaml:"host,omitempty" json:"host,omitempty"`
	Port            int      `yaml:"port" json:"port"`
	ReadTimeout     Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	WriteTimeout    Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`
	IdleTimeout     Duration `yaml:"idleTimeout,omitempty" json:"idleTimeout,omitempty"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"`

	// CircuitBreaker protects backend workers from sustained failure.
	CircuitBreaker *CircuitBreakerConfig `yaml:"circuitBreaker,omitempty" json:"circuitBreaker,omitempty"`
}

// CircuitBreakerConfig configures the breaker on the proxy backend path.
type CircuitBreakerConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Threshold is the request count after which the failure ratio trips
	// the breaker.
	Threshold int `yaml:"threshold,omitempty" json:"threshold,omitempty"`

	// Timeout is how long the breaker stays open before probing.
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// GetThreshold returns the effective trip threshold.
func (c *CircuitBreakerConfig) GetThreshold() int {
	if c == nil || c.Threshold <= 0 {
		return DefaultCircuitBreakerThreshold
	}
	return c.Threshold
}

// GetTimeout returns the effective open-state timeout.
func (c *CircuitBreakerConfig) GetTimeout() time.Duration {
	if c == nil || c.Timeout <= 0 {
		return DefaultCircuitBreakerTimeout
	}
	return c.Timeout.Duration()
}

// InternalAPIConfig configures the internal admin API listener. The
// internal API serves permission lookups and group synchronization and
// must not be exposed publicly.
type InternalAPIConfig struct {
	Host      string           `yaml:"host,omitempty" json:"host,omitempty"`
	Port      int              `yaml:"port" json:"port"`
	RateLimit *RateLimitConfig `yaml:"rateLimit,omitempty" json:"rateLimit,omitempty"`
}

// RateLimitConfig configures token bucket rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained request rate.
	RequestsPerSecond float64 `yaml:"requestsPerSecond" json:"requestsPerSecond"`

	// Burst is the maximum burst size.
	Burst int `yaml:"burst,omitempty" json:"burst,omitempty"`
}

// GetBurst returns the effective burst size.
func (c *RateLimitConfig) GetBurst() int {
	if c == nil || c.Burst <= 0 {
		return DefaultRateLimitBurst
	}
	return c.Burst
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level,omitempty" json:"level,omitempty"`

	// Format is the log encoding: json or console.
	Format string `yaml:"format,omitempty" json:"format,omitempty"`

	// Output is the log destination: stdout or stderr.
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty"`
}

// GetPath returns the effective metrics path.
func (c *MetricsConfig) GetPath() string {
	if c == nil || c.Path == "" {
		return DefaultMetricsPath
	}
	return c.Path
}

// TracingConfig configures OpenTelemetry tracing export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	ServiceName  string  `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
	OTLPEndpoint string  `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty" json:"samplingRate,omitempty"`
	Insecure     bool    `yaml:"insecure,omitempty" json:"insecure,omitempty"`
}

// AuthConfig configures JWT verification for inbound requests.
type AuthConfig struct {
	// Enabled turns token verification on. When disabled, requests pass
	// through without an identity and enforcement rejects them.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// JWKSURL is the JSON Web Key Set endpoint of the identity provider.
	JWKSURL string `yaml:"jwksURL,omitempty" json:"jwksURL,omitempty"`

	// Issuer is the expected iss claim.
	Issuer string `yaml:"issuer,omitempty" json:"issuer,omitempty"`

	// Audiences is the set of acceptable aud claims. Empty disables the check.
	Audiences []string `yaml:"audiences,omitempty" json:"audiences,omitempty"`

	// ClockSkew is the tolerated clock drift when validating exp and nbf.
	ClockSkew Duration `yaml:"clockSkew,omitempty" json:"clockSkew,omitempty"`

	// UserIDClaim is the claim carrying the platform user id.
	UserIDClaim string `yaml:"userIDClaim,omitempty" json:"userIDClaim,omitempty"`

	// JWKSRefreshInterval is how often the key set is refreshed.
	JWKSRefreshInterval Duration `yaml:"jwksRefreshInterval,omitempty" json:"jwksRefreshInterval,omitempty"`

	// StaticSecretName names a secret holding an HS256 signing secret,
	// used instead of a JWKS endpoint in development setups. Resolved
	// through the secrets provider at startup.
	StaticSecretName string `yaml:"staticSecretName,omitempty" json:"staticSecretName,omitempty"`
}

// GetUserIDClaim returns the effective user id claim name.
func (c *AuthConfig) GetUserIDClaim() string {
	if c == nil || c.UserIDClaim == "" {
		return DefaultUserIDClaim
	}
	return c.UserIDClaim
}

// GetClockSkew returns the effective clock skew tolerance.
func (c *AuthConfig) GetClockSkew() time.Duration {
	if c == nil || c.ClockSkew <= 0 {
		return DefaultAuthClockSkew
	}
	return c.ClockSkew.Duration()
}

// GetJWKSRefreshInterval returns the effective JWKS refresh interval.
func (c *AuthConfig) GetJWKSRefreshInterval() time.Duration {
	if c == nil || c.JWKSRefreshInterval <= 0 {
		return DefaultJWKSRefreshInterval
	}
	return c.JWKSRefreshInterval.Duration()
}

// TenancyConfig configures tenant slug resolution.
type TenancyConfig struct {
	// RequirePrefix rejects requests whose path does not begin with a
	// tenant slug, except for platform paths.
	RequirePrefix bool `yaml:"requirePrefix" json:"requirePrefix"`

	// DirectoryTTL is how long resolved slug-to-tenant mappings are cached.
	DirectoryTTL Duration `yaml:"directoryTTL,omitempty" json:"directoryTTL,omitempty"`

	// PlatformPaths are path prefixes served without a tenant slug.
	PlatformPaths []string `yaml:"platformPaths,omitempty" json:"platformPaths,omitempty"`
}

// GetDirectoryTTL returns the effective tenant directory cache TTL.
func (c *TenancyConfig) GetDirectoryTTL() time.Duration {
	if c == nil || c.DirectoryTTL <= 0 {
		return DefaultTenantDirectoryTTL
	}
	return c.DirectoryTTL.Duration()
}

// GetPlatformPaths returns the effective platform path prefixes.
func (c *TenancyConfig) GetPlatformPaths() []string {
	if c == nil || len(c.PlatformPaths) == 0 {
		return []string{"/internal", "/health", "/live", "/ready", "/metrics"}
	}
	return c.PlatformPaths
}

// AuthzConfig configures permission resolution and enforcement.
type AuthzConfig struct {
	// PermissionTTL is the permission cache entry lifetime.
	PermissionTTL Duration `yaml:"permissionTTL,omitempty" json:"permissionTTL,omitempty"`

	// MaxGroupDepth bounds nested group traversal.
	MaxGroupDepth int `yaml:"maxGroupDepth,omitempty" json:"maxGroupDepth,omitempty"`
}

// GetPermissionTTL returns the effective permission cache TTL.
func (c *AuthzConfig) GetPermissionTTL() time.Duration {
	if c == nil || c.PermissionTTL <= 0 {
		return DefaultPermissionTTL
	}
	return c.PermissionTTL.Duration()
}

// GetMaxGroupDepth returns the effective group traversal depth bound.
func (c *AuthzConfig) GetMaxGroupDepth() int {
	if c == nil || c.MaxGroupDepth <= 0 {
		return DefaultMaxGroupDepth
	}
	return c.MaxGroupDepth
}

// EventsConfig configures Redis pub/sub for invalidation and route events.
type EventsConfig struct {
	// Enabled turns event publishing and consumption on.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// RedisURL is the Redis connection URL.
	// Format: redis://[user:password@]host:port[/db]
	RedisURL string `yaml:"redisURL" json:"redisURL"`

	// InvalidationChannel carries permission invalidation events.
	InvalidationChannel string `yaml:"invalidationChannel,omitempty" json:"invalidationChannel,omitempty"`

	// RouteChannel carries route table change events.
	RouteChannel string `yaml:"routeChannel,omitempty" json:"routeChannel,omitempty"`

	// PasswordSecret names a secret holding the Redis password. Resolved
	// through the secrets provider at startup.
	PasswordSecret string `yaml:"passwordSecret,omitempty" json:"passwordSecret,omitempty"`
}

// GetInvalidationChannel returns the effective invalidation channel name.
func (c *EventsConfig) GetInvalidationChannel() string {
	if c == nil || c.InvalidationChannel == "" {
		return DefaultInvalidationChannel
	}
	return c.InvalidationChannel
}

// GetRouteChannel returns the effective route change channel name.
func (c *EventsConfig) GetRouteChannel() string {
	if c == nil || c.RouteChannel == "" {
		return DefaultRouteChannel
	}
	return c.RouteChannel
}

// StoreType constants for store backends.
const (
	// StoreTypeMemory keeps all data in process memory.
	StoreTypeMemory = "memory"

	// StoreTypePostgres persists data in PostgreSQL.
	StoreTypePostgres = "postgres"
)

// StoreConfig configures the backing store.
type StoreConfig struct {
	// Type is the store backend: "memory" or "postgres".
	Type string `yaml:"type" json:"type"`

	// Postgres contains PostgreSQL-specific configuration.
	Postgres *PostgresConfig `yaml:"postgres,omitempty" json:"postgres,omitempty"`
}

// GetType returns the effective store type.
func (c *StoreConfig) GetType() string {
	if c == nil || c.Type == "" {
		return StoreTypeMemory
	}
	return c.Type
}

// PostgresConfig contains PostgreSQL connection configuration.
type PostgresConfig struct {
	// DSN is the connection string. Ignored when DSNSecret is set.
	DSN string `yaml:"dsn,omitempty" json:"dsn,omitempty"`

	// DSNSecret names a secret holding the connection string. Resolved
	// through the secrets provider at startup.
	DSNSecret string `yaml:"dsnSecret,omitempty" json:"dsnSecret,omitempty"`

	MaxOpenConns    int      `yaml:"maxOpenConns,omitempty" json:"maxOpenConns,omitempty"`
	MaxIdleConns    int      `yaml:"maxIdleConns,omitempty" json:"maxIdleConns,omitempty"`
	ConnMaxLifetime Duration `yaml:"connMaxLifetime,omitempty" json:"connMaxLifetime,omitempty"`
}

// GetMaxOpenConns returns the effective max open connections.
func (c *PostgresConfig) GetMaxOpenConns() int {
	if c == nil || c.MaxOpenConns <= 0 {
		return DefaultPostgresMaxOpenConns
	}
	return c.MaxOpenConns
}

// GetMaxIdleConns returns the effective max idle connections.
func (c *PostgresConfig) GetMaxIdleConns() int {
	if c == nil || c.MaxIdleConns <= 0 {
		return DefaultPostgresMaxIdleConns
	}
	return c.MaxIdleConns
}

// GetConnMaxLifetime returns the effective connection max lifetime.
func (c *PostgresConfig) GetConnMaxLifetime() time.Duration {
	if c == nil || c.ConnMaxLifetime <= 0 {
		return DefaultPostgresConnMaxLifetime
	}
	return c.ConnMaxLifetime.Duration()
}

// SecretsProvider constants.
const (
	// SecretsProviderEnv resolves secrets from environment variables.
	SecretsProviderEnv = "env"

	// SecretsProviderFile resolves secrets from files under a base directory.
	SecretsProviderFile = "file"

	// SecretsProviderVault resolves secrets from HashiCorp Vault KV v2.
	SecretsProviderVault = "vault"
)

// SecretsConfig configures secret resolution.
type SecretsConfig struct {
	// Provider is the secret backend: "env", "file" or "vault".
	Provider string `yaml:"provider" json:"provider"`

	// EnvPrefix is the environment variable prefix for the env provider.
	EnvPrefix string `yaml:"envPrefix,omitempty" json:"envPrefix,omitempty"`

	// FilePath is the base directory for the file provider.
	FilePath string `yaml:"filePath,omitempty" json:"filePath,omitempty"`

	// Vault contains Vault-specific configuration.
	Vault *VaultConfig `yaml:"vault,omitempty" json:"vault,omitempty"`
}

// GetProvider returns the effective secrets provider.
func (c *SecretsConfig) GetProvider() string {
	if c == nil || c.Provider == "" {
		return SecretsProviderEnv
	}
	return c.Provider
}

// GetEnvPrefix returns the effective environment variable prefix.
func (c *SecretsConfig) GetEnvPrefix() string {
	if c == nil || c.EnvPrefix == "" {
		return DefaultSecretsEnvPrefix
	}
	return c.EnvPrefix
}

// VaultConfig contains HashiCorp Vault connection configuration.
type VaultConfig struct {
	// Address is the Vault server address.
	Address string `yaml:"address" json:"address"`

	// Token is the Vault token. Usually supplied via VAULT_TOKEN instead.
	Token string `yaml:"token,omitempty" json:"token,omitempty"`

	// Mount is the KV v2 mount point.
	Mount string `yaml:"mount,omitempty" json:"mount,omitempty"`

	// PathPrefix is prepended to secret names when reading from Vault.
	PathPrefix string `yaml:"pathPrefix,omitempty" json:"pathPrefix,omitempty"`

	// Timeout is the request timeout for Vault calls.
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// GetMount returns the effective KV mount point.
func (c *VaultConfig) GetMount() string {
	if c == nil || c.Mount == "" {
		return DefaultVaultMount
	}
	return c.Mount
}

// GetTimeout returns the effective Vault request timeout.
func (c *VaultConfig) GetTimeout() time.Duration {
	if c == nil || c.Timeout <= 0 {
		return DefaultVaultTimeout
	}
	return c.Timeout.Duration()
}

// RouteConfig describes one bootstrap route table entry.
type RouteConfig struct {
	// ID is the unique route identifier.
	ID string `yaml:"id" json:"id"`

	// Path is the match pattern: exact, "/*" single segment or "/**" multi segment.
	Path string `yaml:"path" json:"path"`

	// BackendURL is the upstream base URL.
	BackendURL string `yaml:"backendUrl" json:"backendUrl"`

	// Service is the logical service name used in logs and metrics.
	Service string `yaml:"service" json:"service"`
}

// DefaultConfig returns a GatewayConfig with default values.
func DefaultConfig() *GatewayConfig {
	return &GatewayConfig{
		APIVersion: "emfgw.io/v1",
		Kind:       KindGateway,
		Metadata: Metadata{
			Name: "emfgw",
		},
		Spec: GatewaySpec{
			Server: ServerConfig{
				Port:            DefaultServerPort,
				ReadTimeout:     Duration(30 * time.Second),
				WriteTimeout:    Duration(30 * time.Second),
				IdleTimeout:     Duration(120 * time.Second),
				ShutdownTimeout: Duration(30 * time.Second),
			},
			InternalAPI: InternalAPIConfig{
				Host: "127.0.0.1",
				Port: DefaultInternalAPIPort,
				RateLimit: &RateLimitConfig{
					RequestsPerSecond: DefaultRateLimitRPS,
					Burst:             DefaultRateLimitBurst,
				},
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    DefaultMetricsPath,
			},
			Tracing: TracingConfig{
				Enabled:      false,
				ServiceName:  "emfgw",
				SamplingRate: 1.0,
			},
			Auth: AuthConfig{
				Enabled:     true,
				UserIDClaim: DefaultUserIDClaim,
				ClockSkew:   Duration(DefaultAuthClockSkew),
			},
			Tenancy: TenancyConfig{
				RequirePrefix: true,
				DirectoryTTL:  Duration(DefaultTenantDirectoryTTL),
			},
			Authz: AuthzConfig{
				PermissionTTL: Duration(DefaultPermissionTTL),
				MaxGroupDepth: DefaultMaxGroupDepth,
			},
			Cache: DefaultCacheConfig(),
			Store: StoreConfig{
				Type: StoreTypeMemory,
			},
		},
	}
}
