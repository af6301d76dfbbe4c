package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *GatewayConfig {
	cfg := DefaultConfig()
	cfg.Spec.Auth.JWKSURL = "https://idp.example.com/jwks.json"
	cfg.Spec.Auth.Issuer = "https://idp.example.com"
	return cfg
}

func TestValidateConfig_Valid(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateConfig(validTestConfig()))
}

func TestValidateConfig_Nil(t *testing.T) {
	t.Parallel()

	err := ValidateConfig(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration is nil")
}

func TestValidateConfig_Root(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*GatewayConfig)
		wantErr string
	}{
		{
			name:    "missing apiVersion",
			mutate:  func(c *GatewayConfig) { c.APIVersion = "" },
			wantErr: "apiVersion is required",
		},
		{
			name:    "wrong apiVersion prefix",
			mutate:  func(c *GatewayConfig) { c.APIVersion = "other.io/v1" },
			wantErr: "apiVersion must start with",
		},
		{
			name:    "missing kind",
			mutate:  func(c *GatewayConfig) { c.Kind = "" },
			wantErr: "kind is required",
		},
		{
			name:    "wrong kind",
			mutate:  func(c *GatewayConfig) { c.Kind = "Proxy" },
			wantErr: `kind must be "Gateway"`,
		},
		{
			name:    "missing metadata name",
			mutate:  func(c *GatewayConfig) { c.Metadata.Name = "" },
			wantErr: "name is required",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validTestConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateConfig_Spec(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*GatewayConfig)
		wantErr string
	}{
		{
			name:    "invalid server port",
			mutate:  func(c *GatewayConfig) { c.Spec.Server.Port = 70000 },
			wantErr: "spec.server.port",
		},
		{
			name:    "invalid internal api port",
			mutate:  func(c *GatewayConfig) { c.Spec.InternalAPI.Port = -1 },
			wantErr: "spec.internalAPI.port",
		},
		{
			name: "non positive rate limit",
			mutate: func(c *GatewayConfig) {
				c.Spec.InternalAPI.RateLimit = &RateLimitConfig{RequestsPerSecond: 0}
			},
			wantErr: "requestsPerSecond must be positive",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *GatewayConfig) { c.Spec.Logging.Level = "verbose" },
			wantErr: "unknown log level",
		},
		{
			name: "tracing enabled without endpoint",
			mutate: func(c *GatewayConfig) {
				c.Spec.Tracing.Enabled = true
				c.Spec.Tracing.OTLPEndpoint = ""
			},
			wantErr: "otlpEndpoint is required",
		},
		{
			name: "tracing sampling rate out of range",
			mutate: func(c *GatewayConfig) {
				c.Spec.Tracing.Enabled = true
				c.Spec.Tracing.OTLPEndpoint = "collector:4317"
				c.Spec.Tracing.SamplingRate = 1.5
			},
			wantErr: "samplingRate must be between",
		},
		{
			name: "auth enabled without key source",
			mutate: func(c *GatewayConfig) {
				c.Spec.Auth.JWKSURL = ""
				c.Spec.Auth.StaticSecretName = ""
			},
			wantErr: "jwksURL or staticSecretName is required",
		},
		{
			name: "auth enabled without issuer",
			mutate: func(c *GatewayConfig) {
				c.Spec.Auth.Issuer = ""
			},
			wantErr: "issuer is required",
		},
		{
			name:    "negative group depth",
			mutate:  func(c *GatewayConfig) { c.Spec.Authz.MaxGroupDepth = -1 },
			wantErr: "maxGroupDepth must not be negative",
		},
		{
			name: "redis cache without url",
			mutate: func(c *GatewayConfig) {
				c.Spec.Cache = &CacheConfig{Enabled: true, Type: CacheTypeRedis}
			},
			wantErr: "redis url is required",
		},
		{
			name: "redis cache bad scheme",
			mutate: func(c *GatewayConfig) {
				c.Spec.Cache = &CacheConfig{
					Enabled: true,
					Type:    CacheTypeRedis,
					Redis:   &RedisCacheConfig{URL: "http://cache:6379"},
				}
			},
			wantErr: "scheme must be redis",
		},
		{
			name: "unknown cache type",
			mutate: func(c *GatewayConfig) {
				c.Spec.Cache = &CacheConfig{Enabled: true, Type: "memcached"}
			},
			wantErr: "unknown cache type",
		},
		{
			name: "ttl jitter out of range",
			mutate: func(c *GatewayConfig) {
				c.Spec.Cache = &CacheConfig{
					Enabled: true,
					Type:    CacheTypeRedis,
					Redis:   &RedisCacheConfig{URL: "redis://cache:6379", TTLJitter: 1.5},
				}
			},
			wantErr: "ttlJitter must be between",
		},
		{
			name: "events enabled without url",
			mutate: func(c *GatewayConfig) {
				c.Spec.Events = &EventsConfig{Enabled: true}
			},
			wantErr: "redisURL is required",
		},
		{
			name: "postgres store without dsn",
			mutate: func(c *GatewayConfig) {
				c.Spec.Store = StoreConfig{Type: StoreTypePostgres}
			},
			wantErr: "dsn or dsnSecret is required",
		},
		{
			name: "unknown store type",
			mutate: func(c *GatewayConfig) {
				c.Spec.Store = StoreConfig{Type: "mongo"}
			},
			wantErr: "unknown store type",
		},
		{
			name: "file secrets without path",
			mutate: func(c *GatewayConfig) {
				c.Spec.Secrets = &SecretsConfig{Provider: SecretsProviderFile}
			},
			wantErr: "filePath is required",
		},
		{
			name: "vault secrets without address",
			mutate: func(c *GatewayConfig) {
				c.Spec.Secrets = &SecretsConfig{Provider: SecretsProviderVault}
			},
			wantErr: "vault address is required",
		},
		{
			name: "unknown secrets provider",
			mutate: func(c *GatewayConfig) {
				c.Spec.Secrets = &SecretsConfig{Provider: "aws"}
			},
			wantErr: "unknown secrets provider",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validTestConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateConfig_Routes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		routes  []RouteConfig
		wantErr string
	}{
		{
			name: "valid routes",
			routes: []RouteConfig{
				{ID: "orders", Path: "/api/orders/**", BackendURL: "http://orders:8080", Service: "orders"},
				{ID: "users", Path: "/api/users", BackendURL: "http://users:8080", Service: "users"},
			},
		},
		{
			name: "missing id",
			routes: []RouteConfig{
				{Path: "/api/orders", BackendURL: "http://orders:8080", Service: "orders"},
			},
			wantErr: "id is required",
		},
		{
			name: "duplicate id",
			routes: []RouteConfig{
				{ID: "orders", Path: "/a", BackendURL: "http://a:8080", Service: "a"},
				{ID: "orders", Path: "/b", BackendURL: "http://b:8080", Service: "b"},
			},
			wantErr: "duplicate route id",
		},
		{
			name: "duplicate path",
			routes: []RouteConfig{
				{ID: "a", Path: "/api", BackendURL: "http://a:8080", Service: "a"},
				{ID: "b", Path: "/api", BackendURL: "http://b:8080", Service: "b"},
			},
			wantErr: "already used by route",
		},
		{
			name: "path without leading slash",
			routes: []RouteConfig{
				{ID: "a", Path: "api/orders", BackendURL: "http://a:8080", Service: "a"},
			},
			wantErr: "path must start with /",
		},
		{
			name: "bad backend scheme",
			routes: []RouteConfig{
				{ID: "a", Path: "/api", BackendURL: "ftp://a:21", Service: "a"},
			},
			wantErr: "scheme must be http or https",
		},
		{
			name: "missing service",
			routes: []RouteConfig{
				{ID: "a", Path: "/api", BackendURL: "http://a:8080"},
			},
			wantErr: "service is required",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validTestConfig()
			cfg.Spec.Routes = tt.routes

			err := ValidateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidationErrors_Aggregation(t *testing.T) {
	t.Parallel()

	cfg := validTestConfig()
	cfg.APIVersion = ""
	cfg.Kind = ""
	cfg.Metadata.Name = ""

	err := ValidateConfig(cfg)
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 3)
	assert.True(t, verrs.HasErrors())
	assert.True(t, strings.HasPrefix(verrs.Error(), "3 validation errors:"))
}

func TestValidationError_Format(t *testing.T) {
	t.Parallel()

	withPath := &ValidationError{Path: "spec.server.port", Message: "bad"}
	assert.Equal(t, "spec.server.port: bad", withPath.Error())

	withoutPath := &ValidationError{Message: "bad"}
	assert.Equal(t, "bad", withoutPath.Error())
}
