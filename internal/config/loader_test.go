package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
apiVersion: emfgw.io/v1
kind: Gateway
metadata:
  name: test-gateway
spec:
  server:
    port: 8080
  auth:
    enabled: false
`

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte(minimalConfig), 0644)
	require.NoError(t, err)

	loader := NewLoader()
	cfg, err := loader.Load(configPath)

	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "emfgw.io/v1", cfg.APIVersion)
	assert.Equal(t, "Gateway", cfg.Kind)
	assert.Equal(t, "test-gateway", cfg.Metadata.Name)
	assert.Equal(t, 8080, cfg.Spec.Server.Port)
}

func TestLoader_Load_FileNotFound(t *testing.T) {
	t.Parallel()

	loader := NewLoader()
	_, err := loader.Load("/nonexistent/path/config.yaml")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoader_LoadFromReader(t *testing.T) {
	t.Parallel()

	loader := NewLoader()
	cfg, err := loader.LoadFromReader(strings.NewReader(minimalConfig))

	require.NoError(t, err)
	assert.Equal(t, "test-gateway", cfg.Metadata.Name)
}

func TestLoader_LoadFromReader_InvalidYAML(t *testing.T) {
	t.Parallel()

	loader := NewLoader()
	_, err := loader.LoadFromReader(strings.NewReader("not: [valid: yaml"))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoader_AppliesDefaults(t *testing.T) {
	t.Parallel()

	loader := NewLoader()
	cfg, err := loader.LoadFromReader(strings.NewReader(`
apiVersion: emfgw.io/v1
kind: Gateway
metadata:
  name: defaults
spec: {}
`))

	require.NoError(t, err)
	assert.Equal(t, DefaultServerPort, cfg.Spec.Server.Port)
	assert.Equal(t, DefaultInternalAPIPort, cfg.Spec.InternalAPI.Port)
	assert.Equal(t, "info", cfg.Spec.Logging.Level)
	assert.Equal(t, "json", cfg.Spec.Logging.Format)
	assert.Equal(t, DefaultMetricsPath, cfg.Spec.Metrics.Path)
	assert.Equal(t, StoreTypeMemory, cfg.Spec.Store.GetType())
}

func TestLoader_ParsesFullSpec(t *testing.T) {
	t.Parallel()

	content := `
apiVersion: emfgw.io/v1
kind: Gateway
metadata:
  name: full
  labels:
    env: test
spec:
  server:
    host: 0.0.0.0
    port: 9090
    readTimeout: 10s
    shutdownTimeout: 20s
  internalAPI:
    host: 127.0.0.1
    port: 9091
    rateLimit:
      requestsPerSecond: 25
      burst: 50
  logging:
    level: debug
    format: console
  metrics:
    enabled: true
    path: /stats
  tracing:
    enabled: true
    serviceName: gateway-test
    otlpEndpoint: collector:4317
    samplingRate: 0.25
  auth:
    enabled: true
    jwksURL: https://idp.example.com/jwks.json
    issuer: https://idp.example.com
    audiences:
      - platform
    clockSkew: 1m
  tenancy:
    requirePrefix: true
    directoryTTL: 10m
    platformPaths:
      - /internal
      - /healthz
  authz:
    permissionTTL: 2m
    maxGroupDepth: 6
  cache:
    enabled: true
    type: redis
    ttl: 3m
    redis:
      url: redis://cache:6379/0
      keyPrefix: "test:"
      ttlJitter: 0.1
      retry:
        maxRetries: 5
        initialBackoff: 50ms
  events:
    enabled: true
    redisURL: redis://cache:6379/0
    invalidationChannel: test.invalidation
  store:
    type: postgres
    postgres:
      dsn: postgres://gw@db/platform
      maxOpenConns: 10
  secrets:
    provider: vault
    vault:
      address: http://vault:8200
      mount: kv
  routes:
    - id: orders
      path: /api/orders/**
      backendUrl: http://orders:8080
      service: orders
`
	cfg, err := LoadConfigFromReader(strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Spec.Server.Port)
	assert.Equal(t, "10s", cfg.Spec.Server.ReadTimeout.Duration().String())
	assert.Equal(t, float64(25), cfg.Spec.InternalAPI.RateLimit.RequestsPerSecond)
	assert.Equal(t, "debug", cfg.Spec.Logging.Level)
	assert.Equal(t, "/stats", cfg.Spec.Metrics.Path)
	assert.Equal(t, 0.25, cfg.Spec.Tracing.SamplingRate)
	assert.Equal(t, []string{"platform"}, cfg.Spec.Auth.Audiences)
	assert.Equal(t, []string{"/internal", "/healthz"}, cfg.Spec.Tenancy.PlatformPaths)
	assert.Equal(t, 6, cfg.Spec.Authz.GetMaxGroupDepth())
	assert.Equal(t, CacheTypeRedis, cfg.Spec.Cache.Type)
	assert.Equal(t, "test:", cfg.Spec.Cache.Redis.KeyPrefix)
	assert.Equal(t, 5, cfg.Spec.Cache.Redis.Retry.GetMaxRetries())
	assert.Equal(t, "test.invalidation", cfg.Spec.Events.GetInvalidationChannel())
	assert.Equal(t, StoreTypePostgres, cfg.Spec.Store.GetType())
	assert.Equal(t, "kv", cfg.Spec.Secrets.Vault.GetMount())
	require.Len(t, cfg.Spec.Routes, 1)
	assert.Equal(t, "/api/orders/**", cfg.Spec.Routes[0].Path)
}

func TestLoader_EnvSubstitution(t *testing.T) {
	t.Setenv("EMFGW_TEST_PORT", "7777")
	t.Setenv("EMFGW_TEST_NAME", "env-gateway")

	content := `
apiVersion: emfgw.io/v1
kind: Gateway
metadata:
  name: ${EMFGW_TEST_NAME}
spec:
  server:
    port: ${EMFGW_TEST_PORT}
  logging:
    level: ${EMFGW_TEST_MISSING:-warn}
`
	cfg, err := LoadConfigFromReader(strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, "env-gateway", cfg.Metadata.Name)
	assert.Equal(t, 7777, cfg.Spec.Server.Port)
	assert.Equal(t, "warn", cfg.Spec.Logging.Level)
}

func TestLoader_EnvSubstitution_EscapedDollar(t *testing.T) {
	t.Parallel()

	content := `
apiVersion: emfgw.io/v1
kind: Gateway
metadata:
  name: "literal$${NOT_A_VAR}"
spec: {}
`
	cfg, err := LoadConfigFromReader(strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, "literal${NOT_A_VAR}", cfg.Metadata.Name)
}

func TestLoader_EnvSubstitution_MissingWithoutDefault(t *testing.T) {
	t.Parallel()

	content := `
apiVersion: emfgw.io/v1
kind: Gateway
metadata:
  name: gw
spec:
  logging:
    level: "${EMFGW_DEFINITELY_UNSET_VAR}info"
`
	cfg, err := LoadConfigFromReader(strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Spec.Logging.Level)
}

func TestResolveConfigPath_Absolute(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(minimalConfig), 0644))

	resolved, err := ResolveConfigPath(configPath)
	require.NoError(t, err)
	assert.Equal(t, configPath, resolved)
}

func TestResolveConfigPath_NotFound(t *testing.T) {
	t.Parallel()

	_, err := ResolveConfigPath("/nonexistent/config.yaml")
	assert.Error(t, err)
}
