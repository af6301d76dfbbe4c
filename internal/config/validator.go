package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates gateway configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates a gateway configuration.
func ValidateConfig(config *GatewayConfig) error {
	return NewValidator().Validate(config)
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *GatewayConfig) error {
	v.errors = make(ValidationErrors, 0)

	if config == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateRoot(config)
	v.validateMetadata(&config.Metadata)
	v.validateSpec(&config.Spec)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateRoot(config *GatewayConfig) {
	if config.APIVersion == "" {
		v.addError("apiVersion", "apiVersion is required")
	} else if !strings.HasPrefix(config.APIVersion, APIVersionPrefix) {
		v.addError("apiVersion", fmt.Sprintf("apiVersion must start with %q", APIVersionPrefix))
	}

	if config.Kind == "" {
		v.addError("kind", "kind is required")
	} else if config.Kind != KindGateway {
		v.addError("kind", fmt.Sprintf("kind must be %q", KindGateway))
	}
}

func (v *Validator) validateMetadata(metadata *Metadata) {
	if metadata.Name == "" {
		v.addError("metadata.name", "name is required")
	}
}

func (v *Validator) validateSpec(spec *GatewaySpec) {
	v.validateServer(&spec.Server)
	v.validateInternalAPI(&spec.InternalAPI)
	v.validateLogging(&spec.Logging)
	v.validateTracing(&spec.Tracing)
	v.validateAuth(&spec.Auth)
	v.validateAuthz(&spec.Authz)

	if spec.Cache != nil {
		v.validateCache(spec.Cache, "spec.cache")
	}

	if spec.Events != nil {
		v.validateEvents(spec.Events, "spec.events")
	}

	v.validateStore(&spec.Store, "spec.store")

	if spec.Secrets != nil {
		v.validateSecrets(spec.Secrets, "spec.secrets")
	}

	v.validateRoutes(spec.Routes)
}

func (v *Validator) validateServer(server *ServerConfig) {
	if server.Port <= 0 || server.Port > 65535 {
		v.addError("spec.server.port", fmt.Sprintf("port must be between 1 and 65535, got %d", server.Port))
	}
}

func (v *Validator) validateInternalAPI(api *InternalAPIConfig) {
	if api.Port <= 0 || api.Port > 65535 {
		v.addError("spec.internalAPI.port", fmt.Sprintf("port must be between 1 and 65535, got %d", api.Port))
	}
	if api.RateLimit != nil && api.RateLimit.RequestsPerSecond <= 0 {
		v.addError("spec.internalAPI.rateLimit.requestsPerSecond", "requestsPerSecond must be positive")
	}
}

func (v *Validator) validateLogging(logging *LoggingConfig) {
	switch logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		v.addError("spec.logging.level", fmt.Sprintf("unknown log level %q", logging.Level))
	}

	switch logging.Format {
	case "", "json", "console":
	default:
		v.addError("spec.logging.format", fmt.Sprintf("unknown log format %q", logging.Format))
	}

	switch logging.Output {
	case "", "stdout", "stderr":
	default:
		v.addError("spec.logging.output", fmt.Sprintf("unknown log output %q", logging.Output))
	}
}

func (v *Validator) validateTracing(tracing *TracingConfig) {
	if !tracing.Enabled {
		return
	}
	if tracing.OTLPEndpoint == "" {
		v.addError("spec.tracing.otlpEndpoint", "otlpEndpoint is required when tracing is enabled")
	}
	if tracing.SamplingRate < 0 || tracing.SamplingRate > 1 {
		v.addError("spec.tracing.samplingRate", "samplingRate must be between 0.0 and 1.0")
	}
}

func (v *Validator) validateAuth(auth *AuthConfig) {
	if !auth.Enabled {
		return
	}
	if auth.JWKSURL == "" && auth.StaticSecretName == "" {
		v.addError("spec.auth.jwksURL", "jwksURL or staticSecretName is required when auth is enabled")
	}
	if auth.JWKSURL != "" {
		if _, err := url.Parse(auth.JWKSURL); err != nil {
			v.addError("spec.auth.jwksURL", fmt.Sprintf("invalid URL: %v", err))
		}
	}
	if auth.Issuer == "" {
		v.addError("spec.auth.issuer", "issuer is required when auth is enabled")
	}
}

func (v *Validator) validateAuthz(authz *AuthzConfig) {
	if authz.MaxGroupDepth < 0 {
		v.addError("spec.authz.maxGroupDepth", "maxGroupDepth must not be negative")
	}
	if authz.PermissionTTL < 0 {
		v.addError("spec.authz.permissionTTL", "permissionTTL must not be negative")
	}
}

func (v *Validator) validateCache(cache *CacheConfig, path string) {
	if !cache.Enabled {
		return
	}

	switch cache.Type {
	case CacheTypeMemory:
	case CacheTypeRedis:
		if cache.Redis.IsEmpty() {
			v.addError(path+".redis.url", "redis url is required for redis cache type")
		} else {
			v.validateRedisURL(cache.Redis.URL, path+".redis.url")
			if cache.Redis.TTLJitter < 0 || cache.Redis.TTLJitter > 1 {
				v.addError(path+".redis.ttlJitter", "ttlJitter must be between 0.0 and 1.0")
			}
		}
	case "":
		v.addError(path+".type", "type is required when cache is enabled")
	default:
		v.addError(path+".type", fmt.Sprintf("unknown cache type %q", cache.Type))
	}
}

func (v *Validator) validateEvents(events *EventsConfig, path string) {
	if !events.Enabled {
		return
	}
	if events.RedisURL == "" {
		v.addError(path+".redisURL", "redisURL is required when events are enabled")
	} else {
		v.validateRedisURL(events.RedisURL, path+".redisURL")
	}
}

func (v *Validator) validateRedisURL(raw, path string) {
	u, err := url.Parse(raw)
	if err != nil {
		v.addError(path, fmt.Sprintf("invalid URL: %v", err))
		return
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		v.addError(path, fmt.Sprintf("scheme must be redis or rediss, got %q", u.Scheme))
	}
}

func (v *Validator) validateStore(store *StoreConfig, path string) {
	switch store.GetType() {
	case StoreTypeMemory:
	case StoreTypePostgres:
		if store.Postgres == nil || (store.Postgres.DSN == "" && store.Postgres.DSNSecret == "") {
			v.addError(path+".postgres", "dsn or dsnSecret is required for postgres store type")
		}
	default:
		v.addError(path+".type", fmt.Sprintf("unknown store type %q", store.Type))
	}
}

func (v *Validator) validateSecrets(secrets *SecretsConfig, path string) {
	switch secrets.GetProvider() {
	case SecretsProviderEnv:
	case SecretsProviderFile:
		if secrets.FilePath == "" {
			v.addError(path+".filePath", "filePath is required for file provider")
		}
	case SecretsProviderVault:
		if secrets.Vault == nil || secrets.Vault.Address == "" {
			v.addError(path+".vault.address", "vault address is required for vault provider")
		}
	default:
		v.addError(path+".provider", fmt.Sprintf("unknown secrets provider %q", secrets.Provider))
	}
}

func (v *Validator) validateRoutes(routes []RouteConfig) {
	ids := make(map[string]bool)
	paths := make(map[string]string)

	for i, route := range routes {
		path := fmt.Sprintf("spec.routes[%d]", i)

		if route.ID == "" {
			v.addError(path+".id", "id is required")
		} else if ids[route.ID] {
			v.addError(path+".id", fmt.Sprintf("duplicate route id %q", route.ID))
		} else {
			ids[route.ID] = true
		}

		if route.Path == "" {
			v.addError(path+".path", "path is required")
		} else if !strings.HasPrefix(route.Path, "/") {
			v.addError(path+".path", "path must start with /")
		} else if other, dup := paths[route.Path]; dup {
			v.addError(path+".path", fmt.Sprintf("path %q already used by route %q", route.Path, other))
		} else {
			paths[route.Path] = route.ID
		}

		if route.Service == "" {
			v.addError(path+".service", "service is required")
		}

		v.validateBackendURL(route.BackendURL, path+".backendUrl")
	}
}

func (v *Validator) validateBackendURL(raw, path string) {
	if raw == "" {
		v.addError(path, "backendUrl is required")
		return
	}

	u, err := url.Parse(raw)
	if err != nil {
		v.addError(path, fmt.Sprintf("invalid URL: %v", err))
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		v.addError(path, fmt.Sprintf("scheme must be http or https, got %q", u.Scheme))
	}
	if u.Host == "" {
		v.addError(path, "host is required")
	}
}

// addError appends a validation error.
func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{
		Path:    path,
		Message: message,
	})
}
