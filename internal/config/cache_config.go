package config

// CacheType constants for cache backend types.
const (
	// CacheTypeMemory uses in-process caching.
	CacheTypeMemory = "memory"

	// CacheTypeRedis uses Redis for caching.
	CacheTypeRedis = "redis"
)

// CacheConfig configures the permission cache backend.
type CacheConfig struct {
	// Enabled indicates whether caching is enabled. When disabled every
	// permission lookup recomputes from the store.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Type is the cache backend type: "memory" or "redis".
	Type string `yaml:"type" json:"type"`

	// TTL is the default time-to-live for cached entries.
	TTL Duration `yaml:"ttl,omitempty" json:"ttl,omitempty"`

	// MaxEntries is the maximum number of entries for the memory cache.
	MaxEntries int `yaml:"maxEntries,omitempty" json:"maxEntries,omitempty"`

	// Redis contains Redis-specific configuration.
	Redis *RedisCacheConfig `yaml:"redis,omitempty" json:"redis,omitempty"`
}

// RedisCacheConfig contains Redis-specific cache configuration.
type RedisCacheConfig struct {
	// URL is the Redis connection URL.
	// Format: redis://[user:password@]host:port[/db]
	URL string `yaml:"url" json:"url"`

	// PoolSize is the maximum number of connections in the pool.
	PoolSize int `yaml:"poolSize,omitempty" json:"poolSize,omitempty"`

	// ConnectTimeout is the timeout for establishing connections.
	ConnectTimeout Duration `yaml:"connectTimeout,omitempty" json:"connectTimeout,omitempty"`

	// ReadTimeout is the timeout for read operations.
	ReadTimeout Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`

	// WriteTimeout is the timeout for write operations.
	WriteTimeout Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`

	// KeyPrefix is prepended to all cache keys.
	KeyPrefix string `yaml:"keyPrefix,omitempty" json:"keyPrefix,omitempty"`

	// TTLJitter is the maximum fraction of jitter applied to TTL values
	// (0.0 to 1.0). 0.1 means up to 10 percent either way. Default is 0.
	TTLJitter float64 `yaml:"ttlJitter,omitempty" json:"ttlJitter,omitempty"`

	// HashKeys when true, SHA256-hashes cache keys before storing.
	HashKeys bool `yaml:"hashKeys,omitempty" json:"hashKeys,omitempty"`

	// PasswordSecret names a secret holding the Redis password. Resolved
	// through the secrets provider at startup.
	PasswordSecret string `yaml:"passwordSecret,omitempty" json:"passwordSecret,omitempty"`

	// Retry contains retry configuration for Redis operations.
	Retry *RedisRetryConfig `yaml:"retry,omitempty" json:"retry,omitempty"`
}

// RedisRetryConfig contains retry configuration for Redis operations.
type RedisRetryConfig struct {
	// MaxRetries is the maximum number of retry attempts. Default is 3.
	MaxRetries int `yaml:"maxRetries,omitempty" json:"maxRetries,omitempty"`

	// InitialBackoff is the initial backoff between retries. Default is 100ms.
	InitialBackoff Duration `yaml:"initialBackoff,omitempty" json:"initialBackoff,omitempty"`

	// MaxBackoff is the maximum backoff between retries. Default is 2s.
	MaxBackoff Duration `yaml:"maxBackoff,omitempty" json:"maxBackoff,omitempty"`
}

// GetMaxRetries returns the effective max retries.
func (c *RedisRetryConfig) GetMaxRetries() int {
	if c == nil || c.MaxRetries <= 0 {
		return DefaultRetryMaxRetries
	}
	return c.MaxRetries
}

// GetInitialBackoff returns the effective initial backoff.
func (c *RedisRetryConfig) GetInitialBackoff() Duration {
	if c == nil || c.InitialBackoff <= 0 {
		return Duration(DefaultRetryInitialBackoff)
	}
	return c.InitialBackoff
}

// GetMaxBackoff returns the effective max backoff.
func (c *RedisRetryConfig) GetMaxBackoff() Duration {
	if c == nil || c.MaxBackoff <= 0 {
		return Duration(DefaultRetryMaxBackoff)
	}
	return c.MaxBackoff
}

// GetTTL returns the effective cache TTL.
func (cc *CacheConfig) GetTTL() Duration {
	if cc == nil || cc.TTL <= 0 {
		return Duration(DefaultCacheTTL)
	}
	return cc.TTL
}

// GetMaxEntries returns the effective memory cache entry bound.
func (cc *CacheConfig) GetMaxEntries() int {
	if cc == nil || cc.MaxEntries <= 0 {
		return DefaultCacheMaxEntries
	}
	return cc.MaxEntries
}

// IsEmpty returns true if the CacheConfig has no meaningful configuration.
func (cc *CacheConfig) IsEmpty() bool {
	if cc == nil {
		return true
	}
	return !cc.Enabled
}

// IsEmpty returns true if the RedisCacheConfig has no configuration.
func (rcc *RedisCacheConfig) IsEmpty() bool {
	if rcc == nil {
		return true
	}
	return rcc.URL == ""
}

// GetKeyPrefix returns the effective Redis key prefix.
func (rcc *RedisCacheConfig) GetKeyPrefix() string {
	if rcc == nil || rcc.KeyPrefix == "" {
		return DefaultRedisKeyPrefix
	}
	return rcc.KeyPrefix
}

// GetPoolSize returns the effective Redis pool size.
func (rcc *RedisCacheConfig) GetPoolSize() int {
	if rcc == nil || rcc.PoolSize <= 0 {
		return DefaultRedisPoolSize
	}
	return rcc.PoolSize
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Enabled:    true,
		Type:       CacheTypeMemory,
		TTL:        Duration(DefaultCacheTTL),
		MaxEntries: DefaultCacheMaxEntries,
	}
}

// DefaultRedisCacheConfig returns default Redis cache configuration.
func DefaultRedisCacheConfig() *RedisCacheConfig {
	return &RedisCacheConfig{
		PoolSize:       DefaultRedisPoolSize,
		ConnectTimeout: Duration(DefaultRedisConnectTimeout),
		ReadTimeout:    Duration(DefaultRedisReadTimeout),
		WriteTimeout:   Duration(DefaultRedisWriteTimeout),
		KeyPrefix:      DefaultRedisKeyPrefix,
	}
}
