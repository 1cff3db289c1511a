package config

import "time"

// CacheConfig defines settings for the record list cache.  When Enabled is
// false or no Redis client is configured the record store is used directly.
// Every create, update or delete drops the cached list, so TTL only bounds
// staleness caused by writes that bypass this process.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
func LoadCacheConfig() CacheConfig {
	ttl := envDur("CACHE_TTL", 30*time.Second)
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return CacheConfig{
		Enabled: envBool("CACHE_ENABLED", true),
		TTL:     ttl,
		Prefix:  envStr("CACHE_PREFIX", "cache"),
	}
}
