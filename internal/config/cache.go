package config

import (
	"strings"
	"time"
)

// CacheConfig tunes the Redis response cache used on the read-heavy feed
// and search routes.  Only the listed HTTP methods are cached; entries
// expire after TTL.  KeyStrategy picks which request attributes form the
// cache key, and MaxBodyBytes caps the size of a cacheable response.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads cache settings from the environment.  Caching is
// on by default for GET requests with a 30 second TTL.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBoolDefault("CACHE_ENABLED", true),
		Methods:      parseMethodSet(envDefault("CACHE_METHODS", "GET")),
		TTL:          envDurDefault("CACHE_TTL", 30*time.Second),
		KeyStrategy:  envDefault("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envDefault("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envIntDefault("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

func parseMethodSet(s string) map[string]bool {
	m := make(map[string]bool)
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
