package config

import (
	"os"
	"strings"
	"time"
)

// RateLimitConfig tunes the Redis token-bucket limiter applied to the
// public authentication and verification routes.  Capacity is the bucket
// size; RefillTokens tokens are added every RefillInterval.  KeyStrategy
// selects which request attributes form the bucket key.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads limiter settings from the environment with
// defaults suited to a small public API. The bucket TTL is clamped so
// idle buckets survive at least five refill intervals.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBoolDefault("RATE_LIMIT_ENABLED", true),
		Capacity:       envIntDefault("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   envIntDefault("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDurDefault("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDurDefault("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envDefault("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
		Prefix:         envDefault("RATE_LIMIT_PREFIX", "rl"),
		Debug:          envBoolDefault("RATE_LIMIT_DEBUG", false),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if min := 5 * cfg.RefillInterval; cfg.TTL < min {
		cfg.TTL = min
	}
	return cfg
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func envDurDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}
