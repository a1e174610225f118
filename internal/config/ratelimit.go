package config

import "time"

// RateLimitConfig configures the Redis token buckets applied to the
// sign-in and sign-up endpoints and to browser client creation.
type RateLimitConfig struct {
	Enabled           bool
	Capacity          int
	NewClientCapacity int
	RefillTokens      int
	RefillInterval    time.Duration
	TTL               time.Duration
	KeyStrategy       string
	Prefix            string
	Debug             bool
}

func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:           envBool("RATE_LIMIT_ENABLED", true),
		Capacity:          envInt("RATE_LIMIT_CAPACITY", 10),
		NewClientCapacity: envInt("RATE_LIMIT_NEW_CLIENT_CAPACITY", 30),
		RefillTokens:      envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval:    envDur("RATE_LIMIT_REFILL_INTERVAL", 6*time.Second),
		TTL:               envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:       envStr("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
		Prefix:            envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:             envBool("RATE_LIMIT_DEBUG", false),
	}
	return def.normalize()
}

// normalize clamps values so the limiter script never divides by zero and
// keys outlive at least a few refill intervals.
func (c RateLimitConfig) normalize() RateLimitConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.NewClientCapacity < 1 {
		c.NewClientCapacity = c.Capacity
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}
