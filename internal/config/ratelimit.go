package config

import "time"

// RateLimitConfig describes one token bucket: Capacity requests may burst,
// and RefillTokens are added back every RefillInterval. KeyStrategy selects
// which request attributes identify a bucket.
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

// LoadRateLimitConfig returns the global limiter applied to every API route.
// The defaults mirror a 100 requests per minute throttle.
func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        envBool("THROTTLE_ENABLED", true),
		Capacity:       envInt("THROTTLE_LIMIT", 100),
		RefillTokens:   envInt("THROTTLE_LIMIT", 100),
		RefillInterval: envDur("THROTTLE_TTL", time.Minute),
		TTL:            envDur("THROTTLE_KEY_TTL", 10*time.Minute),
		KeyStrategy:    envStr("THROTTLE_KEY_STRATEGY", "ip_user_route"),
		Prefix:         envStr("THROTTLE_PREFIX", "rl"),
		Debug:          envBool("THROTTLE_DEBUG", false),
	}
	return def.normalized()
}

// LoadLoginRateLimitConfig returns the stricter limiter guarding the login
// endpoint: 5 attempts per 15 minutes per client IP by default.
func LoadLoginRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        envBool("LOGIN_THROTTLE_ENABLED", true),
		Capacity:       envInt("LOGIN_THROTTLE_LIMIT", 5),
		RefillTokens:   envInt("LOGIN_THROTTLE_LIMIT", 5),
		RefillInterval: envDur("LOGIN_THROTTLE_TTL", 15*time.Minute),
		TTL:            envDur("LOGIN_THROTTLE_KEY_TTL", time.Hour),
		KeyStrategy:    envStr("LOGIN_THROTTLE_KEY_STRATEGY", "ip_route"),
		Prefix:         envStr("LOGIN_THROTTLE_PREFIX", "rl:login"),
		Debug:          envBool("THROTTLE_DEBUG", false),
	}
	return def.normalized()
}

func (c RateLimitConfig) normalized() RateLimitConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 2 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}
