package config

import "time"

// RateLimitConfig configures the token bucket applied to the /auth routes.
// Capacity is the burst size; RefillTokens are added every RefillInterval.
// KeyStrategy picks what a bucket is keyed on: ip, user, route or a
// combination such as ip_route.  Buckets idle for TTL are dropped.
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

// LoadRateLimitConfig reads RATE_LIMIT_* variables.  RATE_LIMIT_BURST is an
// alias of RATE_LIMIT_CAPACITY and RATE_LIMIT_REFILL_EVERY=d is shorthand
// for one token every d.
func LoadRateLimitConfig() RateLimitConfig {
    c := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_BURST", envInt("RATE_LIMIT_CAPACITY", 20)),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    getenv("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
        Prefix:         getenv("RATE_LIMIT_PREFIX", "rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
        c.RefillTokens, c.RefillInterval = 1, every
    }
    return c.normalized()
}

// normalized clamps values the bucket cannot work with.  A bucket must
// outlive five refill intervals or it would reset to full while a client
// is still being throttled.
func (c RateLimitConfig) normalized() RateLimitConfig {
    c.Capacity = max(c.Capacity, 1)
    c.RefillTokens = max(c.RefillTokens, 1)
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    c.TTL = max(c.TTL, 5*c.RefillInterval)
    return c
}

// RefillRate is the sustained rate in tokens per second.
func (c RateLimitConfig) RefillRate() float64 {
    return float64(c.RefillTokens) / c.RefillInterval.Seconds()
}
