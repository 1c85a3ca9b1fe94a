package config

import "time"

// RoleCacheConfig controls caching of resolved sessions.  When Enabled is
// false every request goes to the database.  TTL bounds how long a cached
// resolution may be served and Prefix namespaces the Redis keys.
type RoleCacheConfig struct {
    Enabled bool
    TTL     time.Duration
    Prefix  string
}

// LoadRoleCacheConfig reads ROLE_CACHE_* variables, falling back to defaults.
func LoadRoleCacheConfig() RoleCacheConfig {
    return RoleCacheConfig{
        Enabled: envBool("ROLE_CACHE_ENABLED", true),
        TTL:     parseDur(getenv("ROLE_CACHE_TTL", "60s")),
        Prefix:  getenv("ROLE_CACHE_PREFIX", "session"),
    }
}

func parseDur(s string) time.Duration {
    d, err := time.ParseDuration(s)
    if err != nil {
        return time.Second
    }
    return d
}
