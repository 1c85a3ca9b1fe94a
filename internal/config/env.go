package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// getenv returns the variable or def when it is unset or empty.
func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func envInt(key string, def int) int {
    n, err := strconv.Atoi(os.Getenv(key))
    if err != nil {
        return def
    }
    return n
}

// envBool accepts 1/0, true/false, yes/no and on/off in any case.
func envBool(key string, def bool) bool {
    switch strings.ToLower(os.Getenv(key)) {
    case "1", "true", "yes", "on":
        return true
    case "0", "false", "no", "off":
        return false
    }
    return def
}

func envDur(key string, def time.Duration) time.Duration {
    d, err := time.ParseDuration(os.Getenv(key))
    if err != nil {
        return def
    }
    return d
}
