package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// RateLimitConfig shapes the admission-control token bucket on the
// credential-entry routes.
type RateLimitConfig struct {
    Enabled        bool          `toml:"enabled"`
    Backend        string        `toml:"backend"` // memory | redis
    Capacity       int           `toml:"capacity"`
    RefillTokens   int           `toml:"refill_tokens"`
    RefillInterval time.Duration `toml:"refill_interval"`
    PathPrefix     string        `toml:"path_prefix"`
    MaxClients     int           `toml:"max_clients"` // LRU bound of the memory backend
    TTL            time.Duration `toml:"ttl"`         // idle expiry of redis buckets
    KeyPrefix      string        `toml:"key_prefix"`
}

func DefaultRateLimitConfig() RateLimitConfig {
    return RateLimitConfig{
        Enabled:        true,
        Backend:        BackendMemory,
        Capacity:       10,
        RefillTokens:   10,
        RefillInterval: time.Minute,
        PathPrefix:     "/auth/",
        MaxClients:     10000,
        TTL:            10 * time.Minute,
        KeyPrefix:      "rl",
    }
}

func (r *RateLimitConfig) applyEnv() {
    r.Enabled = envBool("RATE_LIMIT_ENABLED", r.Enabled)
    r.Backend = strings.ToLower(envStr("RATE_LIMIT_BACKEND", r.Backend))
    r.Capacity = envInt("RATE_LIMIT_CAPACITY", r.Capacity)
    r.RefillTokens = envInt("RATE_LIMIT_REFILL_TOKENS", r.RefillTokens)
    r.RefillInterval = envDur("RATE_LIMIT_REFILL_INTERVAL", r.RefillInterval)
    r.PathPrefix = envStr("RATE_LIMIT_PATH_PREFIX", r.PathPrefix)
    r.MaxClients = envInt("RATE_LIMIT_MAX_CLIENTS", r.MaxClients)
    r.TTL = envDur("RATE_LIMIT_TTL", r.TTL)
    r.KeyPrefix = envStr("RATE_LIMIT_KEY_PREFIX", r.KeyPrefix)

    if r.Capacity < 1 { r.Capacity = 1 }
    if r.RefillTokens < 1 { r.RefillTokens = 1 }
    if r.RefillInterval <= 0 { r.RefillInterval = time.Minute }
    if !strings.HasPrefix(r.PathPrefix, "/") { r.PathPrefix = "/" + r.PathPrefix }
}

func envStr(k, d string) string { if v := os.Getenv(k); v != "" { return v }; return d }
func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" { return d }
    switch v {
    case "1","true","TRUE","True","yes","YES","on","ON": return true
    case "0","false","FALSE","False","no","NO","off","OFF": return false
    }
    return d
}
func envInt(k string, d int) int {
    v := os.Getenv(k); if v == "" { return d }
    if n, err := strconv.Atoi(v); err == nil { return n }
    return d
}
func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k); if v == "" { return d }
    if dur, err := time.ParseDuration(v); err == nil { return dur }
    return d
}
