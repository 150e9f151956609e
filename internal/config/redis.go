package config

// Redis backs the distributed rate limiter.  If the server cannot be reached
// at startup NewRedisClient returns nil and callers fall back to the
// in-process limiter.

import (
    "context"
    "crypto/tls"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisConfig holds connection parameters.
//   REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//   REDIS_ADDR – host:port shorthand (host/port win when both are set)
//   REDIS_PASSWORD – optional password
//   REDIS_DB – database number (default 0)
//   REDIS_TLS – enable TLS when "true" or "1"
type RedisConfig struct {
    Addr     string `toml:"addr"`
    Password string `toml:"password"`
    DB       int    `toml:"db"`
    TLS      bool   `toml:"tls"`
}

func DefaultRedisConfig() RedisConfig {
    return RedisConfig{Addr: "localhost:6379"}
}

func (r *RedisConfig) applyEnv() {
    r.Addr = envStr("REDIS_ADDR", r.Addr)
    if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
        r.Addr = host + ":" + port
    }
    r.Password = envStr("REDIS_PASSWORD", r.Password)
    r.DB = envInt("REDIS_DB", r.DB)
    r.TLS = envBool("REDIS_TLS", r.TLS)
}

// NewRedisClient instantiates a client and pings it with a short timeout.
// The returned client is nil if a connection cannot be established.
func NewRedisClient(cfg RedisConfig) *redis.Client {
    var tlsConf *tls.Config
    if cfg.TLS {
        tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    client := redis.NewClient(&redis.Options{
        Addr:      cfg.Addr,
        Password:  cfg.Password,
        DB:        cfg.DB,
        TLSConfig: tlsConf,
    })
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
