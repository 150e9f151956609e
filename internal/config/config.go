package config // package config loads application configuration from .env, TOML and environment variables

import (
    "errors"  // errors aggregates validation failures
    "fmt"     // fmt formats error messages
    "os"      // os provides access to environment variables
    "strings" // strings normalizes enum-like values
    "time"    // time converts TTL seconds into durations

    "github.com/BurntSushi/toml"  // toml decodes the optional config file
    "github.com/joho/godotenv"    // godotenv loads .env files into the process environment
)

// Config holds all runtime configuration values.  Values are layered:
// built-in defaults, then the TOML file named by APP_CONFIG_FILE, then
// environment variables (a .env file is loaded into the environment first).
type Config struct {
    Env               string          `toml:"env"`                       // application environment (e.g. "dev", "prod")
    Port              string          `toml:"port"`                      // HTTP port to listen on
    StoreBackend      string          `toml:"store_backend"`             // "mysql" or "memory"
    RunMigrations     bool            `toml:"run_migrations"`            // apply embedded migrations at startup
    DB                DBConfig        `toml:"database"`                  // MySQL connection
    JWTSecret         string          `toml:"jwt_secret"`                // secret used to sign JWTs
    AccessTTLSeconds  int             `toml:"access_token_ttl_seconds"`  // access token lifetime
    RefreshTTLSeconds int             `toml:"refresh_token_ttl_seconds"` // refresh token lifetime
    BcryptCost        int             `toml:"bcrypt_cost"`               // bcrypt cost for password hashing
    AMQPURL           string          `toml:"amqp_url"`                  // RabbitMQ URL; empty disables publishing
    AuditConsumer     bool            `toml:"audit_consumer"`            // run the security event consumer
    LogLevel          string          `toml:"log_level"`                 // debug, info, warn, error
    LogFormat         string          `toml:"log_format"`                // text or json
    RateLimit         RateLimitConfig `toml:"rate_limit"`
    Redis             RedisConfig     `toml:"redis"`
}

// DBConfig is the MySQL connection block.
type DBConfig struct {
    User     string `toml:"user"`
    Pass     string `toml:"pass"`
    Host     string `toml:"host"`
    Port     string `toml:"port"`
    Name     string `toml:"name"`
    MaxConns int    `toml:"max_conns"`
}

const (
    BackendMySQL  = "mysql"
    BackendMemory = "memory"
    BackendRedis  = "redis"
)

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
    return Config{
        Env:               "dev",
        Port:              "8080",
        StoreBackend:      BackendMySQL,
        DB:                DBConfig{Host: "127.0.0.1", Port: "3306", MaxConns: 25},
        AccessTTLSeconds:  900,
        RefreshTTLSeconds: 604800,
        BcryptCost:        10,
        LogLevel:          "info",
        LogFormat:         "text",
        RateLimit:         DefaultRateLimitConfig(),
        Redis:             DefaultRedisConfig(),
    }
}

// Load reads configuration.  envFiles are passed to godotenv; with none,
// ./.env is tried.  A missing .env file is not an error.
func Load(envFiles ...string) (Config, error) {
    if err := godotenv.Load(envFiles...); err != nil && len(envFiles) > 0 {
        return Config{}, fmt.Errorf("load env files: %w", err)
    }

    cfg := Defaults()
    if path := os.Getenv("APP_CONFIG_FILE"); path != "" {
        if _, err := toml.DecodeFile(path, &cfg); err != nil {
            return Config{}, fmt.Errorf("config file %s: %w", path, err)
        }
    }
    cfg.applyEnv()
    if err := cfg.Validate(); err != nil {
        return Config{}, err
    }
    return cfg, nil
}

func (c *Config) applyEnv() {
    c.Env = envStr("APP_ENV", c.Env)
    c.Port = envStr("APP_PORT", c.Port)
    c.StoreBackend = strings.ToLower(envStr("STORE_BACKEND", c.StoreBackend))
    c.RunMigrations = envBool("RUN_MIGRATIONS", c.RunMigrations)

    c.DB.User = envStr("DB_USER", c.DB.User)
    c.DB.Pass = envStr("DB_PASS", c.DB.Pass)
    c.DB.Host = envStr("DB_HOST", c.DB.Host)
    c.DB.Port = envStr("DB_PORT", c.DB.Port)
    c.DB.Name = envStr("DB_NAME", c.DB.Name)
    c.DB.MaxConns = envInt("DB_MAX_CONNS", c.DB.MaxConns)

    c.JWTSecret = envStr("JWT_SECRET", c.JWTSecret)
    c.AccessTTLSeconds = envInt("ACCESS_TOKEN_TTL_SECONDS", c.AccessTTLSeconds)
    c.RefreshTTLSeconds = envInt("REFRESH_TOKEN_TTL_SECONDS", c.RefreshTTLSeconds)
    c.BcryptCost = envInt("BCRYPT_COST", c.BcryptCost)

    c.AMQPURL = envStr("RABBITMQ_URL", envStr("AMQP_URL", c.AMQPURL))
    c.AuditConsumer = envBool("AUDIT_CONSUMER_ENABLED", c.AuditConsumer)
    c.LogLevel = envStr("LOG_LEVEL", c.LogLevel)
    c.LogFormat = envStr("LOG_FORMAT", c.LogFormat)

    c.RateLimit.applyEnv()
    c.Redis.applyEnv()
}

// Validate reports every problem at once.
func (c Config) Validate() error {
    var errs []error
    if c.JWTSecret == "" {
        errs = append(errs, errors.New("missing required setting: JWT_SECRET"))
    }
    if c.AccessTTLSeconds <= 0 {
        errs = append(errs, fmt.Errorf("ACCESS_TOKEN_TTL_SECONDS must be positive, got %d", c.AccessTTLSeconds))
    }
    if c.RefreshTTLSeconds <= 0 {
        errs = append(errs, fmt.Errorf("REFRESH_TOKEN_TTL_SECONDS must be positive, got %d", c.RefreshTTLSeconds))
    }
    switch c.StoreBackend {
    case BackendMySQL:
        for key, v := range map[string]string{"DB_USER": c.DB.User, "DB_HOST": c.DB.Host, "DB_PORT": c.DB.Port, "DB_NAME": c.DB.Name} {
            if v == "" {
                errs = append(errs, fmt.Errorf("missing required setting: %s", key))
            }
        }
    case BackendMemory:
    default:
        errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
    }
    switch c.RateLimit.Backend {
    case BackendMemory, BackendRedis:
    default:
        errs = append(errs, fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", c.RateLimit.Backend))
    }
    return errors.Join(errs...)
}

func (c Config) AccessTTL() time.Duration  { return time.Duration(c.AccessTTLSeconds) * time.Second }
func (c Config) RefreshTTL() time.Duration { return time.Duration(c.RefreshTTLSeconds) * time.Second }
