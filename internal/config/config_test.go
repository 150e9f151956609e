package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithMemoryBackend(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL())
	assert.Equal(t, 10, cfg.RateLimit.Capacity)
	assert.Equal(t, 10, cfg.RateLimit.RefillTokens)
	assert.Equal(t, time.Minute, cfg.RateLimit.RefillInterval)
	assert.Equal(t, "/auth/", cfg.RateLimit.PathPrefix)
	assert.Equal(t, BackendMemory, cfg.RateLimit.Backend)
}

func TestLoad_MissingSecretAndDB(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_BACKEND", "mysql")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_NAME", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "DB_USER")
	assert.Contains(t, err.Error(), "DB_NAME")
}

func TestLoad_TOMLThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auth.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
env = "staging"
port = "9000"
store_backend = "mysql"
jwt_secret = "from-file"
access_token_ttl_seconds = 600

[database]
user = "app"
host = "db"
port = "3306"
name = "auth"

[rate_limit]
capacity = 20
refill_interval = "30s"
backend = "redis"
`), 0o600))

	t.Setenv("APP_CONFIG_FILE", path)
	t.Setenv("APP_PORT", "9100")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Env)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 10*time.Minute, cfg.AccessTTL())
	assert.Equal(t, "app", cfg.DB.User)
	assert.Equal(t, 20, cfg.RateLimit.Capacity)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, BackendRedis, cfg.RateLimit.Backend)
}

func TestLoad_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("port = ["), 0o600))
	t.Setenv("APP_CONFIG_FILE", path)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file")
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("AUTH_TEST_DOTENV_SECRET=ignored\nBCRYPT_COST=12\n"), 0o600))
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("BCRYPT_COST", "")
	_ = os.Unsetenv("BCRYPT_COST")
	t.Cleanup(func() {
		_ = os.Unsetenv("AUTH_TEST_DOTENV_SECRET")
		_ = os.Unsetenv("BCRYPT_COST")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, "ignored", os.Getenv("AUTH_TEST_DOTENV_SECRET"))

	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}

func TestRateLimitConfig_EnvClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "bogus")
	t.Setenv("RATE_LIMIT_PATH_PREFIX", "v1/auth/")
	t.Setenv("RATE_LIMIT_ENABLED", "off")

	r := DefaultRateLimitConfig()
	r.applyEnv()
	assert.Equal(t, 1, r.Capacity)
	assert.Equal(t, time.Minute, r.RefillInterval)
	assert.Equal(t, "/v1/auth/", r.PathPrefix)
	assert.False(t, r.Enabled)
}

func TestValidate_UnknownBackends(t *testing.T) {
	cfg := Defaults()
	cfg.JWTSecret = "x"
	cfg.StoreBackend = "postgres"
	cfg.RateLimit.Backend = "etcd"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown STORE_BACKEND "postgres"`)
	assert.Contains(t, err.Error(), `unknown RATE_LIMIT_BACKEND "etcd"`)
}

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	addr := mr.Addr()
	c := NewRedisClient(RedisConfig{Addr: addr})
	require.NotNil(t, c)
	_ = c.Close()

	mr.Close()
	assert.Nil(t, NewRedisClient(RedisConfig{Addr: addr}))
}

func TestRedisConfig_HostPortWins(t *testing.T) {
	t.Setenv("REDIS_ADDR", "a:1")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")

	r := DefaultRedisConfig()
	r.applyEnv()
	assert.Equal(t, "cache:6380", r.Addr)
	assert.Equal(t, 2, r.DB)
}
