package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Database.DSN = "postgres://u:p@localhost:5432/stockcast"
	cfg.Scheduler.CurrentKey = "secret"
	return cfg
}

func TestDefaults_ValidateWithSecrets(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "bogus"
	cfg.Cache.Backend = "memcached"
	cfg.Lifecycle.RetentionDays = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "unknown backend")
	assert.Contains(t, err.Error(), "retention_days")
}

func TestValidate_RedisRequiredForRedisBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Backend = "redis"
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis: addr")
}

func TestValidate_SchedulerKeyRequiredInServerMode(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.CurrentKey = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler: current_key")

	// One-shot job modes run without the HTTP trigger surface.
	cfg.Mode = "cleanup"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
mode = "validate"

[cache]
backend = "memory"
ttl = "2m"

[lifecycle]
retention_days = 45
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "validate", cfg.Mode)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL.Duration)
	assert.Equal(t, 45, cfg.Lifecycle.RetentionDays)
	// Untouched defaults survive the merge.
	assert.Equal(t, 3, cfg.Lifecycle.MaxActivePerUser)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("mode = \"server\"\n"), 0o600))

	t.Setenv("STOCKCAST_SCHEDULER_CURRENT_KEY", "from-env")
	t.Setenv("STOCKCAST_CACHE_TTL", "90s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Scheduler.CurrentKey)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL.Duration)
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Alpaca.APISecret = "super-secret"
	cfg.Notify.TelegramToken = "tg-token"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Alpaca.APISecret)
	assert.Equal(t, "***", red.Scheduler.CurrentKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)
	// Original untouched.
	assert.Equal(t, "super-secret", cfg.Alpaca.APISecret)
}
