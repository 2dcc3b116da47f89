package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies STOCKCAST_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known STOCKCAST_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "STOCKCAST_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "STOCKCAST_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "STOCKCAST_SERVER_CORS_ORIGINS")

	// ── Database ──
	setStr(&cfg.Database.DSN, "STOCKCAST_DATABASE_DSN")
	setStr(&cfg.Database.Host, "STOCKCAST_DATABASE_HOST")
	setInt(&cfg.Database.Port, "STOCKCAST_DATABASE_PORT")
	setStr(&cfg.Database.Database, "STOCKCAST_DATABASE_NAME")
	setStr(&cfg.Database.User, "STOCKCAST_DATABASE_USER")
	setStr(&cfg.Database.Password, "STOCKCAST_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "STOCKCAST_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "STOCKCAST_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "STOCKCAST_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "STOCKCAST_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "STOCKCAST_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "STOCKCAST_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "STOCKCAST_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "STOCKCAST_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "STOCKCAST_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "STOCKCAST_REDIS_TLS_ENABLED")

	// ── Cache ──
	setStr(&cfg.Cache.Backend, "STOCKCAST_CACHE_BACKEND")
	setDuration(&cfg.Cache.TTL, "STOCKCAST_CACHE_TTL")

	// ── Alpaca ──
	setStr(&cfg.Alpaca.BaseURL, "STOCKCAST_ALPACA_BASE_URL")
	setStr(&cfg.Alpaca.APIKey, "STOCKCAST_ALPACA_API_KEY")
	setStr(&cfg.Alpaca.APISecret, "STOCKCAST_ALPACA_API_SECRET")
	setStr(&cfg.Alpaca.Feed, "STOCKCAST_ALPACA_FEED")
	setDuration(&cfg.Alpaca.Timeout, "STOCKCAST_ALPACA_TIMEOUT")

	// ── Yahoo ──
	setStr(&cfg.Yahoo.BaseURL, "STOCKCAST_YAHOO_BASE_URL")
	setDuration(&cfg.Yahoo.Timeout, "STOCKCAST_YAHOO_TIMEOUT")
	setInt(&cfg.Yahoo.BatchLimit, "STOCKCAST_YAHOO_BATCH_LIMIT")
	setInt(&cfg.Yahoo.RequestsPerSec, "STOCKCAST_YAHOO_REQUESTS_PER_SEC")
	setInt(&cfg.Yahoo.MaxConcurrent, "STOCKCAST_YAHOO_MAX_CONCURRENT")

	// ── Resolver ──
	setInt(&cfg.Resolver.MaxAttempts, "STOCKCAST_RESOLVER_MAX_ATTEMPTS")
	setDuration(&cfg.Resolver.Backoff, "STOCKCAST_RESOLVER_BACKOFF")

	// ── Lifecycle ──
	setInt(&cfg.Lifecycle.FinalizeWindowDays, "STOCKCAST_LIFECYCLE_FINALIZE_WINDOW_DAYS")
	setInt(&cfg.Lifecycle.RetentionDays, "STOCKCAST_LIFECYCLE_RETENTION_DAYS")
	setInt(&cfg.Lifecycle.MaxActivePerUser, "STOCKCAST_LIFECYCLE_MAX_ACTIVE_PER_USER")

	// ── Scheduler ──
	setStr(&cfg.Scheduler.CurrentKey, "STOCKCAST_SCHEDULER_CURRENT_KEY")
	setStr(&cfg.Scheduler.NextKey, "STOCKCAST_SCHEDULER_NEXT_KEY")
	setStr(&cfg.Scheduler.EncryptedKeyPath, "STOCKCAST_SCHEDULER_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Scheduler.EncryptedNextKeyPath, "STOCKCAST_SCHEDULER_ENCRYPTED_NEXT_KEY_PATH")
	setStr(&cfg.Scheduler.KeyPassword, "STOCKCAST_SCHEDULER_KEY_PASSWORD")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "STOCKCAST_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Endpoint, "STOCKCAST_ARCHIVE_ENDPOINT")
	setStr(&cfg.Archive.Region, "STOCKCAST_ARCHIVE_REGION")
	setStr(&cfg.Archive.Bucket, "STOCKCAST_ARCHIVE_BUCKET")
	setStr(&cfg.Archive.AccessKey, "STOCKCAST_ARCHIVE_ACCESS_KEY")
	setStr(&cfg.Archive.SecretKey, "STOCKCAST_ARCHIVE_SECRET_KEY")
	setBool(&cfg.Archive.UseSSL, "STOCKCAST_ARCHIVE_USE_SSL")
	setBool(&cfg.Archive.ForcePathStyle, "STOCKCAST_ARCHIVE_FORCE_PATH_STYLE")
	setStr(&cfg.Archive.Prefix, "STOCKCAST_ARCHIVE_PREFIX")

	// ── Universe ──
	setStr(&cfg.Universe.SourceURL, "STOCKCAST_UNIVERSE_SOURCE_URL")
	setDuration(&cfg.Universe.TTL, "STOCKCAST_UNIVERSE_TTL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "STOCKCAST_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "STOCKCAST_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "STOCKCAST_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "STOCKCAST_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "STOCKCAST_MODE")
	setStr(&cfg.LogLevel, "STOCKCAST_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
