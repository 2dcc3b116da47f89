// Package config defines the top-level configuration for the forecast
// tracker and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by STOCKCAST_* environment
// variables.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	Cache     CacheConfig     `toml:"cache"`
	Alpaca    AlpacaConfig    `toml:"alpaca"`
	Yahoo     YahooConfig     `toml:"yahoo"`
	Resolver  ResolverConfig  `toml:"resolver"`
	Lifecycle LifecycleConfig `toml:"lifecycle"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Archive   ArchiveConfig   `toml:"archive"`
	Universe  UniverseConfig  `toml:"universe"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis is only dialed when
// the cache backend is set to "redis".
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// CacheConfig selects and tunes the quote cache.
type CacheConfig struct {
	// Backend is "memory" for the in-process cache or "redis" for the
	// shared cache.
	Backend string   `toml:"backend"`
	TTL     duration `toml:"ttl"`
}

// AlpacaConfig holds credentials and endpoints for the primary price source.
type AlpacaConfig struct {
	BaseURL   string   `toml:"base_url"`
	APIKey    string   `toml:"api_key"`
	APISecret string   `toml:"api_secret"`
	Feed      string   `toml:"feed"`
	Timeout   duration `toml:"timeout"`
}

// YahooConfig holds endpoints and limits for the secondary price source.
type YahooConfig struct {
	BaseURL        string   `toml:"base_url"`
	Timeout        duration `toml:"timeout"`
	BatchLimit     int      `toml:"batch_limit"`
	RequestsPerSec int      `toml:"requests_per_sec"`
	MaxConcurrent  int      `toml:"max_concurrent"`
}

// ResolverConfig tunes the fallback resolution chain.
type ResolverConfig struct {
	MaxAttempts int      `toml:"max_attempts"`
	Backoff     duration `toml:"backoff"`
}

// LifecycleConfig tunes finalization and retention policy.
type LifecycleConfig struct {
	// FinalizeWindowDays is the forward window requested when fetching the
	// historical close, tolerating inclusive/exclusive date handling
	// differences between providers.
	FinalizeWindowDays int `toml:"finalize_window_days"`
	// RetentionDays is the age past target date after which abandoned
	// ACTIVE predictions are purged.
	RetentionDays int `toml:"retention_days"`
	// MaxActivePerUser caps simultaneous ACTIVE predictions per user.
	MaxActivePerUser int `toml:"max_active_per_user"`
}

// SchedulerConfig holds the shared-secret signing keys for scheduled job
// triggers. Two keys are recognized so operators can rotate secrets without
// downtime. Each key may be given in the clear or as an encrypted key file.
type SchedulerConfig struct {
	CurrentKey           string `toml:"current_key"`
	NextKey              string `toml:"next_key"`
	EncryptedKeyPath     string `toml:"encrypted_key_path"`
	EncryptedNextKeyPath string `toml:"encrypted_next_key_path"`
	KeyPassword          string `toml:"key_password"`
}

// ArchiveConfig holds S3-compatible object storage parameters for the
// cleanup job's cold archive. Archiving is skipped when disabled.
type ArchiveConfig struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// UniverseConfig controls the tracked-symbol universe used to validate new
// predictions.
type UniverseConfig struct {
	SourceURL string   `toml:"source_url"`
	TTL       duration `toml:"ttl"`
}

// NotifyConfig holds notification channel credentials for scheduled-job
// reports.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "stockcast",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     duration{5 * time.Minute},
		},
		Alpaca: AlpacaConfig{
			BaseURL: "https://data.alpaca.markets",
			Feed:    "iex",
			Timeout: duration{10 * time.Second},
		},
		Yahoo: YahooConfig{
			BaseURL:        "https://query1.finance.yahoo.com",
			Timeout:        duration{10 * time.Second},
			BatchLimit:     5,
			RequestsPerSec: 4,
			MaxConcurrent:  4,
		},
		Resolver: ResolverConfig{
			MaxAttempts: 3,
			Backoff:     duration{time.Second},
		},
		Lifecycle: LifecycleConfig{
			FinalizeWindowDays: 2,
			RetentionDays:      30,
			MaxActivePerUser:   3,
		},
		Archive: ArchiveConfig{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "stockcast-archive",
			UseSSL:         false,
			ForcePathStyle: true,
			Prefix:         "purged",
		},
		Universe: UniverseConfig{
			TTL: duration{24 * time.Hour},
		},
		Notify: NotifyConfig{
			Events: []string{"job_validate", "job_cleanup", "error"},
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":   true,
	"validate": true,
	"cleanup":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, validate, cleanup)", c.Mode))
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Server
	if c.Mode == "server" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Cache
	switch strings.ToLower(c.Cache.Backend) {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when cache.backend is redis")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	default:
		errs = append(errs, fmt.Sprintf("cache: unknown backend %q (valid: memory, redis)", c.Cache.Backend))
	}
	if c.Cache.TTL.Duration <= 0 {
		errs = append(errs, "cache: ttl must be positive")
	}

	// Alpaca
	if c.Alpaca.BaseURL == "" {
		errs = append(errs, "alpaca: base_url must not be empty")
	}
	if c.Alpaca.Timeout.Duration <= 0 {
		errs = append(errs, "alpaca: timeout must be positive")
	}

	// Yahoo
	if c.Yahoo.BaseURL == "" {
		errs = append(errs, "yahoo: base_url must not be empty")
	}
	if c.Yahoo.BatchLimit < 1 {
		errs = append(errs, "yahoo: batch_limit must be >= 1")
	}
	if c.Yahoo.MaxConcurrent < 1 {
		errs = append(errs, "yahoo: max_concurrent must be >= 1")
	}

	// Resolver
	if c.Resolver.MaxAttempts < 1 {
		errs = append(errs, "resolver: max_attempts must be >= 1")
	}
	if c.Resolver.Backoff.Duration < 0 {
		errs = append(errs, "resolver: backoff must not be negative")
	}

	// Lifecycle
	if c.Lifecycle.FinalizeWindowDays < 1 {
		errs = append(errs, "lifecycle: finalize_window_days must be >= 1")
	}
	if c.Lifecycle.RetentionDays < 1 {
		errs = append(errs, "lifecycle: retention_days must be >= 1")
	}
	if c.Lifecycle.MaxActivePerUser < 1 {
		errs = append(errs, "lifecycle: max_active_per_user must be >= 1")
	}

	// Scheduler. Job triggers mutate the store, so running the HTTP server
	// without any signing key is a misconfiguration.
	if c.Mode == "server" {
		if c.Scheduler.CurrentKey == "" && c.Scheduler.EncryptedKeyPath == "" {
			errs = append(errs, "scheduler: current_key or encrypted_key_path must be set")
		}
		if c.Scheduler.EncryptedKeyPath != "" && c.Scheduler.KeyPassword == "" {
			errs = append(errs, "scheduler: key_password is required when encrypted_key_path is set")
		}
	}

	// Archive
	if c.Archive.Enabled {
		if c.Archive.Endpoint == "" {
			errs = append(errs, "archive: endpoint must not be empty when enabled")
		}
		if c.Archive.Bucket == "" {
			errs = append(errs, "archive: bucket must not be empty when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
