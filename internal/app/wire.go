package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/sentientlabs/stockcast/internal/blob/s3"
	"github.com/sentientlabs/stockcast/internal/cache/memory"
	"github.com/sentientlabs/stockcast/internal/cache/redis"
	"github.com/sentientlabs/stockcast/internal/config"
	"github.com/sentientlabs/stockcast/internal/crypto"
	"github.com/sentientlabs/stockcast/internal/domain"
	"github.com/sentientlabs/stockcast/internal/forecast"
	"github.com/sentientlabs/stockcast/internal/notify"
	"github.com/sentientlabs/stockcast/internal/platform/alpaca"
	"github.com/sentientlabs/stockcast/internal/platform/yahoo"
	"github.com/sentientlabs/stockcast/internal/resolver"
	"github.com/sentientlabs/stockcast/internal/service"
	"github.com/sentientlabs/stockcast/internal/store/postgres"
	"github.com/sentientlabs/stockcast/internal/universe"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Store    domain.PredictionStore
	Resolver *resolver.Resolver
	Universe *universe.Universe

	Predictions *service.PredictionService
	Forecasts   *service.ForecastService
	Lifecycle   *service.Lifecycle
	Scheduler   *service.Scheduler

	Verifier *crypto.Verifier
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function to be
// called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}
	deps.Store = postgres.NewPredictionStore(pgClient.Pool())

	// --- Quote cache ---
	var quoteCache domain.QuoteCache
	if strings.EqualFold(cfg.Cache.Backend, "redis") {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		quoteCache = redis.NewQuoteCache(redisClient, cfg.Cache.TTL.Duration, logger)
	} else {
		quoteCache = memory.NewQuoteCache(cfg.Cache.TTL.Duration)
	}

	// --- Price sources, primary first ---
	primary := alpaca.NewClient(alpaca.Config{
		BaseURL:   cfg.Alpaca.BaseURL,
		APIKey:    cfg.Alpaca.APIKey,
		APISecret: cfg.Alpaca.APISecret,
		Feed:      cfg.Alpaca.Feed,
		Timeout:   cfg.Alpaca.Timeout.Duration,
	})
	secondary := yahoo.NewClient(yahoo.Config{
		BaseURL:        cfg.Yahoo.BaseURL,
		Timeout:        cfg.Yahoo.Timeout.Duration,
		BatchLimit:     cfg.Yahoo.BatchLimit,
		RequestsPerSec: cfg.Yahoo.RequestsPerSec,
		MaxConcurrent:  cfg.Yahoo.MaxConcurrent,
	})

	deps.Resolver = resolver.New(
		quoteCache,
		[]domain.PriceSource{primary, secondary},
		resolver.Config{
			MaxAttempts: cfg.Resolver.MaxAttempts,
			Backoff:     cfg.Resolver.Backoff.Duration,
		},
		logger,
	)

	// --- Universe ---
	deps.Universe = universe.New(cfg.Universe.SourceURL, cfg.Universe.TTL.Duration, logger)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Archive (optional) ---
	var archiver service.PurgeArchiver
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.Archive.Endpoint,
			Region:         cfg.Archive.Region,
			Bucket:         cfg.Archive.Bucket,
			AccessKey:      cfg.Archive.AccessKey,
			SecretKey:      cfg.Archive.SecretKey,
			UseSSL:         cfg.Archive.UseSSL,
			ForcePathStyle: cfg.Archive.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		archiver = s3blob.NewArchiver(s3Client, cfg.Archive.Prefix)
	}

	// --- Signing keys for job triggers ---
	currentKey, err := crypto.LoadSigningKey(crypto.KeyConfig{
		RawKey:           cfg.Scheduler.CurrentKey,
		EncryptedKeyPath: cfg.Scheduler.EncryptedKeyPath,
		KeyPassword:      cfg.Scheduler.KeyPassword,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: load current signing key: %w", err)
	}
	nextKey, err := crypto.LoadSigningKey(crypto.KeyConfig{
		RawKey:           cfg.Scheduler.NextKey,
		EncryptedKeyPath: cfg.Scheduler.EncryptedNextKeyPath,
		KeyPassword:      cfg.Scheduler.KeyPassword,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: load next signing key: %w", err)
	}
	deps.Verifier = crypto.NewVerifier(currentKey, nextKey)

	// --- Services ---
	deps.Lifecycle = service.NewLifecycle(deps.Store, deps.Resolver, cfg.Lifecycle.FinalizeWindowDays, logger)
	deps.Predictions = service.NewPredictionService(
		deps.Store, deps.Resolver, deps.Lifecycle, deps.Universe, cfg.Lifecycle.MaxActivePerUser, logger,
	)
	deps.Forecasts = service.NewForecastService(primary, forecast.NewDrift(), deps.Universe, logger)
	deps.Scheduler = service.NewScheduler(
		deps.Store, deps.Lifecycle, deps.Resolver, archiver, deps.Notifier, cfg.Lifecycle.RetentionDays, logger,
	)

	return deps, cleanup, nil
}
