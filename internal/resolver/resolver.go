// Package resolver turns symbol sets into current prices by combining the
// quote cache with an ordered chain of price sources.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sentientlabs/stockcast/internal/domain"
)

// Config tunes retry behavior for source calls.
type Config struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Resolver resolves current prices with a cache-first, multi-source fallback
// strategy. Sources are consulted in order; each source only sees the
// symbols the previous tiers could not resolve.
type Resolver struct {
	cache   domain.QuoteCache
	sources []domain.PriceSource
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Resolver over the given cache and ordered sources.
func New(cache domain.QuoteCache, sources []domain.PriceSource, cfg Config, logger *slog.Logger) *Resolver {
	return &Resolver{
		cache:   cache,
		sources: sources,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "resolver")),
		now:     time.Now,
	}
}

// Resolve returns current prices for the given symbols. Fresh cache entries
// are served directly. Remaining symbols walk the source chain; every price
// a source returns is written back to the cache. Symbols no source can price
// fall back to a stale cache entry when one exists, and are otherwise absent
// from the result. Symbols are never reported with a zero price.
func (r *Resolver) Resolve(ctx context.Context, symbols []string) (map[string]float64, error) {
	prices := make(map[string]float64, len(symbols))

	var missing []string
	for _, sym := range symbols {
		if price, found, fresh := r.cache.Get(ctx, sym); found && fresh {
			prices[sym] = price
			continue
		}
		missing = append(missing, sym)
	}
	if len(missing) == 0 {
		return prices, nil
	}

	for _, src := range r.sources {
		if len(missing) == 0 {
			break
		}
		if limit := src.BatchLimit(); limit > 0 && len(missing) > limit {
			r.logger.Debug("skipping source, batch too large",
				slog.String("source", src.Name()),
				slog.Int("symbols", len(missing)),
				slog.Int("limit", limit))
			continue
		}

		quotes, err := r.snapshotsWithRetry(ctx, src, missing)
		if err != nil {
			r.logger.Warn("source failed",
				slog.String("source", src.Name()),
				slog.Int("symbols", len(missing)),
				slog.String("error", err.Error()))
			continue
		}

		now := r.now()
		var still []string
		for _, sym := range missing {
			q, ok := quotes[sym]
			if !ok || q.Price <= 0 {
				still = append(still, sym)
				continue
			}
			prices[sym] = q.Price
			r.cache.Put(ctx, sym, q.Price, now)
		}
		missing = still
	}

	// Last resort: serve stale cache entries rather than nothing.
	for _, sym := range missing {
		if price, found, _ := r.cache.Get(ctx, sym); found {
			r.logger.Warn("serving stale price, all sources failed",
				slog.String("symbol", sym))
			prices[sym] = price
		}
	}

	return prices, nil
}

// ResolveOne resolves a single symbol. It returns domain.ErrNoData when no
// source and no cache entry can price it.
func (r *Resolver) ResolveOne(ctx context.Context, symbol string) (float64, error) {
	prices, err := r.Resolve(ctx, []string{symbol})
	if err != nil {
		return 0, err
	}
	price, ok := prices[symbol]
	if !ok {
		return 0, fmt.Errorf("resolver: %s: %w", symbol, domain.ErrNoData)
	}
	return price, nil
}

// HistoricalClose walks the source chain for the daily close of symbol on
// the trading day starting at day. Unlike Resolve it never touches the
// cache; finalization needs the close of record, not a recent quote.
func (r *Resolver) HistoricalClose(ctx context.Context, symbol string, day, until time.Time) (float64, error) {
	var lastErr error
	for _, src := range r.sources {
		price, err := r.historicalWithRetry(ctx, src, symbol, day, until)
		if err != nil {
			lastErr = err
			r.logger.Warn("historical lookup failed",
				slog.String("source", src.Name()),
				slog.String("symbol", symbol),
				slog.String("error", err.Error()))
			continue
		}
		return price, nil
	}
	if lastErr == nil {
		lastErr = domain.ErrNoData
	}
	return 0, fmt.Errorf("resolver: historical %s: %w", symbol, lastErr)
}

// snapshotsWithRetry calls src.Snapshots, retrying transient failures with
// exponential backoff. Permanent failures abort immediately.
func (r *Resolver) snapshotsWithRetry(ctx context.Context, src domain.PriceSource, symbols []string) (map[string]domain.Quote, error) {
	var quotes map[string]domain.Quote
	operation := func() error {
		var err error
		quotes, err = src.Snapshots(ctx, symbols)
		if err != nil && !domain.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(operation, r.retryPolicy(ctx)); err != nil {
		return nil, err
	}
	return quotes, nil
}

// historicalWithRetry calls src.HistoricalClose with the same retry policy.
func (r *Resolver) historicalWithRetry(ctx context.Context, src domain.PriceSource, symbol string, day, until time.Time) (float64, error) {
	var price float64
	operation := func() error {
		var err error
		price, err = src.HistoricalClose(ctx, symbol, day, until)
		if err != nil && !domain.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(operation, r.retryPolicy(ctx)); err != nil {
		return 0, err
	}
	return price, nil
}

func (r *Resolver) retryPolicy(ctx context.Context) backoff.BackOffContext {
	strategy := backoff.NewExponentialBackOff()
	strategy.InitialInterval = r.cfg.Backoff
	var policy backoff.BackOff = strategy
	if r.cfg.MaxAttempts > 0 {
		policy = backoff.WithMaxRetries(strategy, uint64(r.cfg.MaxAttempts-1))
	}
	return backoff.WithContext(policy, ctx)
}
