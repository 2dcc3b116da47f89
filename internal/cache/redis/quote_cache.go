package redis

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sentientlabs/stockcast/internal/domain"
)

// QuoteCache implements domain.QuoteCache on Redis hashes. Each symbol's
// price is stored at key "quote:{symbol}" with fields "price" and "ts"
// (Unix nanosecond timestamp). Freshness is computed client-side from the
// stored timestamp so stale entries remain readable as a last resort;
// keys expire after a generous multiple of the TTL to bound growth.
type QuoteCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// retentionFactor controls how long past the freshness TTL a stale entry
// stays readable before Redis evicts it.
const retentionFactor = 12

// NewQuoteCache creates a QuoteCache backed by the given Client with the
// given freshness TTL.
func NewQuoteCache(c *Client, ttl time.Duration, logger *slog.Logger) *QuoteCache {
	return &QuoteCache{
		rdb:    c.rdb,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "quote_cache")),
		now:    time.Now,
	}
}

func quoteKey(symbol string) string {
	return "quote:" + symbol
}

// Get retrieves the cached price for symbol. Redis errors and malformed
// entries degrade to a cache miss so a cache outage never blocks price
// resolution.
func (qc *QuoteCache) Get(ctx context.Context, symbol string) (float64, bool, bool) {
	vals, err := qc.rdb.HGetAll(ctx, quoteKey(symbol)).Result()
	if err != nil {
		qc.logger.Warn("cache read failed, treating as miss",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()))
		return 0, false, false
	}
	if len(vals) == 0 {
		return 0, false, false
	}

	price, err := strconv.ParseFloat(vals["price"], 64)
	if err != nil {
		return 0, false, false
	}
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return 0, false, false
	}

	fresh := qc.now().Sub(time.Unix(0, tsNano)) < qc.ttl
	return price, true, fresh
}

// Put stores a price for symbol, stamping it with the given time. Write
// failures are logged and swallowed.
func (qc *QuoteCache) Put(ctx context.Context, symbol string, price float64, now time.Time) {
	key := quoteKey(symbol)
	fields := map[string]interface{}{
		"price": strconv.FormatFloat(price, 'f', -1, 64),
		"ts":    strconv.FormatInt(now.UnixNano(), 10),
	}

	pipe := qc.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, retentionFactor*qc.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		qc.logger.Warn("cache write failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()))
	}
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
