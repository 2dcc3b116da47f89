package domain

import (
	"context"
	"time"
)

// Quote is a resolved price for a symbol. It is ephemeral: quotes live only
// inside the cache and response payloads, never in the store.
type Quote struct {
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// PriceSource is the uniform contract over one upstream market-data provider.
// Implementations normalize symbol spelling differences and provider response
// shapes at their boundary; no provider schema leaks past this interface.
type PriceSource interface {
	// Name identifies the source in logs and errors.
	Name() string

	// Snapshots resolves current prices for a batch of symbols in as few
	// round trips as the provider allows. Symbols the provider has no price
	// for are omitted from the map. A non-nil error means the whole call
	// failed; partial maps with nil errors are the normal degraded case.
	Snapshots(ctx context.Context, symbols []string) (map[string]Quote, error)

	// HistoricalClose returns the daily closing price for symbol on day.
	// The until bound is exclusive; callers pass a small forward window to
	// tolerate inclusive/exclusive date handling differences between
	// providers. Returns ErrNoData when the bar is not (yet) published.
	HistoricalClose(ctx context.Context, symbol string, day, until time.Time) (float64, error)

	// BatchLimit is the largest snapshot batch the source can be trusted
	// with before risking rate-limit lockout. Zero means unbounded.
	BatchLimit() int
}

// QuoteCache memoizes resolved prices for a bounded time. Implementations
// must be safe for concurrent readers and writers; reads never block behind
// an upstream call because writes are only installed after resolution
// completes.
type QuoteCache interface {
	// Get returns the cached price for symbol. found is false when the
	// symbol was never populated; fresh is false when the entry has aged
	// past the TTL. Callers treat a stale entry as a miss for decision
	// purposes but may use its price as an emergency fallback.
	Get(ctx context.Context, symbol string) (price float64, found, fresh bool)

	// Put installs price for symbol at time now, overwriting any previous
	// entry. Non-positive prices must be rejected by the caller; they mean
	// "no data", not a price of zero.
	Put(ctx context.Context, symbol string, price float64, now time.Time)
}

// HistoricalSeries is an ordered run of daily closes used as forecaster
// input.
type HistoricalSeries struct {
	Symbol string
	Dates  []time.Time
	Closes []float64
}

// ForecastResult is the opaque output of a forecasting model: a point
// estimate for the end of the horizon and a 0..100 confidence score.
type ForecastResult struct {
	PredictedPrice float64 `json:"predicted_price"`
	Confidence     float64 `json:"confidence"`
}

// Forecaster produces a point estimate for a symbol over a horizon. The core
// treats it as a black box; it only stores and later compares its output.
type Forecaster interface {
	Forecast(ctx context.Context, symbol string, series HistoricalSeries, horizonDays int) (ForecastResult, error)
}
