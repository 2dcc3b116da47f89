// Package service implements the application use cases: prediction
// creation, performance reporting, lifecycle finalization, forecasting,
// and the scheduled jobs.
package service

import (
	"context"
	"time"

	"github.com/sentientlabs/stockcast/internal/domain"
)

// PriceResolver is the narrow resolution surface the services consume.
type PriceResolver interface {
	// Resolve returns current prices for symbols; unresolvable symbols are
	// absent from the map.
	Resolve(ctx context.Context, symbols []string) (map[string]float64, error)

	// ResolveOne returns the current price for a single symbol, or
	// domain.ErrNoData.
	ResolveOne(ctx context.Context, symbol string) (float64, error)

	// HistoricalClose returns the close of record for symbol on the trading
	// day starting at day, searching [day, until).
	HistoricalClose(ctx context.Context, symbol string, day, until time.Time) (float64, error)
}

// SymbolUniverse answers whether a symbol may be predicted against.
type SymbolUniverse interface {
	Contains(ctx context.Context, symbol string) (bool, error)
}

// HistoryProvider supplies daily close series for forecasting.
type HistoryProvider interface {
	History(ctx context.Context, symbol string, from, until time.Time) (domain.HistoricalSeries, error)
}

// PurgeArchiver uploads purged predictions to cold storage before they are
// dropped. A nil archiver disables archiving.
type PurgeArchiver interface {
	ArchivePurged(ctx context.Context, preds []domain.Prediction, runDate time.Time) (string, error)
}

// JobNotifier delivers job-run reports to operator channels.
type JobNotifier interface {
	JobReport(ctx context.Context, event, title string, fields map[string]any)
}
