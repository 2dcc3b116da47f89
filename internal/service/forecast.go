package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sentientlabs/stockcast/internal/domain"
)

// lookbackDays is the close-series window fed to the forecaster.
const lookbackDays = 90

// ForecastService produces point estimates for tracked symbols.
type ForecastService struct {
	history    HistoryProvider
	forecaster domain.Forecaster
	universe   SymbolUniverse
	logger     *slog.Logger
	now        func() time.Time
}

// NewForecastService creates a ForecastService.
func NewForecastService(
	history HistoryProvider,
	forecaster domain.Forecaster,
	universe SymbolUniverse,
	logger *slog.Logger,
) *ForecastService {
	return &ForecastService{
		history:    history,
		forecaster: forecaster,
		universe:   universe,
		logger:     logger.With(slog.String("component", "forecast_service")),
		now:        time.Now,
	}
}

// Forecast fetches the recent close series for symbol and runs the model
// over the given horizon.
func (s *ForecastService) Forecast(ctx context.Context, symbol string, horizonDays int) (domain.ForecastResult, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return domain.ForecastResult{}, fmt.Errorf("forecast_service: symbol is required")
	}
	if horizonDays < 1 {
		return domain.ForecastResult{}, fmt.Errorf("forecast_service: horizon must be >= 1 day")
	}

	tracked, err := s.universe.Contains(ctx, symbol)
	if err != nil {
		return domain.ForecastResult{}, fmt.Errorf("forecast_service: check universe: %w", err)
	}
	if !tracked {
		return domain.ForecastResult{}, fmt.Errorf("forecast_service: %s: %w", symbol, domain.ErrUnknownSymbol)
	}

	until := s.now().UTC()
	series, err := s.history.History(ctx, symbol, until.AddDate(0, 0, -lookbackDays), until)
	if err != nil {
		return domain.ForecastResult{}, fmt.Errorf("forecast_service: fetch history: %w", err)
	}

	result, err := s.forecaster.Forecast(ctx, symbol, series, horizonDays)
	if err != nil {
		return domain.ForecastResult{}, fmt.Errorf("forecast_service: %w", err)
	}

	s.logger.Debug("forecast produced",
		slog.String("symbol", symbol),
		slog.Int("horizon_days", horizonDays),
		slog.Float64("predicted_price", result.PredictedPrice),
		slog.Float64("confidence", result.Confidence),
	)
	return result, nil
}
