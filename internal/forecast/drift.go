// Package forecast implements the point-estimate models offered by the
// forecast endpoint.
package forecast

import (
	"context"
	"fmt"
	"math"

	"github.com/sentientlabs/stockcast/internal/domain"
)

// minSamples is the shortest close series the drift model accepts.
const minSamples = 2

// Drift is a random-walk-with-drift model: the forecast extends the series'
// mean daily change over the horizon. Confidence is derived from how well
// that constant drift explained the observed series.
type Drift struct{}

// NewDrift creates a Drift forecaster.
func NewDrift() *Drift {
	return &Drift{}
}

// Forecast projects the last close forward by the mean daily change times
// the horizon. It returns domain.ErrNoData when the series is too short.
func (d *Drift) Forecast(_ context.Context, symbol string, series domain.HistoricalSeries, horizonDays int) (domain.ForecastResult, error) {
	closes := series.Closes
	if len(closes) < minSamples {
		return domain.ForecastResult{}, fmt.Errorf("forecast: %s: %d closes: %w", symbol, len(closes), domain.ErrNoData)
	}
	if horizonDays < 1 {
		return domain.ForecastResult{}, fmt.Errorf("forecast: %s: horizon must be >= 1 day", symbol)
	}

	last := closes[len(closes)-1]
	if last <= 0 {
		return domain.ForecastResult{}, fmt.Errorf("forecast: %s: non-positive last close: %w", symbol, domain.ErrNoData)
	}

	drift := (last - closes[0]) / float64(len(closes)-1)
	predicted := last + drift*float64(horizonDays)
	if predicted < 0 {
		predicted = 0
	}

	return domain.ForecastResult{
		PredictedPrice: round2(predicted),
		Confidence:     confidence(closes, drift, last),
	}, nil
}

// confidence scores the drift fit on a 0..100 scale: the mean absolute error
// of the one-step drift prediction, normalized by the last close.
func confidence(closes []float64, drift, last float64) float64 {
	var absErr float64
	for i := 1; i < len(closes); i++ {
		predicted := closes[i-1] + drift
		absErr += math.Abs(closes[i] - predicted)
	}
	mae := absErr / float64(len(closes)-1)

	score := 100 * (1 - mae/last)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return math.Round(score*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Compile-time interface check.
var _ domain.Forecaster = (*Drift)(nil)
