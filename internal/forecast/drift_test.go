package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentientlabs/stockcast/internal/domain"
)

func series(closes ...float64) domain.HistoricalSeries {
	dates := make([]time.Time, len(closes))
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = base.AddDate(0, 0, i)
	}
	return domain.HistoricalSeries{Symbol: "AAPL", Dates: dates, Closes: closes}
}

func TestForecast_LinearTrend(t *testing.T) {
	d := NewDrift()

	// Perfectly linear series: drift of +1/day, perfect fit.
	res, err := d.Forecast(context.Background(), "AAPL", series(100, 101, 102, 103), 5)
	require.NoError(t, err)

	assert.Equal(t, 108.0, res.PredictedPrice)
	assert.Equal(t, 100.0, res.Confidence)
}

func TestForecast_FlatSeries(t *testing.T) {
	d := NewDrift()

	res, err := d.Forecast(context.Background(), "AAPL", series(50, 50, 50), 10)
	require.NoError(t, err)

	assert.Equal(t, 50.0, res.PredictedPrice)
	assert.Equal(t, 100.0, res.Confidence)
}

func TestForecast_NoisySeriesLowersConfidence(t *testing.T) {
	d := NewDrift()

	res, err := d.Forecast(context.Background(), "AAPL", series(100, 140, 90, 130, 100), 1)
	require.NoError(t, err)

	assert.Less(t, res.Confidence, 100.0)
	assert.GreaterOrEqual(t, res.Confidence, 0.0)
}

func TestForecast_NegativeProjectionClampedToZero(t *testing.T) {
	d := NewDrift()

	// Steep downtrend projected far out would cross zero.
	res, err := d.Forecast(context.Background(), "AAPL", series(100, 50), 10)
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.PredictedPrice)
}

func TestForecast_TooFewSamples(t *testing.T) {
	d := NewDrift()

	_, err := d.Forecast(context.Background(), "AAPL", series(100), 5)
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestForecast_BadHorizon(t *testing.T) {
	d := NewDrift()

	_, err := d.Forecast(context.Background(), "AAPL", series(100, 101), 0)
	assert.Error(t, err)
}
