package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentientlabs/stockcast/internal/domain"
)

func activePrediction(id string, target float64, targetDate time.Time) domain.Prediction {
	return domain.Prediction{
		ID:           id,
		UserID:       "user-1",
		Symbol:       "AAPL",
		InitialPrice: 100,
		TargetPrice:  target,
		Status:       domain.StatusActive,
		TargetDate:   targetDate,
	}
}

func newLifecycle(store *fakeStore, resolver *fakeResolver, now time.Time) *Lifecycle {
	l := NewLifecycle(store, resolver, 2, discard)
	l.now = func() time.Time { return now }
	return l
}

func TestEvaluate_NotYetDue(t *testing.T) {
	targetDate := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	p := activePrediction("p1", 110, targetDate)
	store := newFakeStore(p)
	resolver := &fakeResolver{historicalPrice: 112}

	l := newLifecycle(store, resolver, time.Date(2025, 6, 5, 12, 0, 0, 0, time.UTC))
	got, finalized, err := l.Evaluate(context.Background(), p)
	require.NoError(t, err)

	assert.False(t, finalized)
	assert.Nil(t, got.FinalPrice)
	assert.Zero(t, resolver.historicalCalls)
}

func TestEvaluate_FinalizesWithAccuracy(t *testing.T) {
	// Wednesday target, due the same day.
	targetDate := time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)
	p := activePrediction("p1", 110, targetDate)
	store := newFakeStore(p)
	resolver := &fakeResolver{historicalPrice: 112}

	l := newLifecycle(store, resolver, time.Date(2025, 6, 4, 22, 0, 0, 0, time.UTC))
	got, finalized, err := l.Evaluate(context.Background(), p)
	require.NoError(t, err)

	assert.True(t, finalized)
	require.NotNil(t, got.FinalPrice)
	assert.Equal(t, 112.0, *got.FinalPrice)
	require.NotNil(t, got.AccuracyScore)
	assert.Equal(t, 98.2, *got.AccuracyScore)
	assert.Equal(t, domain.StatusValidated, got.Status)
	require.NotNil(t, got.FinalizedDate)
	assert.Equal(t, targetDate, *got.FinalizedDate)

	// The search window spans the configured forward days.
	assert.Equal(t, targetDate, resolver.lastDay)
	assert.Equal(t, targetDate.AddDate(0, 0, 2), resolver.lastUntil)
}

func TestEvaluate_WeekendTargetWaitsForMonday(t *testing.T) {
	// Saturday target evaluates against Monday's close.
	saturday := time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC)
	monday := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	p := activePrediction("p1", 110, saturday)
	store := newFakeStore(p)
	resolver := &fakeResolver{historicalPrice: 108}

	// On Sunday nothing is due yet.
	l := newLifecycle(store, resolver, saturday.AddDate(0, 0, 1))
	_, finalized, err := l.Evaluate(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, finalized)
	assert.Zero(t, resolver.historicalCalls)

	// On Monday the close of record is fetched for Monday.
	l = newLifecycle(store, resolver, monday.Add(21*time.Hour))
	got, finalized, err := l.Evaluate(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, finalized)
	assert.Equal(t, monday, resolver.lastDay)
	assert.Equal(t, monday, *got.FinalizedDate)
}

func TestEvaluate_NoDataStaysActive(t *testing.T) {
	targetDate := time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)
	p := activePrediction("p1", 110, targetDate)
	store := newFakeStore(p)
	resolver := &fakeResolver{historicalErr: domain.ErrNoData}

	l := newLifecycle(store, resolver, targetDate.Add(6*time.Hour))
	got, finalized, err := l.Evaluate(context.Background(), p)
	require.NoError(t, err)

	assert.False(t, finalized)
	assert.Nil(t, got.FinalPrice)
	assert.Equal(t, domain.StatusActive, got.Status)
	assert.Zero(t, store.finalizeCalls)
}

func TestEvaluate_ResolverFailurePropagates(t *testing.T) {
	targetDate := time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)
	p := activePrediction("p1", 110, targetDate)
	store := newFakeStore(p)
	resolver := &fakeResolver{historicalErr: errors.New("all sources down")}

	l := newLifecycle(store, resolver, targetDate.Add(6*time.Hour))
	_, _, err := l.Evaluate(context.Background(), p)
	assert.Error(t, err)
	assert.Zero(t, store.finalizeCalls)
}

func TestEvaluate_AlreadyFinalizedIsIdempotent(t *testing.T) {
	final := 112.0
	p := activePrediction("p1", 110, time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC))
	p.FinalPrice = &final
	p.Status = domain.StatusValidated
	store := newFakeStore(p)
	resolver := &fakeResolver{historicalPrice: 999}

	l := newLifecycle(store, resolver, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC))
	got, finalized, err := l.Evaluate(context.Background(), p)
	require.NoError(t, err)

	assert.False(t, finalized)
	assert.Equal(t, 112.0, *got.FinalPrice)
	assert.Zero(t, resolver.historicalCalls)
	assert.Zero(t, store.finalizeCalls)
}

func TestEvaluate_LostRaceReturnsCommittedOutcome(t *testing.T) {
	targetDate := time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)
	p := activePrediction("p1", 110, targetDate)
	store := newFakeStore(p)
	resolver := &fakeResolver{historicalPrice: 112}

	// Simulate a concurrent writer committing a different close first.
	otherFinal := domain.Finalization{FinalPrice: 111, AccuracyScore: 99.1, FinalizedDate: targetDate}
	won, err := store.Finalize(context.Background(), "p1", otherFinal)
	require.NoError(t, err)
	require.True(t, won)

	l := newLifecycle(store, resolver, targetDate.Add(6*time.Hour))
	got, finalized, err := l.Evaluate(context.Background(), p)
	require.NoError(t, err)

	// This call did not finalize, and the first writer's outcome stands.
	assert.False(t, finalized)
	require.NotNil(t, got.FinalPrice)
	assert.Equal(t, 111.0, *got.FinalPrice)
	assert.Equal(t, 99.1, *got.AccuracyScore)
}
