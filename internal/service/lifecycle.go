package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sentientlabs/stockcast/internal/domain"
)

// Lifecycle drives predictions from ACTIVE to VALIDATED. It is safe to run
// from multiple processes at once: the store's guarded finalization commit
// is the only mutual exclusion it relies on, and every step is idempotent.
type Lifecycle struct {
	store      domain.PredictionStore
	resolver   PriceResolver
	windowDays int
	logger     *slog.Logger
	now        func() time.Time
}

// NewLifecycle creates a Lifecycle. windowDays is the forward search window
// passed to historical close lookups.
func NewLifecycle(store domain.PredictionStore, resolver PriceResolver, windowDays int, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{
		store:      store,
		resolver:   resolver,
		windowDays: windowDays,
		logger:     logger.With(slog.String("component", "lifecycle")),
		now:        time.Now,
	}
}

// Evaluate advances one prediction. Already-finalized predictions are
// returned unchanged. A prediction whose evaluation day has arrived gets its
// close of record fetched and its outcome committed; when the close is not
// yet published the prediction simply stays ACTIVE for the next run. The
// returned bool reports whether this call performed the finalization.
func (l *Lifecycle) Evaluate(ctx context.Context, p domain.Prediction) (domain.Prediction, bool, error) {
	if p.Finalized() {
		return p, false, nil
	}

	evalDay := p.FinalizationDate()
	if dayOf(l.now()).Before(dayOf(evalDay)) {
		return p, false, nil
	}

	day := dayOf(evalDay)
	finalPrice, err := l.resolver.HistoricalClose(ctx, p.Symbol, day, day.AddDate(0, 0, l.windowDays))
	if err != nil {
		if errors.Is(err, domain.ErrNoData) {
			l.logger.Info("close not yet published, staying active",
				slog.String("id", p.ID),
				slog.String("symbol", p.Symbol),
				slog.Time("eval_day", day),
			)
			return p, false, nil
		}
		return p, false, fmt.Errorf("lifecycle: fetch close for %s: %w", p.ID, err)
	}
	if finalPrice <= 0 {
		return p, false, nil
	}

	fin := domain.Finalization{
		FinalPrice:    finalPrice,
		AccuracyScore: domain.Accuracy(p.TargetPrice, finalPrice),
		FinalizedDate: day,
	}

	won, err := l.store.Finalize(ctx, p.ID, fin)
	if err != nil {
		return p, false, fmt.Errorf("lifecycle: finalize %s: %w", p.ID, err)
	}
	if !won {
		// Another writer committed first; reload their outcome.
		committed, err := l.store.GetByID(ctx, p.ID)
		if err != nil {
			return p, false, fmt.Errorf("lifecycle: reload %s: %w", p.ID, err)
		}
		return committed, false, nil
	}

	p.FinalPrice = &fin.FinalPrice
	p.AccuracyScore = &fin.AccuracyScore
	p.FinalizedDate = &fin.FinalizedDate
	p.Status = domain.StatusValidated

	l.logger.Info("prediction finalized",
		slog.String("id", p.ID),
		slog.String("symbol", p.Symbol),
		slog.Float64("final_price", fin.FinalPrice),
		slog.Float64("accuracy", fin.AccuracyScore),
	)
	return p, true, nil
}

// dayOf truncates t to midnight UTC.
func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
