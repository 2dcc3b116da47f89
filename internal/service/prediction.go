package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sentientlabs/stockcast/internal/domain"
)

// PredictionService handles prediction creation and performance reporting.
// Reads share the lifecycle engine with the scheduled job: whichever path
// sees a due prediction first finalizes it, and the store's guarded commit
// keeps the two from racing.
type PredictionService struct {
	store     domain.PredictionStore
	resolver  PriceResolver
	lifecycle *Lifecycle
	universe  SymbolUniverse
	maxOpen   int
	logger    *slog.Logger
	now       func() time.Time
}

// NewPredictionService creates a PredictionService. maxOpen caps the number
// of simultaneous ACTIVE predictions per user.
func NewPredictionService(
	store domain.PredictionStore,
	resolver PriceResolver,
	lifecycle *Lifecycle,
	universe SymbolUniverse,
	maxOpen int,
	logger *slog.Logger,
) *PredictionService {
	return &PredictionService{
		store:     store,
		resolver:  resolver,
		lifecycle: lifecycle,
		universe:  universe,
		maxOpen:   maxOpen,
		logger:    logger.With(slog.String("component", "prediction_service")),
		now:       time.Now,
	}
}

// CreateRequest carries the user-supplied fields of a new prediction.
type CreateRequest struct {
	UserID          string
	Symbol          string
	TargetPrice     float64
	ConfidenceScore float64
	TargetDate      time.Time
}

// Create validates and stores a new prediction. The initial price is locked
// in from the live resolver at creation time.
func (s *PredictionService) Create(ctx context.Context, req CreateRequest) (domain.Prediction, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return domain.Prediction{}, fmt.Errorf("prediction_service: symbol is required")
	}
	if req.UserID == "" {
		return domain.Prediction{}, fmt.Errorf("prediction_service: user_id is required")
	}
	if req.TargetPrice <= 0 {
		return domain.Prediction{}, fmt.Errorf("prediction_service: target_price must be positive")
	}

	now := s.now()
	if !req.TargetDate.After(now) {
		return domain.Prediction{}, fmt.Errorf("prediction_service: target_date must be in the future")
	}

	tracked, err := s.universe.Contains(ctx, symbol)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("prediction_service: check universe: %w", err)
	}
	if !tracked {
		return domain.Prediction{}, fmt.Errorf("prediction_service: %s: %w", symbol, domain.ErrUnknownSymbol)
	}

	open, err := s.store.CountActive(ctx, req.UserID)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("prediction_service: count active: %w", err)
	}
	if open >= s.maxOpen {
		return domain.Prediction{}, fmt.Errorf("prediction_service: user %s has %d open predictions: %w",
			req.UserID, open, domain.ErrLimitExceeded)
	}

	initial, err := s.resolver.ResolveOne(ctx, symbol)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("prediction_service: resolve initial price: %w", err)
	}

	p := domain.Prediction{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		Symbol:          symbol,
		InitialPrice:    initial,
		TargetPrice:     req.TargetPrice,
		ConfidenceScore: req.ConfidenceScore,
		Status:          domain.StatusActive,
		TargetDate:      req.TargetDate.UTC(),
		CreatedAt:       now.UTC(),
	}

	if err := s.store.Create(ctx, p); err != nil {
		return domain.Prediction{}, fmt.Errorf("prediction_service: create: %w", err)
	}

	s.logger.Info("prediction created",
		slog.String("id", p.ID),
		slog.String("user_id", p.UserID),
		slog.String("symbol", p.Symbol),
		slog.Float64("target_price", p.TargetPrice),
	)
	return p, nil
}

// Performance returns the user's predictions annotated with live or final
// values, accuracy, and outcome labels. A due prediction is pushed through
// the lifecycle engine before rendering, so a read finalizes it without
// waiting for the next scheduled run. Live prices for the rest are resolved
// in one batch; symbols the resolver cannot price fall back to the stored
// initial price so the report always renders.
func (s *PredictionService) Performance(ctx context.Context, userID string) ([]domain.Performance, error) {
	preds, err := s.store.List(ctx, domain.PredictionFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("prediction_service: list: %w", err)
	}
	if len(preds) == 0 {
		return []domain.Performance{}, nil
	}

	today := dayOf(s.now())
	due := func(p domain.Prediction) bool {
		return !today.Before(dayOf(p.FinalizationDate()))
	}

	// Attempt finalization for every due, unfinalized prediction. Failures
	// degrade to the target-price view; the read itself never fails on an
	// upstream outage.
	for i := range preds {
		if preds[i].Finalized() || !due(preds[i]) {
			continue
		}
		updated, _, err := s.lifecycle.Evaluate(ctx, preds[i])
		if err != nil {
			s.logger.Warn("finalization attempt failed on read",
				slog.String("id", preds[i].ID),
				slog.String("symbol", preds[i].Symbol),
				slog.String("error", err.Error()),
			)
			continue
		}
		preds[i] = updated
	}

	seen := make(map[string]bool)
	var symbols []string
	for i := range preds {
		if preds[i].Finalized() || due(preds[i]) || seen[preds[i].Symbol] {
			continue
		}
		seen[preds[i].Symbol] = true
		symbols = append(symbols, preds[i].Symbol)
	}

	var live map[string]float64
	if len(symbols) > 0 {
		live, err = s.resolver.Resolve(ctx, symbols)
		if err != nil {
			return nil, fmt.Errorf("prediction_service: resolve live prices: %w", err)
		}
	}

	out := make([]domain.Performance, 0, len(preds))
	for i := range preds {
		p := preds[i]

		var current float64
		switch {
		case p.Finalized():
			current = *p.FinalPrice
		case due(p):
			// Due but the close of record is not yet obtainable; show the
			// target until the next attempt succeeds.
			current = p.TargetPrice
		default:
			price, ok := live[p.Symbol]
			if !ok {
				s.logger.Warn("no live price, using initial price",
					slog.String("symbol", p.Symbol))
				price = p.InitialPrice
			}
			current = price
		}

		var accuracy float64
		if p.Finalized() && p.AccuracyScore != nil {
			accuracy = *p.AccuracyScore
		} else {
			accuracy = domain.Accuracy(p.TargetPrice, current)
		}

		out = append(out, domain.Performance{
			Prediction:   p,
			CurrentValue: current,
			Accuracy:     accuracy,
			Label:        domain.OutcomeLabel(p.Finalized(), p.TargetPrice, current, accuracy),
		})
	}
	return out, nil
}
