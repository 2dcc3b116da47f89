package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sentientlabs/stockcast/internal/domain"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeStore is an in-memory PredictionStore.
type fakeStore struct {
	mu            sync.Mutex
	preds         map[string]domain.Prediction
	finalizeCalls int
	createErr     error
	deleted       []domain.Prediction
	deleteCutoff  time.Time
}

func newFakeStore(preds ...domain.Prediction) *fakeStore {
	s := &fakeStore{preds: map[string]domain.Prediction{}}
	for _, p := range preds {
		s.preds[p.ID] = p
	}
	return s
}

func (s *fakeStore) Create(_ context.Context, p domain.Prediction) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preds[p.ID] = p
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (domain.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.preds[id]
	if !ok {
		return domain.Prediction{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) List(_ context.Context, f domain.PredictionFilter) ([]domain.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Prediction
	for _, p := range s.preds {
		if f.UserID != "" && p.UserID != f.UserID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeStore) CountActive(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, p := range s.preds {
		if p.UserID == userID && p.Status == domain.StatusActive {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) Finalize(_ context.Context, id string, f domain.Finalization) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizeCalls++
	p, ok := s.preds[id]
	if !ok || p.FinalPrice != nil {
		return false, nil
	}
	p.FinalPrice = &f.FinalPrice
	p.AccuracyScore = &f.AccuracyScore
	p.FinalizedDate = &f.FinalizedDate
	p.Status = domain.StatusValidated
	s.preds[id] = p
	return true, nil
}

func (s *fakeStore) DeleteAbandonedBefore(_ context.Context, cutoff time.Time) ([]domain.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCutoff = cutoff
	var purged []domain.Prediction
	for id, p := range s.preds {
		if p.Status == domain.StatusActive && p.TargetDate.Before(cutoff) {
			purged = append(purged, p)
			delete(s.preds, id)
		}
	}
	s.deleted = purged
	return purged, nil
}

// fakeResolver scripts price resolution.
type fakeResolver struct {
	prices          map[string]float64
	resolveErr      error
	resolveCalls    int
	lastSymbols     []string
	historicalPrice float64
	historicalErr   error
	historicalCalls int
	lastDay         time.Time
	lastUntil       time.Time
}

func (r *fakeResolver) Resolve(_ context.Context, symbols []string) (map[string]float64, error) {
	r.resolveCalls++
	r.lastSymbols = symbols
	if r.resolveErr != nil {
		return nil, r.resolveErr
	}
	out := map[string]float64{}
	for _, sym := range symbols {
		if price, ok := r.prices[sym]; ok {
			out[sym] = price
		}
	}
	return out, nil
}

func (r *fakeResolver) ResolveOne(ctx context.Context, symbol string) (float64, error) {
	prices, err := r.Resolve(ctx, []string{symbol})
	if err != nil {
		return 0, err
	}
	price, ok := prices[symbol]
	if !ok {
		return 0, domain.ErrNoData
	}
	return price, nil
}

func (r *fakeResolver) HistoricalClose(_ context.Context, _ string, day, until time.Time) (float64, error) {
	r.historicalCalls++
	r.lastDay = day
	r.lastUntil = until
	return r.historicalPrice, r.historicalErr
}

// fakeUniverse accepts a fixed symbol set.
type fakeUniverse struct {
	symbols map[string]bool
	err     error
}

func (u *fakeUniverse) Contains(_ context.Context, symbol string) (bool, error) {
	if u.err != nil {
		return false, u.err
	}
	return u.symbols[symbol], nil
}

// fakeArchiver records archive calls.
type fakeArchiver struct {
	archived []domain.Prediction
	key      string
	err      error
}

func (a *fakeArchiver) ArchivePurged(_ context.Context, preds []domain.Prediction, _ time.Time) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.archived = preds
	return a.key, nil
}

// fakeNotifier records job reports.
type fakeNotifier struct {
	events []string
}

func (n *fakeNotifier) JobReport(_ context.Context, event, _ string, _ map[string]any) {
	n.events = append(n.events, event)
}
