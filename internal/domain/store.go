package domain

import (
	"context"
	"time"
)

// PredictionFilter narrows List queries. Zero values mean "no constraint".
type PredictionFilter struct {
	UserID       string
	Symbol       string
	Status       PredictionStatus
	TargetAfter  *time.Time
	TargetBefore *time.Time
	Limit        int
	Offset       int
}

// Finalization is the one-shot outcome written when a prediction is
// validated.
type Finalization struct {
	FinalPrice    float64
	AccuracyScore float64
	FinalizedDate time.Time
}

// PredictionStore persists predictions. Mutation after creation is owned
// exclusively by the lifecycle engine.
type PredictionStore interface {
	Create(ctx context.Context, p Prediction) error
	GetByID(ctx context.Context, id string) (Prediction, error)
	List(ctx context.Context, f PredictionFilter) ([]Prediction, error)

	// CountActive returns the number of ACTIVE predictions held by a user,
	// used to enforce the per-user cap at creation time.
	CountActive(ctx context.Context, userID string) (int, error)

	// Finalize records the outcome for a prediction if and only if no final
	// price has been written yet. It returns false when another writer got
	// there first; the row is untouched in that case. The single-row commit
	// is the only mutual exclusion the lifecycle engine relies on.
	Finalize(ctx context.Context, id string, f Finalization) (bool, error)

	// DeleteAbandonedBefore removes ACTIVE predictions whose target date is
	// older than cutoff and returns the purged rows so callers can archive
	// them. VALIDATED records are never touched by this purge.
	DeleteAbandonedBefore(ctx context.Context, cutoff time.Time) ([]Prediction, error)
}
