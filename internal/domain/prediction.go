// Package domain defines the core entities of the forecast tracker and the
// store, cache, and price-source interfaces their services depend on.
package domain

import (
	"math"
	"time"
)

// PredictionStatus tracks the lifecycle state of a prediction. The only legal
// transition is StatusActive to StatusValidated; there is no way back.
type PredictionStatus string

const (
	StatusActive    PredictionStatus = "ACTIVE"
	StatusValidated PredictionStatus = "VALIDATED"
)

// Prediction is a single user's price forecast for one symbol. It is created
// by the API layer on submission and mutated exclusively by the lifecycle
// engine during finalization. FinalPrice transitions from nil to a concrete
// value exactly once; no process may overwrite a non-nil FinalPrice.
type Prediction struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	Symbol          string           `json:"symbol"`
	InitialPrice    float64          `json:"initial_price"`
	TargetPrice     float64          `json:"target_price"`
	ConfidenceScore float64          `json:"confidence_score"`
	FinalPrice      *float64         `json:"final_price,omitempty"`
	AccuracyScore   *float64         `json:"accuracy_score,omitempty"`
	Status          PredictionStatus `json:"status"`
	TargetDate      time.Time        `json:"target_date"`
	FinalizedDate   *time.Time       `json:"finalized_date,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Finalized reports whether the prediction's outcome has been locked in.
func (p *Prediction) Finalized() bool {
	return p.FinalPrice != nil && *p.FinalPrice > 0
}

// FinalizationDate is the trading day the prediction is evaluated against:
// TargetDate itself, or the next Monday when TargetDate falls on a weekend.
func (p *Prediction) FinalizationDate() time.Time {
	return NextTradingDay(p.TargetDate)
}

// Accuracy scores how close current came to the forecast target on a 0..100
// scale: 100*(1 - |target-current|/target), clamped at zero and rounded to
// one decimal place. A zero target yields zero rather than a division blowup.
func Accuracy(target, current float64) float64 {
	if target == 0 {
		return 0
	}
	score := 100 * (1 - math.Abs(target-current)/target)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return math.Round(score*10) / 10
}

// Outcome labels shown alongside a prediction. These are pure derivations of
// already-computed fields; only the ACTIVE/VALIDATED enum is persisted.
const (
	LabelSuccess      = "success"
	LabelExpiredClose = "expired_close"
	LabelFailed       = "failed"
	LabelTargetHit    = "target_hit"
	LabelVeryClose    = "very_close"
	LabelOffTrack     = "off_track"
	LabelInProgress   = "in_progress"
)

// closeAccuracy is the threshold above which a missed target still counts as
// a near hit.
const closeAccuracy = 95.0

// OutcomeLabel derives the presentation label for a prediction given its
// current (or final) value and accuracy.
func OutcomeLabel(finalized bool, target, current, accuracy float64) string {
	if finalized {
		switch {
		case current >= target:
			return LabelSuccess
		case accuracy > closeAccuracy:
			return LabelExpiredClose
		default:
			return LabelFailed
		}
	}
	switch {
	case current >= target:
		return LabelTargetHit
	case accuracy > closeAccuracy:
		return LabelVeryClose
	case accuracy < 80:
		return LabelOffTrack
	default:
		return LabelInProgress
	}
}

// Performance is the annotated view of a prediction returned by read
// endpoints: the stored fields plus the live or final current value, the
// accuracy against the target, and the derived outcome label.
type Performance struct {
	Prediction
	CurrentValue float64 `json:"current_value"`
	Accuracy     float64 `json:"accuracy"`
	Label        string  `json:"label"`
}
