package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccuracy_ExactHit(t *testing.T) {
	assert.Equal(t, 100.0, Accuracy(100, 100))
}

func TestAccuracy_ClampedAtZero(t *testing.T) {
	// currentValue of 0 means a 100% miss, not negative infinity.
	assert.Equal(t, 0.0, Accuracy(100, 0))
	assert.Equal(t, 0.0, Accuracy(100, 350))
}

func TestAccuracy_ZeroTarget(t *testing.T) {
	assert.Equal(t, 0.0, Accuracy(0, 50))
}

func TestAccuracy_RoundsToOneDecimal(t *testing.T) {
	// |110-112|/110 -> 98.18..., rounded to 98.2.
	assert.Equal(t, 98.2, Accuracy(110, 112))
}

func TestAccuracy_Overshoot(t *testing.T) {
	assert.Equal(t, 90.0, Accuracy(100, 110))
}

func TestOutcomeLabel_Finalized(t *testing.T) {
	assert.Equal(t, LabelSuccess, OutcomeLabel(true, 110, 112, Accuracy(110, 112)))
	assert.Equal(t, LabelExpiredClose, OutcomeLabel(true, 110, 108, Accuracy(110, 108)))
	assert.Equal(t, LabelFailed, OutcomeLabel(true, 110, 80, Accuracy(110, 80)))
}

func TestOutcomeLabel_Active(t *testing.T) {
	assert.Equal(t, LabelTargetHit, OutcomeLabel(false, 110, 115, Accuracy(110, 115)))
	assert.Equal(t, LabelVeryClose, OutcomeLabel(false, 110, 108, Accuracy(110, 108)))
	assert.Equal(t, LabelOffTrack, OutcomeLabel(false, 110, 50, Accuracy(110, 50)))
	assert.Equal(t, LabelInProgress, OutcomeLabel(false, 110, 100, Accuracy(110, 100)))
}

func TestPrediction_Finalized(t *testing.T) {
	p := Prediction{}
	assert.False(t, p.Finalized())

	fp := 112.0
	p.FinalPrice = &fp
	assert.True(t, p.Finalized())
}

func TestPrediction_FinalizationDate(t *testing.T) {
	sat := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	p := Prediction{TargetDate: sat}
	assert.Equal(t, time.Monday, p.FinalizationDate().Weekday())
}
