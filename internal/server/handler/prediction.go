package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sentientlabs/stockcast/internal/service"
)

// PredictionHandler serves prediction creation and performance endpoints.
type PredictionHandler struct {
	svc    *service.PredictionService
	logger *slog.Logger
}

// NewPredictionHandler creates a PredictionHandler.
func NewPredictionHandler(svc *service.PredictionService, logger *slog.Logger) *PredictionHandler {
	return &PredictionHandler{svc: svc, logger: logHandler(logger, "prediction")}
}

// createPredictionRequest is the JSON body of POST /api/predictions.
type createPredictionRequest struct {
	UserID          string  `json:"user_id"`
	Symbol          string  `json:"symbol"`
	TargetPrice     float64 `json:"target_price"`
	ConfidenceScore float64 `json:"confidence_score"`
	TargetDate      string  `json:"target_date"` // YYYY-MM-DD
}

// CreatePrediction stores a new prediction for a user.
// POST /api/predictions
func (h *PredictionHandler) CreatePrediction(w http.ResponseWriter, r *http.Request) {
	var req createPredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	targetDate, err := time.Parse("2006-01-02", req.TargetDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "target_date must be YYYY-MM-DD")
		return
	}

	p, err := h.svc.Create(r.Context(), service.CreateRequest{
		UserID:          req.UserID,
		Symbol:          req.Symbol,
		TargetPrice:     req.TargetPrice,
		ConfidenceScore: req.ConfidenceScore,
		TargetDate:      targetDate,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// GetPerformance returns a user's predictions annotated with live or final
// values and outcome labels.
// GET /api/predictions/performance?user_id=...
func (h *PredictionHandler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	perfs, err := h.svc.Performance(r.Context(), userID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":     userID,
		"predictions": perfs,
	})
}
