package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sentientlabs/stockcast/internal/service"
)

// ForecastHandler serves the forecast endpoint.
type ForecastHandler struct {
	svc    *service.ForecastService
	logger *slog.Logger
}

// NewForecastHandler creates a ForecastHandler.
func NewForecastHandler(svc *service.ForecastService, logger *slog.Logger) *ForecastHandler {
	return &ForecastHandler{svc: svc, logger: logHandler(logger, "forecast")}
}

// forecastRequest is the JSON body of POST /api/forecast.
type forecastRequest struct {
	Symbol      string `json:"symbol"`
	HorizonDays int    `json:"horizon_days"`
}

// Forecast runs the model for a symbol over a horizon.
// POST /api/forecast
func (h *ForecastHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	var req forecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.HorizonDays < 1 {
		writeError(w, http.StatusBadRequest, "horizon_days must be >= 1")
		return
	}

	result, err := h.svc.Forecast(r.Context(), req.Symbol, req.HorizonDays)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":          req.Symbol,
		"horizon_days":    req.HorizonDays,
		"predicted_price": result.PredictedPrice,
		"confidence":      result.Confidence,
	})
}
