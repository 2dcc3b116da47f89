package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/sentientlabs/stockcast/internal/crypto"
	"github.com/sentientlabs/stockcast/internal/service"
)

// maxTriggerBody bounds how much of a trigger request body is read for
// signature verification.
const maxTriggerBody = 1 << 20

// SchedulerHandler serves the scheduled-job trigger endpoints. These are
// called by an external cron service, not by API users, so they bypass the
// API-key middleware and instead verify an HMAC signature computed over the
// raw request body.
type SchedulerHandler struct {
	svc      *service.Scheduler
	verifier *crypto.Verifier
	logger   *slog.Logger
}

// NewSchedulerHandler creates a SchedulerHandler.
func NewSchedulerHandler(svc *service.Scheduler, verifier *crypto.Verifier, logger *slog.Logger) *SchedulerHandler {
	return &SchedulerHandler{svc: svc, verifier: verifier, logger: logHandler(logger, "scheduler")}
}

// TriggerValidate runs a validation pass over all ACTIVE predictions.
// POST /api/scheduler/validate
func (h *SchedulerHandler) TriggerValidate(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	report, err := h.svc.ValidateAll(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// TriggerCleanup purges abandoned predictions past the retention window.
// POST /api/scheduler/cleanup
func (h *SchedulerHandler) TriggerCleanup(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	report, err := h.svc.Cleanup(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// authorize reads the raw body and checks the signature header against the
// current and next signing keys. The body must be consumed in full before
// verification so the signature covers exactly what was sent.
func (h *SchedulerHandler) authorize(w http.ResponseWriter, r *http.Request) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTriggerBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return false
	}

	signature := r.Header.Get(crypto.SignatureHeader)
	if !h.verifier.Verify(body, signature) {
		h.logger.Warn("rejected job trigger",
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr),
		)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return false
	}
	return true
}
