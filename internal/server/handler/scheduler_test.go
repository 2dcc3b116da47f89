package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentientlabs/stockcast/internal/crypto"
	"github.com/sentientlabs/stockcast/internal/domain"
	"github.com/sentientlabs/stockcast/internal/service"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// stubStore is an empty PredictionStore; the trigger tests only exercise
// authentication and response shape.
type stubStore struct{}

func (stubStore) Create(context.Context, domain.Prediction) error { return nil }
func (stubStore) GetByID(context.Context, string) (domain.Prediction, error) {
	return domain.Prediction{}, domain.ErrNotFound
}
func (stubStore) List(context.Context, domain.PredictionFilter) ([]domain.Prediction, error) {
	return nil, nil
}
func (stubStore) CountActive(context.Context, string) (int, error) { return 0, nil }
func (stubStore) Finalize(context.Context, string, domain.Finalization) (bool, error) {
	return false, nil
}
func (stubStore) DeleteAbandonedBefore(context.Context, time.Time) ([]domain.Prediction, error) {
	return nil, nil
}

type stubResolver struct{}

func (stubResolver) Resolve(context.Context, []string) (map[string]float64, error) {
	return map[string]float64{}, nil
}
func (stubResolver) ResolveOne(context.Context, string) (float64, error) {
	return 0, domain.ErrNoData
}
func (stubResolver) HistoricalClose(context.Context, string, time.Time, time.Time) (float64, error) {
	return 0, domain.ErrNoData
}

func newTriggerHandler(t *testing.T) *SchedulerHandler {
	t.Helper()
	lifecycle := service.NewLifecycle(stubStore{}, stubResolver{}, 2, discard)
	sched := service.NewScheduler(stubStore{}, lifecycle, stubResolver{}, nil, nil, 30, discard)
	return NewSchedulerHandler(sched, crypto.NewVerifier("current-key", "next-key"), discard)
}

func trigger(h http.HandlerFunc, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/scheduler/validate", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(crypto.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestTriggerValidate_ValidSignature(t *testing.T) {
	h := newTriggerHandler(t)
	body := []byte(`{}`)

	rec := trigger(h.TriggerValidate, body, crypto.Sign("current-key", body))
	require.Equal(t, http.StatusOK, rec.Code)

	var report service.ValidateReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Zero(t, report.Touched)
}

func TestTriggerValidate_NextKeyAccepted(t *testing.T) {
	h := newTriggerHandler(t)
	body := []byte(`{}`)

	rec := trigger(h.TriggerValidate, body, crypto.Sign("next-key", body))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTriggerValidate_MissingSignature(t *testing.T) {
	h := newTriggerHandler(t)

	rec := trigger(h.TriggerValidate, []byte(`{}`), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTriggerValidate_WrongKey(t *testing.T) {
	h := newTriggerHandler(t)
	body := []byte(`{}`)

	rec := trigger(h.TriggerValidate, body, crypto.Sign("some-other-key", body))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTriggerValidate_TamperedBody(t *testing.T) {
	h := newTriggerHandler(t)

	signature := crypto.Sign("current-key", []byte(`{"run":"tonight"}`))
	rec := trigger(h.TriggerValidate, []byte(`{"run":"now"}`), signature)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTriggerCleanup_ValidSignature(t *testing.T) {
	h := newTriggerHandler(t)
	body := []byte(`{}`)

	rec := trigger(h.TriggerCleanup, body, crypto.Sign("current-key", body))
	require.Equal(t, http.StatusOK, rec.Code)

	var report service.CleanupReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Zero(t, report.Deleted)
}
