package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sentientlabs/stockcast/internal/domain"
	"github.com/sentientlabs/stockcast/internal/notify"
)

// Scheduler runs the recurring maintenance jobs: validating due predictions
// and purging abandoned ones.
type Scheduler struct {
	store         domain.PredictionStore
	lifecycle     *Lifecycle
	resolver      PriceResolver
	archiver      PurgeArchiver
	notifier      JobNotifier
	retentionDays int
	logger        *slog.Logger
	now           func() time.Time
}

// NewScheduler creates a Scheduler. archiver may be nil to disable cold
// archiving of purged predictions.
func NewScheduler(
	store domain.PredictionStore,
	lifecycle *Lifecycle,
	resolver PriceResolver,
	archiver PurgeArchiver,
	notifier JobNotifier,
	retentionDays int,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		store:         store,
		lifecycle:     lifecycle,
		resolver:      resolver,
		archiver:      archiver,
		notifier:      notifier,
		retentionDays: retentionDays,
		logger:        logger.With(slog.String("component", "scheduler")),
		now:           time.Now,
	}
}

// ValidateReport summarizes one validation run. Resolved and Unresolved
// count the distinct symbols the live batch-resolve could and could not
// price, so a partially failing upstream shows up in the job output.
type ValidateReport struct {
	Touched    int `json:"touched"`
	Finalized  int `json:"finalized"`
	Failed     int `json:"failed"`
	Resolved   int `json:"resolved"`
	Unresolved int `json:"unresolved"`
}

// ValidateAll evaluates every ACTIVE prediction. Live prices for all distinct
// symbols are batch-resolved first regardless of due-ness, warming the cache
// and surfacing unresolvable symbols in the report. Per-prediction failures
// are logged and counted but never abort the run; one bad symbol must not
// stall the rest of the backlog.
func (s *Scheduler) ValidateAll(ctx context.Context) (ValidateReport, error) {
	preds, err := s.store.List(ctx, domain.PredictionFilter{Status: domain.StatusActive})
	if err != nil {
		return ValidateReport{}, fmt.Errorf("scheduler: list active: %w", err)
	}

	var report ValidateReport
	report.Resolved, report.Unresolved = s.resolveAll(ctx, preds)

	for i := range preds {
		report.Touched++
		_, finalized, err := s.lifecycle.Evaluate(ctx, preds[i])
		if err != nil {
			report.Failed++
			s.logger.Error("evaluation failed",
				slog.String("id", preds[i].ID),
				slog.String("symbol", preds[i].Symbol),
				slog.String("error", err.Error()),
			)
			continue
		}
		if finalized {
			report.Finalized++
		}
	}

	s.logger.Info("validation run complete",
		slog.Int("touched", report.Touched),
		slog.Int("finalized", report.Finalized),
		slog.Int("failed", report.Failed),
		slog.Int("resolved", report.Resolved),
		slog.Int("unresolved", report.Unresolved),
	)
	if s.notifier != nil {
		s.notifier.JobReport(ctx, notify.EventValidate, "Validation run", map[string]any{
			"touched":    report.Touched,
			"finalized":  report.Finalized,
			"failed":     report.Failed,
			"resolved":   report.Resolved,
			"unresolved": report.Unresolved,
		})
	}
	return report, nil
}

// resolveAll batch-resolves the distinct symbols of the given predictions
// for bookkeeping, returning how many resolved and how many did not. A
// failed batch is tolerated; the evaluate loop fetches closes on its own.
func (s *Scheduler) resolveAll(ctx context.Context, preds []domain.Prediction) (resolved, unresolved int) {
	seen := make(map[string]bool, len(preds))
	var symbols []string
	for i := range preds {
		if seen[preds[i].Symbol] {
			continue
		}
		seen[preds[i].Symbol] = true
		symbols = append(symbols, preds[i].Symbol)
	}
	if len(symbols) == 0 {
		return 0, 0
	}

	live, err := s.resolver.Resolve(ctx, symbols)
	if err != nil {
		s.logger.Warn("live batch-resolve failed",
			slog.Int("symbols", len(symbols)),
			slog.String("error", err.Error()),
		)
		return 0, len(symbols)
	}

	for _, sym := range symbols {
		if _, ok := live[sym]; ok {
			resolved++
			continue
		}
		unresolved++
		s.logger.Warn("symbol did not resolve", slog.String("symbol", sym))
	}
	return resolved, unresolved
}

// CleanupReport summarizes one cleanup run.
type CleanupReport struct {
	Deleted    int    `json:"deleted"`
	Archived   int    `json:"archived"`
	ArchiveKey string `json:"archive_key,omitempty"`
}

// Cleanup purges ACTIVE predictions whose target date passed more than the
// retention window ago. These are records the validation job could never
// finalize; VALIDATED history is kept indefinitely. When an archiver is
// configured the purged rows are uploaded before the report is returned.
func (s *Scheduler) Cleanup(ctx context.Context) (CleanupReport, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -s.retentionDays)

	purged, err := s.store.DeleteAbandonedBefore(ctx, cutoff)
	if err != nil {
		return CleanupReport{}, fmt.Errorf("scheduler: purge abandoned: %w", err)
	}

	report := CleanupReport{Deleted: len(purged)}

	if s.archiver != nil && len(purged) > 0 {
		key, err := s.archiver.ArchivePurged(ctx, purged, s.now())
		if err != nil {
			// The rows are already gone; losing the archive is worth a loud
			// error but not a failed run.
			s.logger.Error("archive of purged predictions failed",
				slog.Int("count", len(purged)),
				slog.String("error", err.Error()),
			)
		} else {
			report.Archived = len(purged)
			report.ArchiveKey = key
		}
	}

	s.logger.Info("cleanup run complete",
		slog.Int("deleted", report.Deleted),
		slog.Int("archived", report.Archived),
		slog.Time("cutoff", cutoff),
	)
	if s.notifier != nil {
		s.notifier.JobReport(ctx, notify.EventCleanup, "Cleanup run", map[string]any{
			"deleted":  report.Deleted,
			"archived": report.Archived,
			"cutoff":   cutoff.Format("2006-01-02"),
		})
	}
	return report, nil
}
