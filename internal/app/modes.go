package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sentientlabs/stockcast/internal/server"
	"github.com/sentientlabs/stockcast/internal/server/handler"
)

// shutdownTimeout bounds graceful HTTP shutdown on SIGINT/SIGTERM.
const shutdownTimeout = 15 * time.Second

// ServerMode runs the HTTP API until the context is cancelled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
		},
		server.Handlers{
			Health:      handler.NewHealthHandler(a.logger),
			Predictions: handler.NewPredictionHandler(deps.Predictions, a.logger),
			Forecast:    handler.NewForecastHandler(deps.Forecasts, a.logger),
			Scheduler:   handler.NewSchedulerHandler(deps.Scheduler, deps.Verifier, a.logger),
		},
		a.logger,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ValidateMode runs one validation pass over all ACTIVE predictions and
// exits. Intended for cron or one-off operational runs.
func (a *App) ValidateMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting validate mode")

	report, err := deps.Scheduler.ValidateAll(ctx)
	if err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "validate mode complete",
		slog.Int("touched", report.Touched),
		slog.Int("finalized", report.Finalized),
		slog.Int("failed", report.Failed),
	)
	return nil
}

// CleanupMode runs one retention purge and exits.
func (a *App) CleanupMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting cleanup mode")

	report, err := deps.Scheduler.Cleanup(ctx)
	if err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "cleanup mode complete",
		slog.Int("deleted", report.Deleted),
		slog.Int("archived", report.Archived),
	)
	return nil
}
