package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/simbroker/simbroker/internal/pipeline"
	"github.com/simbroker/simbroker/internal/updater"
)

// UpdaterMode runs the price updater loop, plus the archiver cron when
// archival is enabled. It assumes an already-seeded catalog.
func (a *App) UpdaterMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting updater mode")

	arch, err := a.buildArchiver(deps)
	if err != nil {
		return fmt.Errorf("updater mode: %w", err)
	}
	orch := pipeline.NewOrchestrator(a.buildUpdater(deps), arch, a.cfg.Archive.Cron, a.logger)
	return orch.Run(ctx)
}

// SeedMode brings the stock catalog in line with the reference list and exits.
func (a *App) SeedMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting seed mode")
	return a.seed(ctx, deps)
}

// ArchiveMode performs a single archive run and exits. The regular deployment
// archives on a cron inside full mode; this mode exists for manual runs.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode")

	if deps.Archiver == nil {
		return fmt.Errorf("archive mode: object storage is not configured")
	}
	arch := pipeline.NewArchiver(deps.Archiver, a.cfg.Archive.RetentionDays, deps.Notifier, a.logger)
	return arch.Run(ctx)
}

// FullMode seeds the catalog, then runs the price updater together with the
// archiver cron when archival is enabled.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	if err := a.seed(ctx, deps); err != nil {
		return err
	}

	// Warm the leaderboard so ranking reads have a fresh cache from the start.
	svcs := BuildServices(deps, a.logger)
	if _, err := svcs.Portfolios.Ranking(ctx, 1, 100); err != nil {
		a.logger.WarnContext(ctx, "leaderboard warm-up failed", slog.String("error", err.Error()))
	}

	arch, err := a.buildArchiver(deps)
	if err != nil {
		return fmt.Errorf("full mode: %w", err)
	}
	orch := pipeline.NewOrchestrator(a.buildUpdater(deps), arch, a.cfg.Archive.Cron, a.logger)
	return orch.Run(ctx)
}

// buildArchiver returns the cron archiver, or nil when archival is disabled.
func (a *App) buildArchiver(deps *Dependencies) (*pipeline.Archiver, error) {
	if !a.cfg.Archive.Enabled {
		return nil, nil
	}
	if deps.Archiver == nil {
		return nil, fmt.Errorf("archival enabled but object storage is not configured")
	}
	return pipeline.NewArchiver(deps.Archiver, a.cfg.Archive.RetentionDays, deps.Notifier, a.logger), nil
}

// seed runs the idempotent catalog bootstrap.
func (a *App) seed(ctx context.Context, deps *Dependencies) error {
	seeder := updater.NewSeeder(deps.StockStore, deps.HistoryStore, deps.Leaderboard, a.logger)
	if err := seeder.Seed(ctx); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	return nil
}

// buildUpdater assembles the price updater from the wired dependencies.
func (a *App) buildUpdater(deps *Dependencies) *updater.Updater {
	return updater.New(
		deps.StockStore,
		deps.HistoryStore,
		deps.PriceCache,
		deps.ChartProvider,
		deps.LockManager,
		deps.Notifier,
		updater.Config{
			Interval:       a.cfg.Updater.Interval.Duration,
			Workers:        a.cfg.Updater.Workers,
			MaxCycleErrors: int64(a.cfg.Updater.MaxCycleErrors),
			LockTTL:        a.cfg.Updater.LockTTL.Duration,
		},
		a.logger,
	)
}
