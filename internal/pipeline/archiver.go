package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/simbroker/simbroker/internal/domain"
)

// Notifier reports failed unattended archive runs to the operator channels.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// eventArchiveFailed is the notification event type for failed cron runs.
const eventArchiveFailed = "error"

// Archiver moves old terminal transactions from the database to cold storage.
type Archiver struct {
	blobArchiver  domain.Archiver
	retentionDays int
	notifier      Notifier
	logger        *slog.Logger
}

// NewArchiver creates a new Archiver. notifier may be nil; failed cron runs
// are then only logged.
func NewArchiver(blobArchiver domain.Archiver, retentionDays int, notifier Notifier, logger *slog.Logger) *Archiver {
	return &Archiver{
		blobArchiver:  blobArchiver,
		retentionDays: retentionDays,
		notifier:      notifier,
		logger:        logger.With(slog.String("component", "archiver")),
	}
}

// Run executes a single archive run. The cutoff is retentionDays before now;
// everything terminal and older gets uploaded.
func (a *Archiver) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-time.Duration(a.retentionDays) * 24 * time.Hour)
	a.logger.Info("starting archive run",
		slog.Time("cutoff", cutoff),
		slog.Int("retention_days", a.retentionDays),
	)

	archived, err := a.blobArchiver.ArchiveTransactions(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("archiving transactions before %v: %w", cutoff, err)
	}

	a.logger.Info("archive run complete", slog.Int64("transactions_archived", archived))
	return nil
}

// RunCron runs the archiver on a cron schedule until the context is cancelled.
// It supports cron expressions in the standard 5-field format:
// "minute hour day-of-month month day-of-week"
//
// Example: "0 3 1 * *" runs at 3:00 AM on the 1st of every month.
func (a *Archiver) RunCron(ctx context.Context, cronExpr string) error {
	a.logger.Info("archiver cron started", slog.String("cron", cronExpr))

	for {
		next, err := nextCronTime(cronExpr, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("parsing cron expression %q: %w", cronExpr, err)
		}

		waitDuration := time.Until(next)
		a.logger.Info("archiver waiting for next cron trigger",
			slog.Time("next_run", next),
			slog.Duration("wait", waitDuration),
		)

		timer := time.NewTimer(waitDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
			a.logger.Info("archiver cron stopped")
			return ctx.Err()
		case <-timer.C:
			if err := a.Run(ctx); err != nil {
				a.logger.Error("archive run failed", slog.String("error", err.Error()))
				// Nobody watches a cron run; failures go to the operator
				// channels too.
				if a.notifier != nil {
					if nerr := a.notifier.Notify(ctx, eventArchiveFailed,
						"Transaction archive run failed", err.Error()); nerr != nil {
						a.logger.Error("notification delivery failed",
							slog.String("error", nerr.Error()))
					}
				}
			}
		}
	}
}
