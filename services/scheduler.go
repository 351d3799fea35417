package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartStandingsAudit runs AuditStandings every interval until the returned
// scheduler is shut down.
func StartStandingsAudit(standings StandingsService, interval time.Duration, logger *slog.Logger) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			drifts, err := standings.AuditStandings(ctx)
			if err != nil {
				logger.Error("standings audit failed", slog.Any("error", err))
				return
			}
			logger.Info("standings audit finished", slog.Int("drifted_rows", len(drifts)))
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	return sched, nil
}
