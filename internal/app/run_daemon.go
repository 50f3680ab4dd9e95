package app

import (
	"context"
	"errors"
	"time"

	"github.com/dev-tams/blobsweep/internal/config"
	"github.com/dev-tams/blobsweep/internal/schedule"
	"github.com/dev-tams/blobsweep/pkg/logger"
)

// RunDaemon runs the sweep on cfg.Cron until ctx is cancelled. A failed run
// is logged and the daemon waits for the next tick; the job is idempotent so
// the next pass picks up whatever was left.
func RunDaemon(ctx context.Context, runner *Runner, cfg config.ScheduleConfig) error {
	s, err := schedule.New(cfg.Cron, func(ctx context.Context) {
		runScheduled(ctx, runner, cfg)
	})
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

func runScheduled(ctx context.Context, runner *Runner, cfg config.ScheduleConfig) {
	runCtx := ctx
	cancel := func() {}
	if cfg.RunTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
	}
	defer cancel()

	_, err := runner.Run(runCtx, Options{DryRun: cfg.DryRun})
	switch {
	case err == nil:
	case cfg.RunTimeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		logger.Log.Error().Dur("timeout", cfg.RunTimeout).Msg("scheduled run timed out")
	case errors.Is(err, context.Canceled):
		logger.Log.Info().Msg("scheduled run cancelled by shutdown")
	default:
		logger.Log.Error().Err(err).Time("at", time.Now().UTC()).Msg("scheduled run failed")
	}
}
