package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// StartScheduler launches the cron-driven daily snapshot capture. The
// schedule comes from config (seconds-precision cron spec) and runs the same
// idempotent capture path as the HTTP endpoint for the default identity.
func (a *App) StartScheduler() error {
	spec := a.Config.Snapshot.Schedule
	if spec == "" {
		a.Logger.Info().Msg("Snapshot schedule empty, scheduler disabled")
		return nil
	}

	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		userID := "default"
		snapshot, err := a.PortfolioService.CaptureSnapshot(ctx, userID, time.Now(), nil)
		if err != nil {
			a.Logger.Error().Err(err).Str("user_id", userID).Msg("Scheduled snapshot capture failed")
			return
		}
		a.Logger.Info().Str("user_id", userID).Str("date", snapshot.Date).
			Msg("Scheduled snapshot captured")
	})
	if err != nil {
		return err
	}

	c.Start()
	a.schedulerStop = func() {
		stopCtx := c.Stop()
		<-stopCtx.Done()
	}

	a.Logger.Info().Str("schedule", spec).Msg("Snapshot scheduler started")
	return nil
}
