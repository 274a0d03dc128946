package main

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// StartJobs schedules the periodic maintenance work: sweeping expired
// planner sessions and refreshing the display-currency rate table. Returns
// the scheduler so main can stop it on shutdown.
func StartJobs(deps *Dependencies) *cron.Cron {
	c := cron.New()

	// Expired wizard sessions linger until the cache's own janitor runs;
	// sweeping hourly keeps the session count metric honest.
	if _, err := c.AddFunc("@hourly", func() {
		deps.SessionStore.Sweep()
		deps.Logger.Debug("planner session sweep completed",
			slog.Int("live_sessions", deps.SessionStore.Len()))
	}); err != nil {
		deps.Logger.Error("failed to schedule session sweep", slog.Any("error", err))
	}

	// Display rates are advisory; reloading the configured table daily
	// picks up env/ops changes without a restart being strictly required.
	if _, err := c.AddFunc("@daily", func() {
		for code, rate := range deps.Config.Currency.Rates {
			deps.Converter.SetRate(code, rate)
		}
		deps.Logger.Info("currency display rates refreshed")
	}); err != nil {
		deps.Logger.Error("failed to schedule rate refresh", slog.Any("error", err))
	}

	c.Start()
	deps.Logger.Info("maintenance jobs scheduled")
	return c
}
