package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Run executes job once immediately and then on every tick of spec (a
// standard five-field cron expression or a descriptor like "@hourly")
// until ctx is done. A tick that fires while the previous run is still
// going is skipped. Job errors are logged, not returned.
func Run(ctx context.Context, spec string, job Job, logger *slog.Logger) error {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("parsing schedule %q: %w", spec, err)
	}

	wrapped := func() {
		if ctx.Err() != nil {
			return
		}
		if err := job(ctx); err != nil {
			logger.Error("scheduled run failed", "error", err)
		}
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(sched, cron.FuncJob(wrapped))

	wrapped()
	if ctx.Err() != nil {
		return nil
	}

	c.Start()
	logger.Info("scheduler started", "schedule", spec, "next", sched.Next(time.Now()))

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("scheduler stopped")
	return nil
}
