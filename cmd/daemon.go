package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/plx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Daemon runs enabled schedules on their cron expressions until interrupted.
func (r *Runner) Daemon(ctx context.Context, cmd *cli.Command) error {
	executor, err := r.openExecutor()
	if err != nil {
		return err
	}

	loc := time.Local
	if tz := cmd.String("tz"); tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			return fmt.Errorf("invalid time zone %q: %w", tz, err)
		}
	}

	if cmd.Bool("run-on-start") {
		enabled, err := r.store.Schedules.ListEnabled(ctx)
		if err != nil {
			return err
		}
		ids := make([]string, len(enabled))
		for i, s := range enabled {
			ids[i] = s.ID
		}
		result, err := executor.RunBatch(ctx, nil, ids, tasks.BatchOpts{
			Concurrency: r.config.Daemon.Concurrency,
			RateLimit:   r.config.Engine.RequestsPerSecond,
		})
		if err != nil {
			return err
		}
		r.logger.Info("startup run finished", "total", result.Total, "succeeded", result.Succeeded, "failed", result.Failed, "skipped", result.Skipped)
	}

	trigger := tasks.NewTrigger(tasks.TriggerOpts{
		Schedules:      r.store.Schedules,
		Runner:         executor,
		ReloadInterval: r.config.Daemon.ReloadInterval,
		Location:       loc,
		Logger:         r.logger,
	})

	r.logger.Info("daemon starting", "locks", r.config.Locks.Backend, "tz", loc.String())
	return trigger.Run(ctx)
}
