package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/plx/internal/formatter"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/desertthunder/plx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ScheduleAdd creates a schedule from flags.
func (r *Runner) ScheduleAdd(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}

	params := models.Params{}
	if raw := cmd.String("params"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			return fmt.Errorf("%w: --params must be a JSON object: %v", shared.ErrInvalidArgument, err)
		}
	}

	s := &models.Schedule{
		UserID:             cmd.String("user"),
		JobType:            models.JobType(cmd.String("job")),
		TargetPlaylistID:   cmd.String("target"),
		TargetPlaylistName: cmd.String("target-name"),
		SourcePlaylistIDs:  models.StringList(cmd.StringSlice("source")),
		AlgorithmName:      cmd.String("algorithm"),
		AlgorithmParams:    params,
		RotationMode:       models.RotationMode(cmd.String("mode")),
		RotationCount:      int(cmd.Int("count")),
		CronExpr:           cmd.String("cron"),
		Enabled:            !cmd.Bool("disabled"),
	}
	if err := store.Schedules.Create(ctx, s); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(s, true)
	}
	r.writePlain("✓ Created %s schedule %s\n", s.JobType, s.ID)
	if s.CronExpr == "" {
		r.writePlain("No cron expression set; run it with: plx schedule run %s\n", s.ID)
	}
	return nil
}

// ScheduleList lists schedules, optionally for one user.
func (r *Runner) ScheduleList(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	schedules, err := store.Schedules.List(ctx, cmd.String("user"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(schedules, cmd.Bool("pretty"))
	}
	if len(schedules) == 0 {
		return r.writePlain("No schedules.\n")
	}
	for _, s := range schedules {
		r.writePlain("%s  %-17s %s\n", s.ID, s.JobType, targetLabel(s))
		r.writePlain("   Enabled: %s, cron: %s, last: %s\n", onOff(s.Enabled), orDash(s.CronExpr), lastRun(s))
	}
	return nil
}

// ScheduleShow prints a schedule and its most recent runs.
func (r *Runner) ScheduleShow(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	id, err := idArg(cmd)
	if err != nil {
		return err
	}
	s, err := store.Schedules.Get(ctx, id)
	if err != nil {
		return err
	}
	records, err := store.Executions.ListForSchedule(ctx, id, 5)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"schedule": s, "history": records}, true)
	}

	r.writePlainHeader(fmt.Sprintf("%s → %s", s.JobType, targetLabel(s)))
	r.writePlain("ID:       %s\n", s.ID)
	r.writePlain("User:     %s\n", s.UserID)
	r.writePlain("Enabled:  %s\n", onOff(s.Enabled))
	r.writePlain("Cron:     %s\n", orDash(s.CronExpr))
	switch s.JobType {
	case models.JobMerge, models.JobMergeAndReorder:
		r.writePlain("Sources:  %s\n", orDash(strings.Join(s.SourcePlaylistIDs, ", ")))
	}
	switch s.JobType {
	case models.JobReorder, models.JobMergeAndReorder:
		r.writePlain("Algorithm: %s %v\n", s.AlgorithmName, map[string]any(s.AlgorithmParams))
	case models.JobRotate:
		r.writePlain("Rotation: %s x%d\n", s.RotationMode, s.RotationCount)
	}
	r.writePlain("Last run: %s\n", lastRun(s))
	if s.LastError != "" {
		r.writePlain("Error:    %s\n", s.LastError)
	}

	if len(records) > 0 {
		r.writePlainln("Recent runs:")
		for _, rec := range records {
			r.writePlain("  %s  %-8s +%d/%d %s\n", rec.StartedAt.Local().Format(time.DateTime), rec.Status, rec.TracksAdded, rec.TracksTotal, rec.ErrorMessage)
		}
	}
	return nil
}

// ScheduleSetEnabled enables or disables a schedule.
func (r *Runner) ScheduleSetEnabled(enabled bool) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		store, err := r.openStore()
		if err != nil {
			return err
		}
		id, err := idArg(cmd)
		if err != nil {
			return err
		}
		if err := store.Schedules.SetEnabled(ctx, id, enabled); err != nil {
			return err
		}
		if enabled {
			return r.writePlain("✓ Enabled %s\n", id)
		}
		return r.writePlain("✓ Disabled %s\n", id)
	}
}

// ScheduleDelete removes a schedule and its history.
func (r *Runner) ScheduleDelete(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	id, err := idArg(cmd)
	if err != nil {
		return err
	}
	if err := store.Schedules.Delete(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted %s\n", id)
}

// ScheduleRun runs schedules immediately.
//
// A single ID goes through ExecuteNow and reports the stored outcome. Several IDs, or --all, run as a
// bounded batch on the scheduled path with progress printed as each finishes.
func (r *Runner) ScheduleRun(ctx context.Context, cmd *cli.Command) error {
	executor, err := r.openExecutor()
	if err != nil {
		return err
	}

	ids := cmd.Args().Slice()
	if cmd.Bool("all") {
		enabled, err := r.store.Schedules.ListEnabled(ctx)
		if err != nil {
			return err
		}
		if len(enabled) == 0 {
			return r.writePlain("No enabled schedules.\n")
		}
		ids = ids[:0]
		for _, s := range enabled {
			ids = append(ids, s.ID)
		}
	}

	switch len(ids) {
	case 0:
		return fmt.Errorf("%w: pass a schedule id or --all", shared.ErrMissingArgument)
	case 1:
		if !cmd.Bool("all") {
			return r.runNow(ctx, executor, ids[0], cmd.String("user"))
		}
	}
	return r.runBatch(ctx, executor, ids, cmd)
}

func (r *Runner) runNow(ctx context.Context, executor *tasks.Executor, id, userID string) error {
	if userID == "" {
		s, err := r.store.Schedules.Get(ctx, id)
		if err != nil {
			return err
		}
		userID = s.UserID
	}

	status, err := executor.ExecuteNow(ctx, id, userID)
	var failed *tasks.RunFailedError
	switch {
	case errors.As(err, &failed):
		r.writePlain("✗ %s failed: %s\n", id, failed.Message)
		return err
	case err != nil:
		return err
	}

	records, err := r.store.Executions.ListForSchedule(ctx, id, 1)
	if err == nil && len(records) > 0 {
		rec := records[0]
		return r.writePlain("✓ %s %s: +%d tracks, %d total (%s)\n", id, status.Status, rec.TracksAdded, rec.TracksTotal, rec.Duration().Round(time.Millisecond))
	}
	return r.writePlain("✓ %s %s\n", id, status.Status)
}

func (r *Runner) runBatch(ctx context.Context, executor *tasks.Executor, ids []string, cmd *cli.Command) error {
	progress := make(chan tasks.ProgressUpdate, len(ids)*2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			if update.Phase != tasks.RunStarted {
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	result, err := executor.RunBatch(ctx, progress, ids, tasks.BatchOpts{
		Concurrency: int(cmd.Int("concurrency")),
		RateLimit:   r.config.Engine.RequestsPerSecond,
	})
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.writePlainln("Ran %d schedules: %d succeeded, %d failed, %d skipped", result.Total, result.Succeeded, result.Failed, result.Skipped)
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d schedules failed", result.Failed, result.Total)
	}
	return nil
}

// ScheduleHistory prints the newest execution records of a schedule.
func (r *Runner) ScheduleHistory(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	id, err := idArg(cmd)
	if err != nil {
		return err
	}
	s, err := store.Schedules.Get(ctx, id)
	if err != nil {
		return err
	}
	records, err := store.Executions.ListForSchedule(ctx, id, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	switch {
	case cmd.Bool("json"):
		return r.writeJSON(records, cmd.Bool("pretty"))
	case cmd.Bool("markdown"):
		_, err := r.output.Write(formatter.HistoryToMarkdown(s, records))
		return err
	}

	if len(records) == 0 {
		return r.writePlain("No runs recorded for %s\n", id)
	}
	for _, rec := range records {
		r.writePlain("%s  %-8s +%d/%d", rec.StartedAt.Local().Format(time.DateTime), rec.Status, rec.TracksAdded, rec.TracksTotal)
		if rec.CompletedAt != nil {
			r.writePlain("  %s", rec.Duration().Round(time.Millisecond))
		}
		if rec.ErrorMessage != "" {
			r.writePlain("  %s", rec.ErrorMessage)
		}
		r.writePlain("\n")
	}
	return nil
}

func targetLabel(s *models.Schedule) string {
	if s.TargetPlaylistName == "" {
		return s.TargetPlaylistID
	}
	return fmt.Sprintf("%s (%s)", s.TargetPlaylistName, s.TargetPlaylistID)
}

func lastRun(s *models.Schedule) string {
	if s.LastRunAt == nil {
		return string(s.LastStatus)
	}
	return fmt.Sprintf("%s at %s", s.LastStatus, s.LastRunAt.Local().Format(time.DateTime))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
