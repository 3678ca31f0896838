package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

// ScheduleLister lists the schedules that should have a cron entry.
type ScheduleLister interface {
	ListEnabled(ctx context.Context) ([]*models.Schedule, error)
}

// Runner executes a schedule on the scheduled path.
type Runner interface {
	Execute(ctx context.Context, scheduleID string)
}

// TriggerOpts holds the dependencies of a [Trigger].
type TriggerOpts struct {
	Schedules      ScheduleLister
	Runner         Runner
	ReloadInterval time.Duration // default: one minute
	Location       *time.Location
	Logger         *log.Logger
}

type triggerEntry struct {
	id   cron.EntryID
	expr string
}

// Trigger fires [Runner.Execute] for each enabled schedule according to its cron expression.
type Trigger struct {
	schedules ScheduleLister
	runner    Runner
	interval  time.Duration
	logger    *log.Logger
	cron      *cron.Cron

	mu      sync.Mutex
	ctx     context.Context
	entries map[string]triggerEntry
}

// NewTrigger creates a [Trigger]. Call [Trigger.Run] to start it.
func NewTrigger(opts TriggerOpts) *Trigger {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	interval := opts.ReloadInterval
	if interval <= 0 {
		interval = time.Minute
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	return &Trigger{
		schedules: opts.Schedules,
		runner:    opts.Runner,
		interval:  interval,
		logger:    shared.WithLogger(logger, "component", "trigger"),
		cron:      cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:       context.Background(),
		entries:   map[string]triggerEntry{},
	}
}

// Reload brings the cron entries in line with the enabled schedules.
//
// New schedules are added, changed expressions are replaced and schedules that are gone or disabled
// are removed. A schedule with an unparsable expression is logged and left out.
func (t *Trigger) Reload(ctx context.Context) error {
	schedules, err := t.schedules.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list schedules: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[string]bool, len(schedules))
	for _, s := range schedules {
		if s.CronExpr == "" {
			continue
		}
		seen[s.ID] = true

		if existing, ok := t.entries[s.ID]; ok {
			if existing.expr == s.CronExpr {
				continue
			}
			t.cron.Remove(existing.id)
			delete(t.entries, s.ID)
		}

		scheduleID := s.ID
		id, err := t.cron.AddFunc(s.CronExpr, func() { t.fire(scheduleID) })
		if err != nil {
			t.logger.Warn("invalid cron expression, schedule will not trigger", "schedule", s.ID, "cron", s.CronExpr, "err", err)
			continue
		}
		t.entries[s.ID] = triggerEntry{id: id, expr: s.CronExpr}
		t.logger.Debug("scheduled", "schedule", s.ID, "cron", s.CronExpr)
	}

	for scheduleID, entry := range t.entries {
		if !seen[scheduleID] {
			t.cron.Remove(entry.id)
			delete(t.entries, scheduleID)
			t.logger.Debug("unscheduled", "schedule", scheduleID)
		}
	}
	return nil
}

func (t *Trigger) fire(scheduleID string) {
	t.mu.Lock()
	ctx := t.ctx
	t.mu.Unlock()

	t.runner.Execute(ctx, scheduleID)
}

// Run loads the schedules, starts the cron runner and reloads every interval until ctx is done.
// It waits for in-flight runs before returning.
func (t *Trigger) Run(ctx context.Context) error {
	t.mu.Lock()
	t.ctx = ctx
	t.mu.Unlock()

	if err := t.Reload(ctx); err != nil {
		return err
	}

	t.cron.Start()
	t.logger.Info("trigger started", "schedules", t.Len(), "reload_interval", t.interval)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			<-t.cron.Stop().Done()
			t.logger.Info("trigger stopped")
			return nil
		case <-ticker.C:
			if err := t.Reload(ctx); err != nil {
				t.logger.Error("failed to reload schedules", "err", err)
			}
		}
	}
}

// Len returns the number of scheduled entries.
func (t *Trigger) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Next returns the next fire time of a schedule, or the zero time if it has no entry or the
// trigger is not running.
func (t *Trigger) Next(scheduleID string) time.Time {
	t.mu.Lock()
	entry, ok := t.entries[scheduleID]
	t.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return t.cron.Entry(entry.id).Next
}
