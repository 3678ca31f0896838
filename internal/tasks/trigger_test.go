package tasks

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plx/internal/models"
)

type staticLister struct {
	mu        sync.Mutex
	schedules []*models.Schedule
}

func (l *staticLister) set(schedules ...*models.Schedule) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.schedules = schedules
}

func (l *staticLister) ListEnabled(context.Context) ([]*models.Schedule, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.schedules, nil
}

type countingRunner struct {
	mu    sync.Mutex
	calls []string
}

func (r *countingRunner) Execute(_ context.Context, scheduleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, scheduleID)
}

func TestTriggerReload(t *testing.T) {
	ctx := context.Background()
	lister := &staticLister{}
	trigger := NewTrigger(TriggerOpts{Schedules: lister, Runner: &countingRunner{}, Logger: log.New(io.Discard)})

	lister.set(
		&models.Schedule{ID: "a", CronExpr: "0 6 * * *"},
		&models.Schedule{ID: "b", CronExpr: "*/5 * * * *"},
		&models.Schedule{ID: "c", CronExpr: "not a cron"},
		&models.Schedule{ID: "d"},
	)
	if err := trigger.Reload(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trigger.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", trigger.Len())
	}

	before := trigger.entries["a"].id
	lister.set(&models.Schedule{ID: "a", CronExpr: "0 7 * * *"})
	if err := trigger.Reload(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trigger.Len() != 1 {
		t.Errorf("expected 1 entry after removal, got %d", trigger.Len())
	}
	if trigger.entries["a"].id == before {
		t.Error("changed expression should replace the entry")
	}
	if trigger.entries["a"].expr != "0 7 * * *" {
		t.Errorf("unexpected expression %q", trigger.entries["a"].expr)
	}
}

func TestTriggerRun(t *testing.T) {
	lister := &staticLister{}
	lister.set(&models.Schedule{ID: "a", CronExpr: "0 6 * * *"})
	trigger := NewTrigger(TriggerOpts{
		Schedules:      lister,
		Runner:         &countingRunner{},
		ReloadInterval: 10 * time.Millisecond,
		Logger:         log.New(io.Discard),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- trigger.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for trigger.Next("a").IsZero() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if trigger.Next("a").IsZero() {
		t.Error("expected a next fire time once running")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("trigger did not stop")
	}
}
