package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/tasks"
)

type stubSchedules struct {
	schedules []*models.Schedule
	err       error
	userIDs   []string
}

func (s *stubSchedules) List(_ context.Context, userID string) ([]*models.Schedule, error) {
	s.userIDs = append(s.userIDs, userID)
	return s.schedules, s.err
}

type stubHistory struct {
	records map[string][]*models.ExecutionRecord
}

func (s *stubHistory) ListForSchedule(_ context.Context, scheduleID string, limit int) ([]*models.ExecutionRecord, error) {
	return s.records[scheduleID], nil
}

type stubRunner struct {
	calls []string
	err   error
}

func (s *stubRunner) ExecuteNow(_ context.Context, scheduleID, userID string) (*tasks.RunStatus, error) {
	s.calls = append(s.calls, scheduleID+"/"+userID)
	if s.err != nil {
		return nil, s.err
	}
	now := time.Now()
	return &tasks.RunStatus{ScheduleID: scheduleID, Status: models.RunSuccess, LastRunAt: &now}, nil
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newTestModel() (*Model, *stubSchedules, *stubRunner) {
	schedules := &stubSchedules{schedules: []*models.Schedule{
		{ID: "s1", UserID: "u1", JobType: models.JobMerge, TargetPlaylistID: "p1", TargetPlaylistName: "Mix", Enabled: true, LastStatus: models.RunNeverRun},
		{ID: "s2", UserID: "u2", JobType: models.JobRotate, TargetPlaylistID: "p2", LastStatus: models.RunFailed, LastError: "boom"},
	}}
	history := &stubHistory{records: map[string][]*models.ExecutionRecord{
		"s1": {{ID: "e1", ScheduleID: "s1", Status: models.ExecutionSuccess, TracksAdded: 2, TracksTotal: 5, StartedAt: time.Now()}},
	}}
	runner := &stubRunner{}
	m := NewModel(context.Background(), ModelOpts{Schedules: schedules, History: history, Runner: runner, UserID: ""})
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, schedules, runner
}

// load runs Init and feeds the resulting message back into the model.
func load(t *testing.T, m *Model) {
	t.Helper()
	msg := m.Init()()
	m.Update(msg)
}

func TestModel(t *testing.T) {
	t.Run("loads schedules on init", func(t *testing.T) {
		m, schedules, _ := newTestModel()
		load(t, m)

		if got := len(m.schedules.Items()); got != 2 {
			t.Fatalf("expected 2 items, got %d", got)
		}
		if len(schedules.userIDs) != 1 || schedules.userIDs[0] != "" {
			t.Errorf("expected an unfiltered list, got %v", schedules.userIDs)
		}
		if view := m.View(); !strings.Contains(view, "merge → Mix") {
			t.Errorf("expected schedule title in view:\n%s", view)
		}
	})

	t.Run("load error is shown", func(t *testing.T) {
		m, schedules, _ := newTestModel()
		schedules.err = errors.New("database is locked")
		load(t, m)

		if !strings.Contains(m.View(), "database is locked") {
			t.Errorf("expected error in view:\n%s", m.View())
		}
	})

	t.Run("enter opens history", func(t *testing.T) {
		m, _, _ := newTestModel()
		load(t, m)

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if m.view != HistoryView {
			t.Fatalf("expected history view, got %v", m.view)
		}
		if cmd == nil {
			t.Fatal("expected a history load command")
		}
		m.Update(cmd())
		if got := len(m.history.Items()); got != 1 {
			t.Errorf("expected 1 history item, got %d", got)
		}

		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if m.view != ScheduleListView {
			t.Errorf("expected esc to return to the list")
		}
	})

	t.Run("r runs the selected schedule as its owner", func(t *testing.T) {
		m, _, runner := newTestModel()
		load(t, m)

		_, cmd := m.Update(keyRune('r'))
		if cmd == nil {
			t.Fatal("expected a run command")
		}
		if !m.running["s1"] {
			t.Error("expected s1 to be marked running")
		}
		if _, again := m.Update(keyRune('r')); again != nil {
			t.Error("expected a second run of the same schedule to be ignored")
		}

		msg := cmd()
		if len(runner.calls) != 1 || runner.calls[0] != "s1/u1" {
			t.Fatalf("unexpected calls %v", runner.calls)
		}

		_, refresh := m.Update(msg)
		if m.running["s1"] {
			t.Error("expected s1 to be cleared after the run")
		}
		if refresh == nil {
			t.Error("expected a refresh after the run")
		}
		if !strings.Contains(m.status, "s1: success") {
			t.Errorf("unexpected status %q", m.status)
		}
	})

	t.Run("failed run reports the stored error", func(t *testing.T) {
		m, _, runner := newTestModel()
		runner.err = &tasks.RunFailedError{ScheduleID: "s1", Message: "target playlist p1 not found"}
		load(t, m)

		_, cmd := m.Update(keyRune('r'))
		m.Update(cmd())
		if !strings.Contains(m.status, "target playlist p1 not found") {
			t.Errorf("unexpected status %q", m.status)
		}
	})

	t.Run("q quits", func(t *testing.T) {
		m, _, _ := newTestModel()
		load(t, m)

		_, cmd := m.Update(keyRune('q'))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}
