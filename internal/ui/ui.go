package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/tasks"
)

// HistoryLimit is how many execution records the history view loads.
const HistoryLimit = 20

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ScheduleListView ViewState = iota
	HistoryView
)

// ScheduleSource lists schedules; an empty userID lists every user's schedules.
type ScheduleSource interface {
	List(ctx context.Context, userID string) ([]*models.Schedule, error)
}

// HistorySource lists execution records newest first.
type HistorySource interface {
	ListForSchedule(ctx context.Context, scheduleID string, limit int) ([]*models.ExecutionRecord, error)
}

// RunNower runs a schedule on behalf of its owner.
type RunNower interface {
	ExecuteNow(ctx context.Context, scheduleID, userID string) (*tasks.RunStatus, error)
}

// ModelOpts holds the dependencies of a [Model].
type ModelOpts struct {
	Schedules ScheduleSource
	History   HistorySource
	Runner    RunNower
	UserID    string // restricts the dashboard to one user when set
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	opts      ModelOpts
	view      ViewState
	width     int
	height    int
	schedules list.Model
	history   list.Model
	selected  *models.Schedule
	running   map[string]bool
	status    string
	err       error
	help      help.Model
	keys      keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts ModelOpts) *Model {
	schedules := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	schedules.Title = "Schedules"
	history := list.New(nil, list.NewDefaultDelegate(), 0, 0)

	return &Model{
		ctx:       ctx,
		opts:      opts,
		view:      ScheduleListView,
		schedules: schedules,
		history:   history,
		running:   map[string]bool{},
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init loads the schedule list.
func (m *Model) Init() tea.Cmd {
	return m.loadSchedules()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.schedules.SetSize(msg.Width-4, msg.Height-8)
		m.history.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		if m.filtering() {
			break
		}
		switch m.view {
		case ScheduleListView:
			return m.handleScheduleKeys(msg)
		case HistoryView:
			return m.handleHistoryKeys(msg)
		}

	case schedulesLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		items := make([]list.Item, len(msg.schedules))
		for i, s := range msg.schedules {
			items[i] = scheduleItem{schedule: s}
			if m.selected != nil && m.selected.ID == s.ID {
				m.selected = s
			}
		}
		return m, m.schedules.SetItems(items)

	case historyLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if m.selected == nil || m.selected.ID != msg.scheduleID {
			return m, nil
		}
		items := make([]list.Item, len(msg.records))
		for i, r := range msg.records {
			items[i] = executionItem{record: r}
		}
		m.history.Title = fmt.Sprintf("History: %s", scheduleItem{schedule: m.selected}.Title())
		return m, m.history.SetItems(items)

	case runFinishedMsg:
		delete(m.running, msg.scheduleID)
		switch {
		case msg.err != nil:
			m.status = styles.err.Render(fmt.Sprintf("✗ %s: %v", msg.scheduleID, msg.err))
		default:
			m.status = styles.ok.Render(fmt.Sprintf("✓ %s: %s", msg.scheduleID, msg.status.Status))
		}
		cmds := []tea.Cmd{m.loadSchedules()}
		if m.view == HistoryView && m.selected != nil && m.selected.ID == msg.scheduleID {
			cmds = append(cmds, m.loadHistory(msg.scheduleID))
		}
		return m, tea.Batch(cmds...)
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress f to retry, q to quit", m.err))
	}

	var body string
	var helpKeys []key.Binding
	switch m.view {
	case HistoryView:
		body = m.history.View()
		helpKeys = []key.Binding{m.keys.run, m.keys.back, m.keys.quit}
	default:
		body = m.schedules.View()
		helpKeys = []key.Binding{m.keys.enter, m.keys.run, m.keys.refresh, m.keys.quit}
	}

	status := m.status
	if len(m.running) > 0 {
		status = styles.warn.Render(fmt.Sprintf("running %d schedule(s)...", len(m.running)))
	}
	return fmt.Sprintf("%s\n%s\n\n%s", body, status, m.help.ShortHelpView(helpKeys))
}

func (m *Model) handleScheduleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		m.err = nil
		return m, m.loadSchedules()
	case key.Matches(msg, m.keys.enter):
		if s := m.current(); s != nil {
			m.selected = s
			m.view = HistoryView
			m.history.Title = fmt.Sprintf("History: %s", scheduleItem{schedule: s}.Title())
			return m, m.loadHistory(s.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.run):
		return m, m.runNow(m.current())
	}

	var cmd tea.Cmd
	m.schedules, cmd = m.schedules.Update(msg)
	return m, cmd
}

func (m *Model) handleHistoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = ScheduleListView
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		if m.selected != nil {
			return m, m.loadHistory(m.selected.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.run):
		return m, m.runNow(m.selected)
	}

	var cmd tea.Cmd
	m.history, cmd = m.history.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ScheduleListView:
		m.schedules, cmd = m.schedules.Update(msg)
	case HistoryView:
		m.history, cmd = m.history.Update(msg)
	}
	return m, cmd
}

func (m *Model) filtering() bool {
	if m.view == HistoryView {
		return m.history.FilterState() == list.Filtering
	}
	return m.schedules.FilterState() == list.Filtering
}

func (m *Model) current() *models.Schedule {
	if item, ok := m.schedules.SelectedItem().(scheduleItem); ok {
		return item.schedule
	}
	return nil
}

func (m *Model) loadSchedules() tea.Cmd {
	return func() tea.Msg {
		schedules, err := m.opts.Schedules.List(m.ctx, m.opts.UserID)
		return schedulesLoadedMsg{schedules: schedules, err: err}
	}
}

func (m *Model) loadHistory(scheduleID string) tea.Cmd {
	return func() tea.Msg {
		records, err := m.opts.History.ListForSchedule(m.ctx, scheduleID, HistoryLimit)
		return historyLoadedMsg{scheduleID: scheduleID, records: records, err: err}
	}
}

// runNow starts ExecuteNow in a command; a schedule already running from this dashboard is ignored.
func (m *Model) runNow(s *models.Schedule) tea.Cmd {
	if s == nil || m.running[s.ID] {
		return nil
	}
	m.running[s.ID] = true
	m.status = ""

	id, userID := s.ID, s.UserID
	return func() tea.Msg {
		status, err := m.opts.Runner.ExecuteNow(m.ctx, id, userID)
		return runFinishedMsg{scheduleID: id, status: status, err: err}
	}
}
