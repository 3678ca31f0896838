package ui

import (
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/tasks"
)

type schedulesLoadedMsg struct {
	schedules []*models.Schedule
	err       error
}

type historyLoadedMsg struct {
	scheduleID string
	records    []*models.ExecutionRecord
	err        error
}

type runFinishedMsg struct {
	scheduleID string
	status     *tasks.RunStatus
	err        error
}
