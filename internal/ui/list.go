package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/plx/internal/models"
)

var (
	_ list.Item = scheduleItem{}
	_ list.Item = executionItem{}
)

// scheduleItem wraps [models.Schedule] to implement [list.Item].
type scheduleItem struct {
	schedule *models.Schedule
}

func (i scheduleItem) FilterValue() string {
	return i.schedule.TargetPlaylistName + " " + i.schedule.ID
}
func (i scheduleItem) Title() string {
	name := i.schedule.TargetPlaylistName
	if name == "" {
		name = i.schedule.TargetPlaylistID
	}
	title := fmt.Sprintf("%s → %s", i.schedule.JobType, name)
	if !i.schedule.Enabled {
		title += " (disabled)"
	}
	return title
}
func (i scheduleItem) Description() string {
	desc := styles.Status(string(i.schedule.LastStatus))
	if i.schedule.LastRunAt != nil {
		desc = fmt.Sprintf("%s • %s", desc, i.schedule.LastRunAt.Local().Format(time.DateTime))
	}
	if i.schedule.CronExpr != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.schedule.CronExpr)
	}
	if i.schedule.LastError != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.schedule.LastError)
	}
	return desc
}

// executionItem wraps [models.ExecutionRecord] to implement [list.Item].
type executionItem struct {
	record *models.ExecutionRecord
}

func (i executionItem) FilterValue() string { return string(i.record.Status) }
func (i executionItem) Title() string {
	return fmt.Sprintf("%s  %s", i.record.StartedAt.Local().Format(time.DateTime), styles.Status(string(i.record.Status)))
}
func (i executionItem) Description() string {
	if i.record.Status == models.ExecutionFailed {
		return i.record.ErrorMessage
	}
	desc := fmt.Sprintf("+%d tracks, %d total", i.record.TracksAdded, i.record.TracksTotal)
	if d := i.record.Duration(); d > 0 {
		desc = fmt.Sprintf("%s • %s", desc, d.Round(time.Millisecond))
	}
	return desc
}
