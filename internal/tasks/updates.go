package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a batch run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Run phase
	Step    int    // Schedules finished so far
	Total   int    // Schedules in the batch
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Phase of a schedule within a batch.
type Phase int

const (
	RunStarted Phase = iota
	RunSucceeded
	RunFailed
	RunSkipped
)

func (p Phase) String() string {
	switch p {
	case RunStarted:
		return "started"
	case RunSucceeded:
		return "succeeded"
	case RunFailed:
		return "failed"
	case RunSkipped:
		return "skipped"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func startedUpdate(step, total int, scheduleID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RunStarted,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Running schedule %s...", scheduleID),
	}
}

func finishedUpdate(step, total int, res BatchRunResult) ProgressUpdate {
	switch {
	case res.Skipped:
		return ProgressUpdate{
			Phase:   RunSkipped,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] - %s skipped: %v", step, total, res.ScheduleID, res.Error),
			Data:    res,
		}
	case res.Error != nil:
		return ProgressUpdate{
			Phase:   RunFailed,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.ScheduleID, res.Error),
			Data:    res,
		}
	default:
		return ProgressUpdate{
			Phase:   RunSucceeded,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✓ %s (+%d, %d total)", step, total, res.ScheduleID, res.TracksAdded, res.TracksTotal),
			Data:    res,
		}
	}
}
