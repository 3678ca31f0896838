package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/desertthunder/plx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive schedule dashboard.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	logFile, err := openLogFile(cmd.String("log-file"))
	if err != nil {
		return err
	}
	defer logFile.Close()
	r.SetLogger(shared.NewLogger(logFile))

	executor, err := r.openExecutor()
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, ui.ModelOpts{
		Schedules: r.store.Schedules,
		History:   r.store.Executions,
		Runner:    executor,
		UserID:    cmd.String("user"),
	})
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
