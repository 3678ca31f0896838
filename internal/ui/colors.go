package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/plx/internal/models"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette is a small stylesheet of named [lipgloss.Style] values.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// Status renders a run or execution status in its color.
func (p *Palette) Status(status string) string {
	switch status {
	case string(models.RunSuccess):
		return p.ok.Render(status)
	case string(models.RunFailed):
		return p.err.Render(status)
	case string(models.ExecutionRunning):
		return p.warn.Render(status)
	default:
		return p.help.Render(status)
	}
}
