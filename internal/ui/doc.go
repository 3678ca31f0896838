// Package ui implements the `plx tui` dashboard using bubbletea's Elm architecture.
//
// Two views are available:
//  1. [ScheduleListView] : every schedule with its job, target and last outcome
//  2. [HistoryView] : the recent execution records of the selected schedule
//
// Pressing r in either view runs the selected schedule immediately through the same
// path as the daemon ([tasks.Executor.ExecuteNow]); the list refreshes when the run ends.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, r, f, q) with contextual help
// displayed via charmbracelet/bubbles/help.
package ui
