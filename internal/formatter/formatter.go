// package formatter renders snapshots and execution history for export (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/plx/internal/models"
)

// Format names accepted by [WriteSnapshotExport].
const (
	FormatCSV  = "csv"
	FormatText = "txt"
	FormatJSON = "json"
)

// SnapshotToCSV renders one row per track with columns: Position, URI
func SnapshotToCSV(s *models.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Position", "URI"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for i, uri := range s.TrackURIs {
		if err := writer.Write([]string{strconv.Itoa(i + 1), uri}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// SnapshotToText renders a header followed by the numbered track URIs.
func SnapshotToText(s *models.Snapshot) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", playlistLabel(s.PlaylistName, s.PlaylistID))
	fmt.Fprintf(&buf, "Captured: %s (%s)\n", s.CreatedAt.UTC().Format(time.RFC3339), s.Reason)
	if s.TriggerDescription != "" {
		fmt.Fprintf(&buf, "Trigger: %s\n", s.TriggerDescription)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(s.TrackURIs))

	for i, uri := range s.TrackURIs {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, uri)
	}
	return buf.Bytes(), nil
}

// SnapshotToJSON renders the snapshot as indented JSON.
func SnapshotToJSON(s *models.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// HistoryToMarkdown renders a schedule's recent executions as a Markdown table, newest first as given.
func HistoryToMarkdown(s *models.Schedule, records []*models.ExecutionRecord) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s: %s\n\n", s.JobType, playlistLabel(s.TargetPlaylistName, s.TargetPlaylistID))
	fmt.Fprintf(&buf, "**Schedule**: `%s`\n", s.ID)
	if s.CronExpr != "" {
		fmt.Fprintf(&buf, "**Cron**: `%s`\n", s.CronExpr)
	}
	fmt.Fprintf(&buf, "**Enabled**: %t\n", s.Enabled)
	fmt.Fprintf(&buf, "**Last status**: %s\n\n", s.LastStatus)

	if len(records) == 0 {
		buf.WriteString("_No runs yet._\n")
		return buf.Bytes()
	}

	buf.WriteString("| Started | Status | Added | Total | Duration | Error |\n")
	buf.WriteString("|---|---|---|---|---|---|\n")
	for _, r := range records {
		duration := "-"
		if r.CompletedAt != nil {
			duration = r.Duration().Round(time.Millisecond).String()
		}
		fmt.Fprintf(&buf, "| %s | %s | %d | %d | %s | %s |\n",
			r.StartedAt.UTC().Format(time.RFC3339),
			r.Status,
			r.TracksAdded,
			r.TracksTotal,
			duration,
			escapeCell(r.ErrorMessage),
		)
	}
	return buf.Bytes()
}

// WriteSnapshotExport writes s in format to path.
//
// Defaults to {playlist_id}_{snapshot_id}.{format} in the working directory.
func WriteSnapshotExport(s *models.Snapshot, format, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = SnapshotToCSV(s)
	case FormatText:
		data, err = SnapshotToText(s)
	case FormatJSON:
		data, err = SnapshotToJSON(s)
	default:
		return "", fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return "", err
	}

	if path == "" {
		path = fmt.Sprintf("%s_%s.%s", s.PlaylistID, s.ID, format)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

func playlistLabel(name, id string) string {
	if name == "" {
		return id
	}
	return fmt.Sprintf("%s (%s)", name, id)
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
