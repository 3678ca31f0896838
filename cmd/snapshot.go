package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/plx/internal/formatter"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/playlist"
	"github.com/urfave/cli/v3"
)

// SnapshotList lists a user's snapshots, newest first.
func (r *Runner) SnapshotList(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	snapshots, err := store.Snapshots.List(ctx, cmd.String("user"), cmd.String("playlist"), int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(snapshots, cmd.Bool("pretty"))
	}
	if len(snapshots) == 0 {
		return r.writePlain("No snapshots.\n")
	}
	for _, s := range snapshots {
		r.writePlain("%s  %s  %-12s %4d tracks  %s\n",
			s.ID, s.CreatedAt.Local().Format(time.DateTime), s.Reason, s.TrackCount, orDash(s.PlaylistName+" "+s.PlaylistID))
	}
	return nil
}

// SnapshotExport writes a snapshot to a file in csv, txt or json.
func (r *Runner) SnapshotExport(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	id, err := idArg(cmd)
	if err != nil {
		return err
	}
	s, err := store.Snapshots.Get(ctx, id)
	if err != nil {
		return err
	}

	path, err := formatter.WriteSnapshotExport(s, cmd.String("format"), cmd.String("output"))
	if err != nil {
		return err
	}
	r.logger.Info("snapshot exported", "id", s.ID, "path", path)
	return r.writePlain("✓ Exported %d tracks to %s\n", len(s.TrackURIs), path)
}

// SnapshotTake captures a playlist on demand, regardless of the user's auto-snapshot setting.
func (r *Runner) SnapshotTake(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	manager, err := r.openCredentials()
	if err != nil {
		return err
	}

	userID, playlistID := cmd.String("user"), cmd.String("playlist")
	api, err := manager.GetClient(ctx, userID)
	if err != nil {
		return err
	}
	tracks, err := api.GetTracks(ctx, playlistID)
	if err != nil {
		return fmt.Errorf("failed to read playlist %s: %w", playlistID, err)
	}

	s := &models.Snapshot{
		UserID:             userID,
		PlaylistID:         playlistID,
		PlaylistName:       cmd.String("name"),
		TrackURIs:          playlist.URIs(tracks),
		Reason:             models.ReasonManual,
		TriggerDescription: "Manual snapshot",
	}
	if err := store.Snapshots.CreateSnapshot(ctx, s); err != nil {
		return err
	}
	return r.writePlain("✓ Snapshot %s: %d tracks\n", s.ID, s.TrackCount)
}

// ActivityList prints a user's activity log.
func (r *Runner) ActivityList(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	entries, err := store.Activity.List(ctx, cmd.String("user"), int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}
	for _, e := range entries {
		r.writePlain("%s  %-22s %s\n", e.CreatedAt.Local().Format(time.DateTime), e.ActivityType, e.Description)
	}
	return nil
}
