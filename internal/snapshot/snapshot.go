// Package snapshot captures a playlist's track order before it is mutated.
package snapshot

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

// Store persists snapshots and reads the per-user auto-snapshot preference.
type Store interface {
	IsAutoSnapshotEnabled(ctx context.Context, userID string) (bool, error)
	CreateSnapshot(ctx context.Context, snapshot *models.Snapshot) error
}

// Gate is the best-effort capture that sits in front of every destructive operation.
type Gate struct {
	store  Store
	logger *log.Logger
}

// NewGate creates a [Gate]. A nil logger uses [log.Default].
func NewGate(store Store, logger *log.Logger) *Gate {
	if logger == nil {
		logger = log.Default()
	}
	return &Gate{store: store, logger: shared.WithLogger(logger, "component", "snapshot")}
}

// CaptureBefore stores a snapshot of uris if the user has auto-snapshots enabled.
//
// It never fails: store errors and panics are logged at warn level and swallowed.
func (g *Gate) CaptureBefore(ctx context.Context, userID, playlistID, name string, uris []string, reason models.SnapshotReason, description string) {
	if g == nil || g.store == nil || len(uris) == 0 {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			g.logger.Warn("snapshot capture panicked", "playlist", playlistID, "reason", reason, "panic", fmt.Sprint(r))
		}
	}()

	enabled, err := g.store.IsAutoSnapshotEnabled(ctx, userID)
	if err != nil {
		g.logger.Warn("failed to read snapshot preference", "user", userID, "playlist", playlistID, "err", err)
		return
	}
	if !enabled {
		return
	}

	snap := &models.Snapshot{
		UserID:             userID,
		PlaylistID:         playlistID,
		PlaylistName:       name,
		TrackURIs:          append(models.StringList(nil), uris...),
		TrackCount:         len(uris),
		Reason:             reason,
		TriggerDescription: description,
	}
	if err := g.store.CreateSnapshot(ctx, snap); err != nil {
		g.logger.Warn("failed to create snapshot", "playlist", playlistID, "reason", reason, "err", err)
		return
	}
	g.logger.Debug("captured snapshot", "playlist", playlistID, "tracks", len(uris), "reason", reason)
}
