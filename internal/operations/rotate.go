package operations

import (
	"context"
	"fmt"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/playlist"
	"github.com/desertthunder/plx/internal/services"
)

// rotation is the state shared by the rotation strategies.
type rotation struct {
	schedule   *models.Schedule
	pair       *models.ArchivePair
	production []string
	count      int // min(configured count, len(production)), always > 0
}

type rotateFunc func(ctx context.Context, api services.PlaylistAPI, r rotation) (Result, error)

// Rotate moves tracks between the target (production) playlist and its paired archive.
//
// Playlist order is oldest first: the oldest tracks are the first entries.
func (e *Executor) Rotate(ctx context.Context, s *models.Schedule, api services.PlaylistAPI) (Result, error) {
	strategy, ok := e.rotations[s.RotationMode]
	if !ok {
		return Result{}, configError("rotate", fmt.Sprintf("invalid rotation mode %q", s.RotationMode), nil)
	}

	pair, err := e.lookupPair(ctx, s)
	if err != nil {
		return Result{}, err
	}

	tracks, err := api.GetTracks(ctx, s.TargetPlaylistID)
	if err != nil {
		return Result{}, apiError("read production playlist", "production", s.TargetPlaylistID, err)
	}
	production := playlist.URIs(tracks)

	e.capture(ctx, s, s.TargetPlaylistID, s.TargetPlaylistName, production, models.ReasonPreRotate)

	count := min(s.RotationCount, len(production))
	if count <= 0 {
		e.logger.Info("nothing to rotate", "schedule", s.ID, "configured", s.RotationCount, "production", len(production))
		return Result{TracksTotal: len(production)}, nil
	}

	return strategy(ctx, api, rotation{schedule: s, pair: pair, production: production, count: count})
}

// archiveOldest appends the oldest tracks to the archive, then removes them from production.
func (e *Executor) archiveOldest(ctx context.Context, api services.PlaylistAPI, r rotation) (Result, error) {
	oldest := playlist.Oldest(r.production, r.count)

	if err := playlist.AddInBatches(ctx, api, r.pair.ArchivePlaylistID, oldest, e.batchSize); err != nil {
		return Result{}, apiError("add tracks to archive playlist", "archive", r.pair.ArchivePlaylistID, err)
	}
	if err := playlist.RemoveInBatches(ctx, api, r.schedule.TargetPlaylistID, oldest, e.batchSize); err != nil {
		return Result{}, apiError("remove tracks from production playlist", "production", r.schedule.TargetPlaylistID, err)
	}

	return Result{TracksTotal: len(r.production) - len(oldest)}, nil
}

// available returns archive tracks not in production, in archive order.
func (e *Executor) available(ctx context.Context, api services.PlaylistAPI, r rotation) ([]string, error) {
	archive, err := api.GetTracks(ctx, r.pair.ArchivePlaylistID)
	if err != nil {
		return nil, apiError("read archive playlist", "archive", r.pair.ArchivePlaylistID, err)
	}
	return playlist.Difference(playlist.URIs(archive), r.production), nil
}

// refresh replaces the oldest production tracks with the newest archive tracks not already in production.
func (e *Executor) refresh(ctx context.Context, api services.PlaylistAPI, r rotation) (Result, error) {
	available, err := e.available(ctx, api, r)
	if err != nil {
		return Result{}, err
	}

	incoming := playlist.Newest(available, r.count)
	if len(incoming) == 0 {
		e.logger.Info("archive has no tracks to refresh from", "schedule", r.schedule.ID)
		return Result{TracksTotal: len(r.production)}, nil
	}
	outgoing := playlist.Oldest(r.production, len(incoming))

	productionID := r.schedule.TargetPlaylistID
	if err := playlist.RemoveInBatches(ctx, api, productionID, outgoing, e.batchSize); err != nil {
		return Result{}, apiError("remove tracks from production playlist", "production", productionID, err)
	}
	if err := playlist.AddInBatches(ctx, api, productionID, incoming, e.batchSize); err != nil {
		return Result{}, apiError("add tracks to production playlist", "production", productionID, err)
	}

	return Result{
		TracksAdded: len(incoming),
		TracksTotal: len(r.production) - len(outgoing) + len(incoming),
	}, nil
}

// swap exchanges the oldest production tracks with the newest available archive tracks, one for one.
func (e *Executor) swap(ctx context.Context, api services.PlaylistAPI, r rotation) (Result, error) {
	available, err := e.available(ctx, api, r)
	if err != nil {
		return Result{}, err
	}

	swapIn := playlist.Newest(available, r.count)
	if len(swapIn) == 0 {
		e.logger.Info("archive has no tracks to swap in", "schedule", r.schedule.ID)
		return Result{TracksTotal: len(r.production)}, nil
	}
	swapOut := playlist.Oldest(r.production, len(swapIn))

	productionID, archiveID := r.schedule.TargetPlaylistID, r.pair.ArchivePlaylistID
	if err := playlist.AddInBatches(ctx, api, archiveID, swapOut, e.batchSize); err != nil {
		return Result{}, apiError("add tracks to archive playlist", "archive", archiveID, err)
	}
	if err := playlist.RemoveInBatches(ctx, api, productionID, swapOut, e.batchSize); err != nil {
		return Result{}, apiError("remove tracks from production playlist", "production", productionID, err)
	}
	if err := playlist.AddInBatches(ctx, api, productionID, swapIn, e.batchSize); err != nil {
		return Result{}, apiError("add tracks to production playlist", "production", productionID, err)
	}
	if err := playlist.RemoveInBatches(ctx, api, archiveID, swapIn, e.batchSize); err != nil {
		return Result{}, apiError("remove tracks from archive playlist", "archive", archiveID, err)
	}

	return Result{
		TracksAdded: min(len(swapIn), len(swapOut)),
		TracksTotal: len(r.production) - len(swapOut) + len(swapIn),
	}, nil
}
