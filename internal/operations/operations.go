// Package operations implements the playlist mutations a schedule can run: Merge, Reorder and Rotate.
//
// Each operation receives the schedule and an authenticated [services.PlaylistAPI] and returns a [Result]
// or a [*JobExecutionError]. Snapshots are taken through the injected capturer before any write.
package operations

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/playlist"
	"github.com/desertthunder/plx/internal/reorder"
	"github.com/desertthunder/plx/internal/retry"
	"github.com/desertthunder/plx/internal/services"
	"github.com/desertthunder/plx/internal/shared"
)

// SnapshotCapturer is the best-effort capture called before mutating a playlist. It must not fail.
type SnapshotCapturer interface {
	CaptureBefore(ctx context.Context, userID, playlistID, name string, uris []string, reason models.SnapshotReason, description string)
}

// AlgorithmLookup resolves reorder algorithms by name.
type AlgorithmLookup interface {
	Get(name string) (reorder.Func, error)
}

// PairLookup finds the archive playlist bound to a production playlist.
type PairLookup interface {
	// GetPairForPlaylist returns [shared.ErrNotFound] when no pair exists.
	GetPairForPlaylist(ctx context.Context, userID, productionPlaylistID string) (*models.ArchivePair, error)
}

// Deps holds the collaborators of an [Executor].
type Deps struct {
	Snapshots  SnapshotCapturer
	Algorithms AlgorithmLookup
	Pairs      PairLookup
	BatchSize  int
	Logger     *log.Logger
}

// Result is the outcome of a successful operation.
type Result struct {
	TracksAdded int
	TracksTotal int
}

// Func is the signature shared by every operation; the executor's dispatch table maps job types to it.
type Func func(ctx context.Context, schedule *models.Schedule, api services.PlaylistAPI) (Result, error)

// Executor runs operations with a fixed set of dependencies.
type Executor struct {
	snapshots  SnapshotCapturer
	algorithms AlgorithmLookup
	pairs      PairLookup
	batchSize  int
	logger     *log.Logger
	rotations  map[models.RotationMode]rotateFunc
}

// New creates an [Executor]. Missing dependencies fall back to no snapshots, the built-in algorithms and
// a batch size of [playlist.BatchSize].
func New(deps Deps) *Executor {
	e := &Executor{
		snapshots:  deps.Snapshots,
		algorithms: deps.Algorithms,
		pairs:      deps.Pairs,
		batchSize:  deps.BatchSize,
		logger:     deps.Logger,
	}
	if e.snapshots == nil {
		e.snapshots = noSnapshots{}
	}
	if e.algorithms == nil {
		e.algorithms = reorder.Default()
	}
	if e.batchSize <= 0 || e.batchSize > playlist.BatchSize {
		e.batchSize = playlist.BatchSize
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	e.logger = shared.WithLogger(e.logger, "component", "operations")
	e.rotations = map[models.RotationMode]rotateFunc{
		models.RotationArchiveOldest: e.archiveOldest,
		models.RotationRefresh:       e.refresh,
		models.RotationSwap:          e.swap,
	}
	return e
}

type noSnapshots struct{}

func (noSnapshots) CaptureBefore(context.Context, string, string, string, []string, models.SnapshotReason, string) {
}

func (e *Executor) capture(ctx context.Context, s *models.Schedule, playlistID, name string, uris []string, reason models.SnapshotReason) {
	desc := fmt.Sprintf("scheduled %s (schedule %s)", s.JobType, s.ID)
	e.snapshots.CaptureBefore(ctx, s.UserID, playlistID, name, uris, reason, desc)
}

// Merge appends every source track not already in the target, de-duplicated within the run, in source order.
//
// Deleted sources are skipped. With no sources the run changes nothing and reports the current total.
func (e *Executor) Merge(ctx context.Context, s *models.Schedule, api services.PlaylistAPI) (Result, error) {
	target, err := api.GetTracks(ctx, s.TargetPlaylistID)
	if err != nil {
		return Result{}, apiError("read target playlist", "target", s.TargetPlaylistID, err)
	}
	existing := playlist.URIs(target)

	if len(s.SourcePlaylistIDs) == 0 {
		e.logger.Info("merge has no source playlists", "schedule", s.ID)
		return Result{TracksTotal: len(existing)}, nil
	}

	e.capture(ctx, s, s.TargetPlaylistID, s.TargetPlaylistName, existing, models.ReasonPreMerge)

	seen := playlist.NewSet(existing)
	var toAdd []string
	for _, sourceID := range s.SourcePlaylistIDs {
		tracks, err := api.GetTracks(ctx, sourceID)
		if err != nil {
			if retry.Classify(err).Category == retry.NotFound {
				e.logger.Warn("source playlist not found, skipping", "schedule", s.ID, "source", sourceID)
				continue
			}
			return Result{}, apiError("read source playlist", "source", sourceID, err)
		}

		for _, t := range tracks {
			if seen.Has(t.URI) {
				continue
			}
			seen.Add(t.URI)
			toAdd = append(toAdd, t.URI)
		}
	}

	if len(toAdd) > 0 {
		if err := playlist.AddInBatches(ctx, api, s.TargetPlaylistID, toAdd, e.batchSize); err != nil {
			return Result{}, apiError("add tracks to target playlist", "target", s.TargetPlaylistID, err)
		}
	}

	return Result{TracksAdded: len(toAdd), TracksTotal: len(existing) + len(toAdd)}, nil
}

// Reorder replaces the target's order with the output of the schedule's algorithm.
func (e *Executor) Reorder(ctx context.Context, s *models.Schedule, api services.PlaylistAPI) (Result, error) {
	algorithm, err := e.algorithms.Get(s.AlgorithmName)
	if err != nil {
		return Result{}, configError("reorder", "invalid reorder configuration", err)
	}

	tracks, err := api.GetTracks(ctx, s.TargetPlaylistID)
	if err != nil {
		return Result{}, apiError("read target playlist", "target", s.TargetPlaylistID, err)
	}
	if len(tracks) == 0 {
		return Result{}, nil
	}

	current := playlist.URIs(tracks)
	e.capture(ctx, s, s.TargetPlaylistID, s.TargetPlaylistName, current, models.ReasonPreReorder)

	ordered, err := algorithm(tracks, s.AlgorithmParams)
	if err != nil {
		return Result{}, configError("reorder", fmt.Sprintf("reorder algorithm %q failed", s.AlgorithmName), err)
	}
	if !isPermutation(current, ordered) {
		return Result{}, configError("reorder", fmt.Sprintf("reorder algorithm %q changed the set of tracks", s.AlgorithmName), nil)
	}

	if err := api.ReplaceTracks(ctx, s.TargetPlaylistID, ordered); err != nil {
		return Result{}, apiError("replace target playlist order", "target", s.TargetPlaylistID, err)
	}

	return Result{TracksTotal: len(ordered)}, nil
}

// MergeAndReorder merges, then reorders the merged playlist.
func (e *Executor) MergeAndReorder(ctx context.Context, s *models.Schedule, api services.PlaylistAPI) (Result, error) {
	merged, err := e.Merge(ctx, s, api)
	if err != nil {
		return Result{}, err
	}
	reordered, err := e.Reorder(ctx, s, api)
	if err != nil {
		return Result{}, err
	}
	return Result{TracksAdded: merged.TracksAdded, TracksTotal: reordered.TracksTotal}, nil
}

func isPermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, uri := range a {
		counts[uri]++
	}
	for _, uri := range b {
		counts[uri]--
		if counts[uri] < 0 {
			return false
		}
	}
	return true
}

// lookupPair maps a missing pair to a configuration error.
func (e *Executor) lookupPair(ctx context.Context, s *models.Schedule) (*models.ArchivePair, error) {
	if e.pairs == nil {
		return nil, configError("rotate", "archive pairs are not configured", nil)
	}
	pair, err := e.pairs.GetPairForPlaylist(ctx, s.UserID, s.TargetPlaylistID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, configError("rotate", fmt.Sprintf("no archive playlist is paired with playlist %s", s.TargetPlaylistID), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load archive pair: %w", err)
	}
	return pair, nil
}
