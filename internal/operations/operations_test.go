package operations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"slices"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/reorder"
	"github.com/desertthunder/plx/internal/services"
	"github.com/desertthunder/plx/internal/shared"
	tu "github.com/desertthunder/plx/internal/testing"
)

type capture struct {
	PlaylistID string
	URIs       []string
	Reason     models.SnapshotReason
}

type recordingCapturer struct {
	mu       sync.Mutex
	captures []capture
}

func (r *recordingCapturer) CaptureBefore(_ context.Context, _, playlistID, _ string, uris []string, reason models.SnapshotReason, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captures = append(r.captures, capture{playlistID, append([]string(nil), uris...), reason})
}

type pairMap map[string]*models.ArchivePair

func (p pairMap) GetPairForPlaylist(_ context.Context, _, productionPlaylistID string) (*models.ArchivePair, error) {
	if pair, ok := p[productionPlaylistID]; ok {
		return pair, nil
	}
	return nil, shared.ErrNotFound
}

func newTestExecutor(pairs pairMap) (*Executor, *recordingCapturer) {
	snapshots := &recordingCapturer{}
	return New(Deps{
		Snapshots: snapshots,
		Pairs:     pairs,
		Logger:    log.New(io.Discard),
	}), snapshots
}

func uriRange(prefix string, n int) []string {
	uris := make([]string, n)
	for i := range uris {
		uris[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return uris
}

func assertKind(t *testing.T, err error, kind ErrorKind) *JobExecutionError {
	t.Helper()
	var jobErr *JobExecutionError
	if !errors.As(err, &jobErr) {
		t.Fatalf("expected JobExecutionError, got %T: %v", err, err)
	}
	if jobErr.Kind != kind {
		t.Errorf("expected kind %s, got %s (%v)", kind, jobErr.Kind, jobErr)
	}
	return jobErr
}

func TestMerge(t *testing.T) {
	ctx := context.Background()

	t.Run("adds new tracks in source order", func(t *testing.T) {
		api := tu.NewFakePlaylistAPI().
			Seed("target", "t1", "t2").
			Seed("s1", "t2", "t3").
			Seed("s2", "t4")
		exec, snapshots := newTestExecutor(nil)
		s := &models.Schedule{ID: "sch", UserID: "u", JobType: models.JobMerge, TargetPlaylistID: "target", SourcePlaylistIDs: models.StringList{"s1", "s2"}}

		result, err := exec.Merge(ctx, s, api)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.TracksAdded != 2 || result.TracksTotal != 4 {
			t.Errorf("unexpected result: %+v", result)
		}
		if got := api.Tracks("target"); !reflect.DeepEqual(got, []string{"t1", "t2", "t3", "t4"}) {
			t.Errorf("unexpected target: %v", got)
		}
		if len(snapshots.captures) != 1 || snapshots.captures[0].Reason != models.ReasonPreMerge {
			t.Fatalf("expected one pre-merge snapshot, got %+v", snapshots.captures)
		}
		if !reflect.DeepEqual(snapshots.captures[0].URIs, []string{"t1", "t2"}) {
			t.Errorf("snapshot should hold the pre-merge order, got %v", snapshots.captures[0].URIs)
		}
	})

	t.Run("dedupes across sources within the run", func(t *testing.T) {
		api := tu.NewFakePlaylistAPI().
			Seed("target").
			Seed("s1", "x", "y", "x").
			Seed("s2", "y", "z")
		exec, _ := newTestExecutor(nil)
		s := &models.Schedule{ID: "sch", JobType: models.JobMerge, TargetPlaylistID: "target", SourcePlaylistIDs: models.StringList{"s1", "s2"}}

		result, err := exec.Merge(ctx, s, api)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TracksAdded != 3 {
			t.Errorf("expected 3 added, got %d", result.TracksAdded)
		}
		if got := api.Tracks("target"); !reflect.DeepEqual(got, []string{"x", "y", "z"}) {
			t.Errorf("unexpected target: %v", got)
		}
	})

	t.Run("running twice adds nothing the second time", func(t *testing.T) {
		api := tu.NewFakePlaylistAPI().Seed("target", "a").Seed("s1", "a", "b")
		exec, _ := newTestExecutor(nil)
		s := &models.Schedule{ID: "sch", JobType: models.JobMerge, TargetPlaylistID: "target", SourcePlaylistIDs: models.StringList{"s1"}}

		if _, err := exec.Merge(ctx, s, api); err != nil {
			t.Fatalf("first run failed: %v", err)
		}
		result, err := exec.Merge(ctx, s, api)
		if err != nil {
			t.Fatalf("second run failed: %v", err)
		}
		if result.TracksAdded != 0 || result.TracksTotal != 2 {
			t.Errorf("unexpected result: %+v", result)
		}
	})

	t.Run("no sources is a no-op", func(t *testing.T) {
		api := tu.NewFakePlaylistAPI().Seed("target", "a", "b")
		exec, snapshots := newTestExecutor(nil)
		s := &models.Schedule{ID: "sch", JobType: models.JobMerge, TargetPlaylistID: "target"}

		result, err := exec.Merge(ctx, s, api)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TracksAdded != 0 || result.TracksTotal != 2 {
			t.Errorf("unexpected result: %+v", result)
		}
		if len(api.Writes()) != 0 || len(snapshots.captures) != 0 {
			t.Error("no-op merge should not write or snapshot")
		}
	})

	t.Run("missing source is skipped", func(t *testing.T) {
		api := tu.NewFakePlaylistAPI().Seed("target", "a").Seed("s2", "b")
		exec, _ := newTestExecutor(nil)
		s := &models.Schedule{ID: "sch", JobType: models.JobMerge, TargetPlaylistID: "target", SourcePlaylistIDs: models.StringList{"gone", "s2"}}

		result, err := exec.Merge(ctx, s, api)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TracksAdded != 1 {
			t.Errorf("expected 1 added, got %d", result.TracksAdded)
		}
	})

	t.Run("missing target is a not found error", func(t *testing.T) {
		api := tu.NewFakePlaylistAPI().Seed("s1", "a")
		exec, _ := newTestExecutor(nil)
		s := &models.Schedule{ID: "sch", JobType: models.JobMerge, TargetPlaylistID: "target", SourcePlaylistIDs: models.StringList{"s1"}}

		_, err := exec.Merge(ctx, s, api)
		jobErr := assertKind(t, err, KindNotFound)
		if jobErr.Message != "target playlist target not found; it may have been deleted" {
			t.Errorf("unexpected message: %q", jobErr.Message)
		}
	})

	t.Run("source server failure aborts", func(t *testing.T) {
		api := tu.NewFakePlaylistAPI().Seed("target", "a").Seed("s1", "b")
		api.FailNext(tu.MethodGetTracks, "s1", &services.HTTPError{StatusCode: http.StatusBadGateway, Message: "bad gateway"})
		exec, _ := newTestExecutor(nil)
		s := &models.Schedule{ID: "sch", JobType: models.JobMerge, TargetPlaylistID: "target", SourcePlaylistIDs: models.StringList{"s1"}}

		_, err := exec.Merge(ctx, s, api)
		assertKind(t, err, KindAPI)
		if len(api.Writes()) != 0 {
			t.Error("aborted merge should not write")
		}
	})

	t.Run("large merges are batched", func(t *testing.T) {
		api := tu.NewFakePlaylistAPI().Seed("target").Seed("s1", uriRange("n", 250)...)
		exec, _ := newTestExecutor(nil)
		s := &models.Schedule{ID: "sch", JobType: models.JobMerge, TargetPlaylistID: "target", SourcePlaylistIDs: models.StringList{"s1"}}

		result, err := exec.Merge(ctx, s, api)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TracksAdded != 250 {
			t.Errorf("expected 250 added, got %d", result.TracksAdded)
		}
		if calls := api.CallCount(tu.MethodAddTracks); calls != 3 {
			t.Errorf("expected 3 add calls, got %d", calls)
		}
		for _, w := range api.Writes() {
			if len(w.URIs) > 100 {
				t.Errorf("batch of %d exceeds limit", len(w.URIs))
			}
		}
	})
}

func TestReorder(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces order with a permutation", func(t *testing.T) {
		api := tu.NewFakePlaylistAPI().Seed("target", "a", "b", "c")
		exec, snapshots := newTestExecutor(nil)
		s := &models.Schedule{ID: "sch", JobType: models.JobReorder, TargetPlaylistID: "target", AlgorithmName: "reverse"}

		result, err := exec.Reorder(ctx, s, api)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TracksAdded != 0 || result.TracksTotal != 3 {
			t.Errorf("unexpected result: %+v", result)
		}
		if got := api.Tracks("target"); !reflect.DeepEqual(got, []string{"c", "b", "a"}) {
			t.Errorf("unexpected order: %v", got)
		}
		if len(snapshots.captures) != 1 || snapshots.captures[0].Reason != models.ReasonPreReorder {
			t.Errorf("expected pre-reorder snapshot, got %+v", snapshots.captures)
		}
	})

	t.Run("shuffle keeps the multiset", func(t *testing.T) {
		uris := uriRange("s", 40)
		api := tu.NewFakePlaylistAPI().Seed("target", uris...)
		exec, _ := newTestExecutor(nil)
		s := &models.Schedule{ID: "sch", JobType: models.JobReorder, TargetPlaylistID: "target", AlgorithmName: "shuffle", AlgorithmParams: models.Params{"seed": 7}}

		if _, err := exec.Reorder(ctx, s, api); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := api.Tracks("target")
		slices.Sort(got)
		want := append([]string(nil), uris...)
		slices.Sort(want)
		if !reflect.DeepEqual(got, want) {
			t.Error("shuffle changed the set of tracks")
		}
	})

	t.Run("empty playlist is a no-op", func(t *testing.T) {
		api := tu.NewFakePlaylistAPI().Seed("target")
		exec, snapshots := newTestExecutor(nil)
		s := &models.Schedule{ID: "sch", JobType: models.JobReorder, TargetPlaylistID: "target", AlgorithmName: "reverse"}

		result, err := exec.Reorder(ctx, s, api)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != (Result{}) || len(api.Writes()) != 0 || len(snapshots.captures) != 0 {
			t.Errorf("expected untouched playlist, got %+v", result)
		}
	})

	t.Run("unknown algorithm is a configuration error", func(t *testing.T) {
		api := tu.NewFakePlaylistAPI().Seed("target", "a")
		exec, _ := newTestExecutor(nil)
		s := &models.Schedule{ID: "sch", JobType: models.JobReorder, TargetPlaylistID: "target", AlgorithmName: "nope"}

		_, err := exec.Reorder(ctx, s, api)
		assertKind(t, err, KindConfiguration)
		if !errors.Is(err, reorder.ErrUnknownAlgorithm) {
			t.Errorf("expected ErrUnknownAlgorithm in chain, got %v", err)
		}
		if api.CallCount(tu.MethodGetTracks) != 0 {
			t.Error("configuration errors should fail before reading the playlist")
		}
	})

	t.Run("algorithm that drops tracks is rejected", func(t *testing.T) {
		registry := reorder.NewRegistry()
		registry.Register("drop", func(tracks []models.Track, _ map[string]any) ([]string, error) {
			return []string{tracks[0].URI}, nil
		})
		api := tu.NewFakePlaylistAPI().Seed("target", "a", "b")
		exec := New(Deps{Algorithms: registry, Logger: log.New(io.Discard)})
		s := &models.Schedule{ID: "sch", JobType: models.JobReorder, TargetPlaylistID: "target", AlgorithmName: "drop"}

		_, err := exec.Reorder(ctx, s, api)
		assertKind(t, err, KindConfiguration)
		if got := api.Tracks("target"); len(got) != 2 {
			t.Errorf("playlist should be untouched, got %v", got)
		}
	})
}

func TestMergeAndReorder(t *testing.T) {
	api := tu.NewFakePlaylistAPI().Seed("target", "a").Seed("s1", "b", "c")
	exec, snapshots := newTestExecutor(nil)
	s := &models.Schedule{
		ID: "sch", JobType: models.JobMergeAndReorder, TargetPlaylistID: "target",
		SourcePlaylistIDs: models.StringList{"s1"}, AlgorithmName: "reverse",
	}

	result, err := exec.MergeAndReorder(context.Background(), s, api)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TracksAdded != 2 || result.TracksTotal != 3 {
		t.Errorf("unexpected result: %+v", result)
	}
	if got := api.Tracks("target"); !reflect.DeepEqual(got, []string{"c", "b", "a"}) {
		t.Errorf("unexpected order: %v", got)
	}
	if len(snapshots.captures) != 2 {
		t.Errorf("expected a snapshot per phase, got %d", len(snapshots.captures))
	}
}

func TestRotate(t *testing.T) {
	ctx := context.Background()
	pairs := pairMap{"prod": {UserID: "u", ProductionPlaylistID: "prod", ArchivePlaylistID: "arch"}}

	rotateSchedule := func(mode models.RotationMode, count int) *models.Schedule {
		return &models.Schedule{
			ID: "sch", UserID: "u", JobType: models.JobRotate, TargetPlaylistID: "prod",
			RotationMode: mode, RotationCount: count,
		}
	}

	t.Run("archive oldest", func(t *testing.T) {
		api := tu.NewFakePlaylistAPI().Seed("prod", "a", "b", "c", "d", "e").Seed("arch", "z")
		exec, snapshots := newTestExecutor(pairs)

		result, err := exec.Rotate(ctx, rotateSchedule(models.RotationArchiveOldest, 2), api)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TracksTotal != 3 {
			t.Errorf("expected total 3, got %d", result.TracksTotal)
		}
		if got := api.Tracks("arch"); !reflect.DeepEqual(got, []string{"z", "a", "b"}) {
			t.Errorf("unexpected archive: %v", got)
		}
		if got := api.Tracks("prod"); !reflect.DeepEqual(got, []string{"c", "d", "e"}) {
			t.Errorf("unexpected production: %v", got)
		}
		if len(snapshots.captures) != 1 || snapshots.captures[0].Reason != models.ReasonPreRotate {
			t.Errorf("expected pre-rotate snapshot, got %+v", snapshots.captures)
		}
	})

	t.Run("count larger than production", func(t *testing.T) {
		api := tu.NewFakePlaylistAPI().Seed("prod", "a", "b").Seed("arch")
		exec, _ := newTestExecutor(pairs)

		result, err := exec.Rotate(ctx, rotateSchedule(models.RotationArchiveOldest, 10), api)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TracksTotal != 0 || len(api.Tracks("arch")) != 2 {
			t.Errorf("unexpected result %+v archive %v", result, api.Tracks("arch"))
		}
	})

	t.Run("empty production is a no-op", func(t *testing.T) {
		api := tu.NewFakePlaylistAPI().Seed("prod").Seed("arch", "x")
		exec, _ := newTestExecutor(pairs)

		result, err := exec.Rotate(ctx, rotateSchedule(models.RotationSwap, 3), api)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != (Result{}) || len(api.Writes()) != 0 {
			t.Errorf("expected no writes, got %+v %v", result, api.Writes())
		}
	})

	t.Run("refresh", func(t *testing.T) {
		api := tu.NewFakePlaylistAPI().Seed("prod", "a", "b", "c").Seed("arch", "a", "x", "y", "z")
		exec, _ := newTestExecutor(pairs)

		result, err := exec.Rotate(ctx, rotateSchedule(models.RotationRefresh, 2), api)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TracksAdded != 2 || result.TracksTotal != 3 {
			t.Errorf("unexpected result: %+v", result)
		}
		if got := api.Tracks("prod"); !reflect.DeepEqual(got, []string{"c", "y", "z"}) {
			t.Errorf("unexpected production: %v", got)
		}
		if got := api.Tracks("arch"); len(got) != 4 {
			t.Errorf("refresh should not modify the archive, got %v", got)
		}
	})

	t.Run("refresh with nothing available", func(t *testing.T) {
		api := tu.NewFakePlaylistAPI().Seed("prod", "a", "b").Seed("arch", "a", "b")
		exec, _ := newTestExecutor(pairs)

		result, err := exec.Rotate(ctx, rotateSchedule(models.RotationRefresh, 2), api)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TracksAdded != 0 || result.TracksTotal != 2 || len(api.Writes()) != 0 {
			t.Errorf("expected no-op, got %+v %v", result, api.Writes())
		}
	})

	t.Run("swap", func(t *testing.T) {
		api := tu.NewFakePlaylistAPI().Seed("prod", "a", "b", "c").Seed("arch", "x", "y")
		exec, _ := newTestExecutor(pairs)

		result, err := exec.Rotate(ctx, rotateSchedule(models.RotationSwap, 3), api)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TracksAdded != 2 || result.TracksTotal != 3 {
			t.Errorf("unexpected result: %+v", result)
		}
		if got := api.Tracks("prod"); !reflect.DeepEqual(got, []string{"c", "x", "y"}) {
			t.Errorf("unexpected production: %v", got)
		}
		if got := api.Tracks("arch"); !reflect.DeepEqual(got, []string{"a", "b"}) {
			t.Errorf("unexpected archive: %v", got)
		}
	})

	t.Run("swap with nothing available", func(t *testing.T) {
		api := tu.NewFakePlaylistAPI().Seed("prod", "a").Seed("arch", "a")
		exec, _ := newTestExecutor(pairs)

		if _, err := exec.Rotate(ctx, rotateSchedule(models.RotationSwap, 1), api); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(api.Writes()) != 0 {
			t.Errorf("expected no writes, got %v", api.Writes())
		}
	})

	t.Run("invalid mode", func(t *testing.T) {
		api := tu.NewFakePlaylistAPI().Seed("prod", "a")
		exec, _ := newTestExecutor(pairs)

		_, err := exec.Rotate(ctx, rotateSchedule("sideways", 1), api)
		assertKind(t, err, KindConfiguration)
		if api.CallCount(tu.MethodGetTracks) != 0 {
			t.Error("invalid mode should fail before any API call")
		}
	})

	t.Run("missing pair", func(t *testing.T) {
		api := tu.NewFakePlaylistAPI().Seed("prod", "a")
		exec, _ := newTestExecutor(pairMap{})

		_, err := exec.Rotate(ctx, rotateSchedule(models.RotationArchiveOldest, 1), api)
		assertKind(t, err, KindConfiguration)
		if api.CallCount(tu.MethodGetTracks) != 0 {
			t.Error("missing pair should fail before any API call")
		}
	})

	t.Run("deleted archive", func(t *testing.T) {
		api := tu.NewFakePlaylistAPI().Seed("prod", "a")
		exec, _ := newTestExecutor(pairs)

		_, err := exec.Rotate(ctx, rotateSchedule(models.RotationRefresh, 1), api)
		jobErr := assertKind(t, err, KindNotFound)
		if jobErr.Message != "archive playlist arch not found; it may have been deleted" {
			t.Errorf("unexpected message: %q", jobErr.Message)
		}
	})
}
