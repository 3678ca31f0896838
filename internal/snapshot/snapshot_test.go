package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plx/internal/models"
)

type fakeStore struct {
	enabled    bool
	prefErr    error
	createErr  error
	panicOnGet bool
	created    []*models.Snapshot
}

func (f *fakeStore) IsAutoSnapshotEnabled(ctx context.Context, userID string) (bool, error) {
	if f.panicOnGet {
		panic("store exploded")
	}
	return f.enabled, f.prefErr
}

func (f *fakeStore) CreateSnapshot(ctx context.Context, s *models.Snapshot) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, s)
	return nil
}

func TestGate(t *testing.T) {
	ctx := context.Background()
	uris := []string{"spotify:track:a", "spotify:track:b"}

	t.Run("captures when enabled", func(t *testing.T) {
		store := &fakeStore{enabled: true}
		gate := NewGate(store, log.New(io.Discard))

		gate.CaptureBefore(ctx, "u1", "p1", "Daily", uris, models.ReasonPreMerge, "before merge")

		if len(store.created) != 1 {
			t.Fatalf("expected one snapshot, got %d", len(store.created))
		}
		snap := store.created[0]
		if snap.TrackCount != 2 || snap.Reason != models.ReasonPreMerge || snap.PlaylistName != "Daily" {
			t.Errorf("unexpected snapshot %+v", snap)
		}
	})

	t.Run("copies the uri slice", func(t *testing.T) {
		store := &fakeStore{enabled: true}
		gate := NewGate(store, log.New(io.Discard))
		input := []string{"spotify:track:a"}

		gate.CaptureBefore(ctx, "u1", "p1", "", input, models.ReasonPreReorder, "")
		input[0] = "mutated"

		if store.created[0].TrackURIs[0] != "spotify:track:a" {
			t.Error("snapshot should not alias the caller's slice")
		}
	})

	t.Run("disabled preference never creates", func(t *testing.T) {
		store := &fakeStore{enabled: false}
		gate := NewGate(store, log.New(io.Discard))

		gate.CaptureBefore(ctx, "u1", "p1", "", uris, models.ReasonPreRotate, "")

		if len(store.created) != 0 {
			t.Errorf("expected no snapshots, got %d", len(store.created))
		}
	})

	t.Run("empty playlist is a no-op", func(t *testing.T) {
		store := &fakeStore{enabled: true}
		NewGate(store, log.New(io.Discard)).CaptureBefore(ctx, "u1", "p1", "", nil, models.ReasonPreMerge, "")
		if len(store.created) != 0 {
			t.Error("expected no snapshot for empty playlist")
		}
	})

	t.Run("store failures are logged, not returned", func(t *testing.T) {
		tc := map[string]*fakeStore{
			"preference error": {prefErr: errors.New("db down")},
			"create error":     {enabled: true, createErr: errors.New("disk full")},
			"panic":            {panicOnGet: true},
		}
		for name, store := range tc {
			t.Run(name, func(t *testing.T) {
				var buf bytes.Buffer
				gate := NewGate(store, log.New(&buf))

				gate.CaptureBefore(ctx, "u1", "p1", "", uris, models.ReasonPreMerge, "")

				if !strings.Contains(buf.String(), "WARN") {
					t.Errorf("expected warning log, got %q", buf.String())
				}
			})
		}
	})

	t.Run("nil gate is safe", func(t *testing.T) {
		var gate *Gate
		gate.CaptureBefore(ctx, "u1", "p1", "", uris, models.ReasonPreMerge, "")
	})
}
