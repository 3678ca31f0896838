package reorder

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/desertthunder/plx/internal/models"
)

func sampleTracks() []models.Track {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	artists := []string{"A", "A", "A", "B", "B", "C"}
	tracks := make([]models.Track, len(artists))
	for i, artist := range artists {
		tracks[i] = models.Track{
			URI:     fmt.Sprintf("spotify:track:%d", i),
			Artist:  artist,
			AddedAt: base.Add(time.Duration(i%3) * time.Hour),
		}
	}
	return tracks
}

func sortedURIs(tracks []models.Track) []string {
	out := uris(tracks)
	slices.Sort(out)
	return out
}

func TestBuiltinsArePermutations(t *testing.T) {
	tracks := sampleTracks()
	registry := Default()

	for _, name := range registry.Names() {
		t.Run(name, func(t *testing.T) {
			fn, err := registry.Get(name)
			if err != nil {
				t.Fatal(err)
			}

			got, err := fn(tracks, map[string]any{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			slices.Sort(got)
			if !reflect.DeepEqual(got, sortedURIs(tracks)) {
				t.Errorf("%s did not return a permutation: %v", name, got)
			}
		})
	}

	t.Run("empty input", func(t *testing.T) {
		for _, name := range registry.Names() {
			fn, _ := registry.Get(name)
			got, err := fn(nil, nil)
			if err != nil || len(got) != 0 {
				t.Errorf("%s(nil) = %v, %v", name, got, err)
			}
		}
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Get("nope"); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("expected ErrUnknownAlgorithm, got %v", err)
	}

	r.Register("identity", func(tracks []models.Track, _ map[string]any) ([]string, error) {
		return uris(tracks), nil
	})
	if _, err := r.Get("identity"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(Default().Names(), []string{"artist_spread", "recently_added", "reverse", "shuffle"}) {
		t.Errorf("unexpected built-ins %v", Default().Names())
	}
}

func TestShuffle(t *testing.T) {
	tracks := sampleTracks()

	t.Run("seed is deterministic", func(t *testing.T) {
		a, err := Shuffle(tracks, map[string]any{"seed": float64(42)})
		if err != nil {
			t.Fatal(err)
		}
		b, _ := Shuffle(tracks, map[string]any{"seed": 42})
		if !reflect.DeepEqual(a, b) {
			t.Errorf("same seed should give same order: %v vs %v", a, b)
		}
	})

	t.Run("invalid seed", func(t *testing.T) {
		if _, err := Shuffle(tracks, map[string]any{"seed": []int{1}}); err == nil {
			t.Error("expected error for invalid seed")
		}
	})
}

func TestReverse(t *testing.T) {
	got, _ := Reverse(sampleTracks()[:3], nil)
	want := []string{"spotify:track:2", "spotify:track:1", "spotify:track:0"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Reverse() = %v, want %v", got, want)
	}
}

func TestArtistSpread(t *testing.T) {
	got, _ := ArtistSpread(sampleTracks(), nil)
	want := []string{
		"spotify:track:0", "spotify:track:3", "spotify:track:5",
		"spotify:track:1", "spotify:track:4",
		"spotify:track:2",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ArtistSpread() = %v, want %v", got, want)
	}
}

func TestRecentlyAdded(t *testing.T) {
	got, _ := RecentlyAdded(sampleTracks(), nil)
	// added offsets by index: 0,1,2,0,1,2 hours
	want := []string{
		"spotify:track:2", "spotify:track:5",
		"spotify:track:1", "spotify:track:4",
		"spotify:track:0", "spotify:track:3",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RecentlyAdded() = %v, want %v", got, want)
	}
}
