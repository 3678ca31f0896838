// Package reorder provides named track-ordering algorithms.
//
// An algorithm is a pure function from tracks and parameters to an ordered list of URIs. Every built-in
// returns a permutation of its input.
package reorder

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
	"strconv"
	"sync"

	"github.com/desertthunder/plx/internal/models"
)

// ErrUnknownAlgorithm is returned by [Registry.Get] for names that were never registered.
var ErrUnknownAlgorithm = errors.New("unknown reorder algorithm")

// Func orders tracks. params come from the schedule and may be empty.
type Func func(tracks []models.Track, params map[string]any) ([]string, error)

// Registry maps algorithm names to functions.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: map[string]Func{}}
}

// Default returns a registry holding the built-in algorithms.
func Default() *Registry {
	r := NewRegistry()
	r.Register("shuffle", Shuffle)
	r.Register("reverse", Reverse)
	r.Register("artist_spread", ArtistSpread)
	r.Register("recently_added", RecentlyAdded)
	return r
}

// Register adds or replaces an algorithm.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Get looks up name.
func (r *Registry) Get(name string) (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	return fn, nil
}

// Names lists registered algorithms in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func uris(tracks []models.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.URI
	}
	return out
}

// Shuffle returns a uniformly random order. An integer "seed" param makes it deterministic.
func Shuffle(tracks []models.Track, params map[string]any) ([]string, error) {
	out := uris(tracks)

	var rng *rand.Rand
	if raw, ok := params["seed"]; ok {
		seed, err := toUint64(raw)
		if err != nil {
			return nil, fmt.Errorf("shuffle: invalid seed: %w", err)
		}
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out, nil
}

// Reverse flips the current order.
func Reverse(tracks []models.Track, _ map[string]any) ([]string, error) {
	out := uris(tracks)
	slices.Reverse(out)
	return out, nil
}

// ArtistSpread interleaves artists round-robin so the same artist rarely plays twice in a row.
//
// Artists are visited in order of first appearance; each artist's tracks keep their relative order.
func ArtistSpread(tracks []models.Track, _ map[string]any) ([]string, error) {
	var order []string
	groups := map[string][]string{}
	for _, t := range tracks {
		if _, seen := groups[t.Artist]; !seen {
			order = append(order, t.Artist)
		}
		groups[t.Artist] = append(groups[t.Artist], t.URI)
	}

	out := make([]string, 0, len(tracks))
	for len(out) < len(tracks) {
		for _, artist := range order {
			if queue := groups[artist]; len(queue) > 0 {
				out = append(out, queue[0])
				groups[artist] = queue[1:]
			}
		}
	}
	return out, nil
}

// RecentlyAdded puts the most recently added tracks first. Ties keep playlist order.
func RecentlyAdded(tracks []models.Track, _ map[string]any) ([]string, error) {
	sorted := slices.Clone(tracks)
	slices.SortStableFunc(sorted, func(a, b models.Track) int {
		return b.AddedAt.Compare(a.AddedAt)
	})
	return uris(sorted), nil
}

func toUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case int:
		return uint64(n), nil
	case int64:
		return uint64(n), nil
	case float64:
		return uint64(int64(n)), nil
	case string:
		return strconv.ParseUint(n, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
