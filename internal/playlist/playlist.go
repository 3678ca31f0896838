// Package playlist holds the batching and URI set helpers shared by the operations and the executor.
package playlist

import (
	"context"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/services"
)

// BatchSize is the default number of URIs sent per write.
const BatchSize = services.MaxURIsPerRequest

// Chunk splits uris into consecutive slices of at most size items. size <= 0 or above [BatchSize] uses [BatchSize].
func Chunk(uris []string, size int) [][]string {
	if size <= 0 || size > BatchSize {
		size = BatchSize
	}
	var chunks [][]string
	for start := 0; start < len(uris); start += size {
		end := min(start+size, len(uris))
		chunks = append(chunks, uris[start:end])
	}
	return chunks
}

// AddInBatches appends uris to the playlist in order, one request per chunk.
func AddInBatches(ctx context.Context, api services.PlaylistAPI, playlistID string, uris []string, size int) error {
	for _, chunk := range Chunk(uris, size) {
		if err := api.AddTracks(ctx, playlistID, chunk); err != nil {
			return err
		}
	}
	return nil
}

// RemoveInBatches removes uris from the playlist, one request per chunk.
func RemoveInBatches(ctx context.Context, api services.PlaylistAPI, playlistID string, uris []string, size int) error {
	for _, chunk := range Chunk(uris, size) {
		if err := api.RemoveTracks(ctx, playlistID, chunk); err != nil {
			return err
		}
	}
	return nil
}

// URIs returns the URI of each track, in order.
func URIs(tracks []models.Track) []string {
	uris := make([]string, len(tracks))
	for i, t := range tracks {
		uris[i] = t.URI
	}
	return uris
}

// Set is a set of URIs.
type Set map[string]struct{}

// NewSet builds a [Set] from uris.
func NewSet(uris []string) Set {
	s := make(Set, len(uris))
	for _, uri := range uris {
		s[uri] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(uri string) bool {
	_, ok := s[uri]
	return ok
}

// Add inserts uri.
func (s Set) Add(uri string) {
	s[uri] = struct{}{}
}

// Difference returns the items of a not present in b, keeping a's order.
func Difference(a, b []string) []string {
	exclude := NewSet(b)
	out := make([]string, 0, len(a))
	for _, uri := range a {
		if !exclude.Has(uri) {
			out = append(out, uri)
		}
	}
	return out
}

// Oldest returns the first n uris. Playlist order is oldest first.
func Oldest(uris []string, n int) []string {
	n = max(0, min(n, len(uris)))
	return append([]string(nil), uris[:n]...)
}

// Newest returns the last n uris.
func Newest(uris []string, n int) []string {
	n = max(0, min(n, len(uris)))
	return append([]string(nil), uris[len(uris)-n:]...)
}
