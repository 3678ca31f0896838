// package services defines the playlist API consumed by the engine and its Spotify implementation
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/plx/internal/models"
)

// PlaylistAPI is the read/write surface of a playlist hosting service.
//
// Every method may fail with a transport error or an [*HTTPError].
type PlaylistAPI interface {
	// GetTracks returns every playable item of the playlist in playlist order.
	GetTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// AddTracks appends uris to the end of the playlist. Callers batch to [MaxURIsPerRequest].
	AddTracks(ctx context.Context, playlistID string, uris []string) error

	// RemoveTracks removes every occurrence of uris from the playlist.
	RemoveTracks(ctx context.Context, playlistID string, uris []string) error

	// ReplaceTracks overwrites the playlist so its items are exactly uris, in order.
	ReplaceTracks(ctx context.Context, playlistID string, uris []string) error
}

// MaxURIsPerRequest is the largest number of items the API accepts in a single write.
const MaxURIsPerRequest = 100

// HTTPError is a non-2xx response from the playlist API.
type HTTPError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration // parsed from the Retry-After header, zero when absent
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("spotify API error: status %d: %s", e.StatusCode, e.Message)
}
