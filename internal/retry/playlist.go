package retry

import (
	"context"
	"fmt"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/services"
)

// PlaylistClient is a [services.PlaylistAPI] whose every call goes through a retry [Client].
type PlaylistClient struct {
	api   services.PlaylistAPI
	retry *Client
}

// NewPlaylistClient decorates api.
func NewPlaylistClient(api services.PlaylistAPI, retry *Client) *PlaylistClient {
	return &PlaylistClient{api: api, retry: retry}
}

// Unwrap returns the decorated API.
func (p *PlaylistClient) Unwrap() services.PlaylistAPI {
	return p.api
}

func (p *PlaylistClient) GetTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	return Call(ctx, p.retry, fmt.Sprintf("get tracks %s", playlistID), func(ctx context.Context) ([]models.Track, error) {
		return p.api.GetTracks(ctx, playlistID)
	})
}

func (p *PlaylistClient) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	return p.retry.Do(ctx, fmt.Sprintf("add %d tracks to %s", len(uris), playlistID), func(ctx context.Context) error {
		return p.api.AddTracks(ctx, playlistID, uris)
	})
}

func (p *PlaylistClient) RemoveTracks(ctx context.Context, playlistID string, uris []string) error {
	return p.retry.Do(ctx, fmt.Sprintf("remove %d tracks from %s", len(uris), playlistID), func(ctx context.Context) error {
		return p.api.RemoveTracks(ctx, playlistID, uris)
	})
}

func (p *PlaylistClient) ReplaceTracks(ctx context.Context, playlistID string, uris []string) error {
	return p.retry.Do(ctx, fmt.Sprintf("replace tracks of %s", playlistID), func(ctx context.Context) error {
		return p.api.ReplaceTracks(ctx, playlistID, uris)
	})
}

var _ services.PlaylistAPI = (*PlaylistClient)(nil)
