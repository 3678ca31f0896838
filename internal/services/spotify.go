// Spotify API implementation of [PlaylistAPI]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/plx/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	defaultRedirectURI = "http://127.0.0.1:3000/callback"
)

// SpotifyScopes are the scopes requested at login; reading and rewriting private playlists.
var SpotifyScopes = []string{
	"user-read-private",
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-public",
	"playlist-modify-private",
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	Album   SpotifyAlbum    `json:"album"`
	URI     string          `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
//
// Track is nil for items that are no longer available.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	IsLocal bool          `json:"is_local"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPaginatedPlaylistTracks is one page of /playlists/{id}/tracks.
type SpotifyPaginatedPlaylistTracks struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Public bool                `json:"public"`
	Tracks simplePlaylistTrack `json:"tracks"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifySimplePlaylist `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
	Next   *string                 `json:"next"`
}

type spotifyErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyService holds the OAuth2 application configuration for Spotify.
//
// It performs the interactive login and builds a [SpotifyClient] from any authenticated [http.Client].
type SpotifyService struct {
	config *oauth2.Config
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("missing client_id in credentials")
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("missing client_secret in credentials")
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       SpotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{config: config}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// OAuthConfig returns the underlying [oauth2.Config].
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token carrying the long-lived refresh token.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}

// ClientOptions configures a [SpotifyClient].
type ClientOptions struct {
	BaseURL           string  // defaults to the public Web API
	RequestsPerSecond float64 // <= 0 disables pacing
}

// SpotifyClient implements [PlaylistAPI] over an authenticated [http.Client].
type SpotifyClient struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// NewSpotifyClient wraps httpClient, which must attach credentials (see [oauth2.NewClient]).
func NewSpotifyClient(httpClient *http.Client, opts ClientOptions) *SpotifyClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &SpotifyClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		limiter:    limiter,
	}
}

// doRequest performs a JSON request against the Spotify API and decodes the response into result.
func (c *SpotifyClient) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newHTTPError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func newHTTPError(resp *http.Response) *HTTPError {
	httpErr := &HTTPError{StatusCode: resp.StatusCode}

	var body spotifyErrorBody
	if data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil && len(data) > 0 {
		if json.Unmarshal(data, &body) == nil && body.Error.Message != "" {
			httpErr.Message = body.Error.Message
		} else {
			httpErr.Message = strings.TrimSpace(string(data))
		}
	}

	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
			httpErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}

	return httpErr
}

// CurrentUser retrieves the current authenticated user's profile.
func (c *SpotifyClient) CurrentUser(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := c.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Playlists retrieves every playlist of the current user.
func (c *SpotifyClient) Playlists(ctx context.Context) ([]SpotifySimplePlaylist, error) {
	var all []SpotifySimplePlaylist
	limit, offset := 50, 0

	for {
		var page SpotifyPaginatedPlaylists
		endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)
		if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		all = append(all, page.Items...)
		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += limit
	}

	return all, nil
}

// GetTracks reads every page of the playlist, skipping items without a URI.
func (c *SpotifyClient) GetTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	var tracks []models.Track
	limit, offset := MaxURIsPerRequest, 0

	for {
		var page SpotifyPaginatedPlaylistTracks
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", url.PathEscape(playlistID), limit, offset)
		if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if track, ok := toTrack(item); ok {
				tracks = append(tracks, track)
			}
		}

		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += limit
	}

	return tracks, nil
}

func toTrack(item SpotifyPlaylistTrack) (models.Track, bool) {
	if item.Track == nil || item.Track.URI == "" {
		return models.Track{}, false
	}

	track := models.Track{
		URI:   item.Track.URI,
		ID:    item.Track.ID,
		Name:  item.Track.Name,
		Album: item.Track.Album.Name,
	}
	if len(item.Track.Artists) > 0 {
		track.Artist = item.Track.Artists[0].Name
	}
	if addedAt, err := time.Parse(time.RFC3339, item.AddedAt); err == nil {
		track.AddedAt = addedAt
	}
	return track, true
}

// AddTracks appends uris to the playlist. At most [MaxURIsPerRequest] per call.
func (c *SpotifyClient) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return nil
	}
	if len(uris) > MaxURIsPerRequest {
		return fmt.Errorf("cannot add %d tracks in one request (max %d)", len(uris), MaxURIsPerRequest)
	}
	body := map[string]any{"uris": uris}
	return c.doRequest(ctx, http.MethodPost, playlistTracksEndpoint(playlistID), body, nil)
}

// RemoveTracks removes every occurrence of uris. At most [MaxURIsPerRequest] per call.
func (c *SpotifyClient) RemoveTracks(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return nil
	}
	if len(uris) > MaxURIsPerRequest {
		return fmt.Errorf("cannot remove %d tracks in one request (max %d)", len(uris), MaxURIsPerRequest)
	}

	type trackRef struct {
		URI string `json:"uri"`
	}
	refs := make([]trackRef, len(uris))
	for i, uri := range uris {
		refs[i] = trackRef{URI: uri}
	}
	body := map[string]any{"tracks": refs}
	return c.doRequest(ctx, http.MethodDelete, playlistTracksEndpoint(playlistID), body, nil)
}

// ReplaceTracks overwrites the playlist with uris.
//
// The API replaces at most 100 items per call, so the first chunk is written with PUT and the rest appended.
func (c *SpotifyClient) ReplaceTracks(ctx context.Context, playlistID string, uris []string) error {
	first := uris
	if len(first) > MaxURIsPerRequest {
		first = uris[:MaxURIsPerRequest]
	}
	if first == nil {
		first = []string{}
	}

	body := map[string]any{"uris": first}
	if err := c.doRequest(ctx, http.MethodPut, playlistTracksEndpoint(playlistID), body, nil); err != nil {
		return err
	}

	for start := MaxURIsPerRequest; start < len(uris); start += MaxURIsPerRequest {
		end := min(start+MaxURIsPerRequest, len(uris))
		if err := c.AddTracks(ctx, playlistID, uris[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func playlistTracksEndpoint(playlistID string) string {
	return fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
}
