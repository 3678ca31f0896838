package credentials

import (
	"context"
	"net/http"
	"sync"

	"github.com/desertthunder/plx/internal/services"
	"golang.org/x/oauth2"
)

// Exchanger trades a long-lived refresh token for an authenticated playlist API.
//
// The second return value is the rotated refresh token issued during the exchange, or "" if unchanged.
// onRotate is called for rotations that happen later, while the returned client refreshes its session.
type Exchanger interface {
	Exchange(ctx context.Context, refreshToken string, onRotate func(newToken string)) (services.PlaylistAPI, string, error)
}

// SpotifyExchanger implements [Exchanger] against the Spotify accounts service.
type SpotifyExchanger struct {
	config     *oauth2.Config
	opts       services.ClientOptions
	httpClient *http.Client
}

// NewSpotifyExchanger creates an exchanger for the OAuth2 application described by config.
func NewSpotifyExchanger(config *oauth2.Config, opts services.ClientOptions) *SpotifyExchanger {
	return &SpotifyExchanger{config: config, opts: opts}
}

// WithHTTPClient sets the client used for token and API requests.
func (e *SpotifyExchanger) WithHTTPClient(c *http.Client) *SpotifyExchanger {
	e.httpClient = c
	return e
}

func (e *SpotifyExchanger) Exchange(ctx context.Context, refreshToken string, onRotate func(string)) (services.PlaylistAPI, string, error) {
	if e.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
	}

	// A token with no access token is expired, so the first Token call performs the refresh.
	source := e.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, "", err
	}

	var rotated string
	current := refreshToken
	if token.RefreshToken != "" && token.RefreshToken != refreshToken {
		rotated = token.RefreshToken
		current = rotated
	}

	tracked := &refreshableTokenSource{source: source, last: current, callback: onRotate}
	client := services.NewSpotifyClient(oauth2.NewClient(ctx, tracked), e.opts)
	return client, rotated, nil
}

// refreshableTokenSource reports refresh-token changes made by the wrapped source.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(refreshToken string)

	mu   sync.Mutex
	last string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.RefreshToken != "" && token.RefreshToken != r.last
	if changed {
		r.last = token.RefreshToken
	}
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token.RefreshToken)
	}
	return token, nil
}
