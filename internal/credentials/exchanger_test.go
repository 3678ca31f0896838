package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/plx/internal/retry"
	"github.com/desertthunder/plx/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type mockTokenSource struct {
	token *oauth2.Token
	err   error
}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	return m.token, m.err
}

func TestRefreshableTokenSource(t *testing.T) {
	t.Run("does not report the starting token", func(t *testing.T) {
		calls := 0
		source := &refreshableTokenSource{
			source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "a", RefreshToken: "r1"}},
			last:     "r1",
			callback: func(string) { calls++ },
		}

		_, err := source.Token()
		require.NoError(t, err)
		assert.Zero(t, calls)
	})

	t.Run("reports each change once", func(t *testing.T) {
		var seen []string
		mock := &mockTokenSource{token: &oauth2.Token{AccessToken: "a", RefreshToken: "r1"}}
		source := &refreshableTokenSource{source: mock, last: "r1", callback: func(tok string) { seen = append(seen, tok) }}

		mock.token = &oauth2.Token{AccessToken: "b", RefreshToken: "r2"}
		source.Token()
		source.Token()

		assert.Equal(t, []string{"r2"}, seen)
	})

	t.Run("ignores responses without refresh token", func(t *testing.T) {
		calls := 0
		source := &refreshableTokenSource{
			source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "a"}},
			last:     "r1",
			callback: func(string) { calls++ },
		}
		source.Token()
		assert.Zero(t, calls)
	})

	t.Run("handles nil callback", func(t *testing.T) {
		source := &refreshableTokenSource{source: &mockTokenSource{token: &oauth2.Token{AccessToken: "a", RefreshToken: "r2"}}, last: "r1"}
		token, err := source.Token()
		require.NoError(t, err)
		assert.Equal(t, "a", token.AccessToken)
	})

	t.Run("propagates source errors", func(t *testing.T) {
		source := &refreshableTokenSource{
			source:   &mockTokenSource{err: errors.New("token source error")},
			callback: func(string) { t.Error("callback should not be called on error") },
		}
		token, err := source.Token()
		require.Error(t, err)
		assert.Nil(t, token)
	})
}

// accountsServer fakes the token endpoint and one playlist endpoint.
func accountsServer(t *testing.T, tokenStatus int, tokenBody map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "stored-refresh", r.Form.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(tokenStatus)
		json.NewEncoder(w).Encode(tokenBody)
	})
	mux.HandleFunc("/v1/playlists/p1/tracks", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"items":[{"added_at":"2024-01-01T00:00:00Z","track":{"uri":"spotify:track:1","name":"One"}}],"next":null}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testOAuthConfig(srv *httptest.Server) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint: oauth2.Endpoint{
			TokenURL:  srv.URL + "/api/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func TestSpotifyExchanger(t *testing.T) {
	ctx := context.Background()

	t.Run("exchanges and reports rotation", func(t *testing.T) {
		srv := accountsServer(t, http.StatusOK, map[string]any{
			"access_token":  "fresh-access",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "rotated-refresh",
		})
		exchanger := NewSpotifyExchanger(testOAuthConfig(srv), services.ClientOptions{BaseURL: srv.URL + "/v1"}).
			WithHTTPClient(srv.Client())

		api, rotated, err := exchanger.Exchange(ctx, "stored-refresh", nil)
		require.NoError(t, err)
		assert.Equal(t, "rotated-refresh", rotated)

		tracks, err := api.GetTracks(ctx, "p1")
		require.NoError(t, err)
		require.Len(t, tracks, 1)
		assert.Equal(t, "spotify:track:1", tracks[0].URI)
	})

	t.Run("unchanged refresh token is not a rotation", func(t *testing.T) {
		srv := accountsServer(t, http.StatusOK, map[string]any{
			"access_token": "fresh-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
		exchanger := NewSpotifyExchanger(testOAuthConfig(srv), services.ClientOptions{BaseURL: srv.URL + "/v1"}).
			WithHTTPClient(srv.Client())

		_, rotated, err := exchanger.Exchange(ctx, "stored-refresh", nil)
		require.NoError(t, err)
		assert.Empty(t, rotated)
	})

	t.Run("revoked refresh token classifies as expired", func(t *testing.T) {
		srv := accountsServer(t, http.StatusBadRequest, map[string]any{
			"error":             "invalid_grant",
			"error_description": "Refresh token revoked",
		})
		exchanger := NewSpotifyExchanger(testOAuthConfig(srv), services.ClientOptions{}).WithHTTPClient(srv.Client())

		_, _, err := exchanger.Exchange(ctx, "stored-refresh", nil)
		require.Error(t, err)
		assert.Equal(t, retry.CredentialExpired, retry.Classify(err).Category)
		assert.True(t, strings.Contains(err.Error(), "invalid_grant"))
	})
}
