package services_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/desertthunder/plx/internal/services"
	tu "github.com/desertthunder/plx/internal/testing"
)

func TestSpotifyClientTransport(t *testing.T) {
	ctx := context.Background()

	newClient := func(rt http.RoundTripper) *services.SpotifyClient {
		return services.NewSpotifyClient(&http.Client{Transport: rt}, services.ClientOptions{BaseURL: "http://spotify.test"})
	}

	t.Run("transport failure", func(t *testing.T) {
		client := newClient(tu.NewMockRoundTripper(nil, errors.New("connection refused")))

		_, err := client.GetTracks(ctx, "p1")
		if err == nil || !strings.Contains(err.Error(), "request failed") {
			t.Fatalf("expected request error, got %v", err)
		}
		var httpErr *services.HTTPError
		if errors.As(err, &httpErr) {
			t.Error("transport failures should not look like HTTP status errors")
		}
	})

	t.Run("unreadable success body", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: &tu.FCloser{}}
		client := newClient(tu.NewMockRoundTripper(resp, nil))

		_, err := client.GetTracks(ctx, "p1")
		if err == nil || !strings.Contains(err.Error(), "failed to decode response") {
			t.Fatalf("expected decode error, got %v", err)
		}
	})

	t.Run("unreadable error body keeps the status", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusBadGateway, Header: http.Header{}, Body: &tu.FCloser{}}
		client := newClient(tu.NewMockRoundTripper(resp, nil))

		err := client.AddTracks(ctx, "p1", []string{"spotify:track:a"})
		var httpErr *services.HTTPError
		if !errors.As(err, &httpErr) {
			t.Fatalf("expected HTTPError, got %v", err)
		}
		if httpErr.StatusCode != http.StatusBadGateway || httpErr.Message != "" {
			t.Errorf("unexpected error %+v", httpErr)
		}
	})
}
