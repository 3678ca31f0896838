package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// CodeExchanger trades an authorization code for a token.
type CodeExchanger interface {
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// OAuthResult is the outcome of a single authorization callback.
type OAuthResult struct {
	Token *oauth2.Token
	Err   error
}

// OAuthHandler serves the authorization-code callback exactly once and publishes the result on [OAuthHandler.Result].
type OAuthHandler struct {
	exchanger CodeExchanger
	state     string
	path      string
	results   chan OAuthResult

	mu   sync.Mutex
	hit  bool
	once sync.Once
}

// NewOAuthHandler creates a handler for path that accepts callbacks carrying state.
func NewOAuthHandler(exchanger CodeExchanger, state, path string) *OAuthHandler {
	if path == "" {
		path = "/callback"
	}
	return &OAuthHandler{
		exchanger: exchanger,
		state:     state,
		path:      path,
		results:   make(chan OAuthResult, 1),
	}
}

func (h *OAuthHandler) Routes() []string {
	return []string{h.path}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.hit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.hit = true
	h.mu.Unlock()

	query := r.URL.Query()
	if query.Get("state") != h.state {
		h.send(OAuthResult{Err: fmt.Errorf("invalid state parameter")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.send(OAuthResult{Err: fmt.Errorf("authorization failed: %s - %s", query.Get("error"), query.Get("error_description"))})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.exchanger.Exchange(r.Context(), code)
	if err != nil {
		h.send(OAuthResult{Err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}
	if token.RefreshToken == "" {
		h.send(OAuthResult{Err: fmt.Errorf("authorization server did not issue a refresh token")})
		http.Error(w, "No refresh token issued", http.StatusBadGateway)
		return
	}

	h.send(OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	successPage.Execute(w, nil)
}

func (h *OAuthHandler) send(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result receives exactly one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}

var successPage = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>plx: account connected</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Account connected</h1>
        <p>Scheduled runs can now act on your playlists. You can close this window.</p>
    </div>
</body>
</html>
`))
