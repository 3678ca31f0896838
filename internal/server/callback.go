package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plx/internal/shared"
	"golang.org/x/oauth2"
)

// CallbackOpts configures [AwaitToken].
type CallbackOpts struct {
	Addr    string
	Handler *OAuthHandler
	Timeout time.Duration // defaults to 2 minutes
	Logger  *log.Logger
	// Ready is called with the bound address once the listener accepts connections.
	Ready func(addr string)
}

// AwaitToken serves the callback handler on a temporary HTTP server and blocks until the
// handler reports a result, the timeout passes or ctx is cancelled. The server is always shut down.
func AwaitToken(ctx context.Context, opts CallbackOpts) (*oauth2.Token, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	router := NewBasicRouter()
	router.Use(Recover(logger), Logging(logger))
	router.Handler(opts.Handler)

	listener, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", opts.Addr, err)
	}

	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error shutting down callback server", "err", err)
		}
	}()

	logger.Info("callback server listening", "addr", listener.Addr().String())
	if opts.Ready != nil {
		opts.Ready(listener.Addr().String())
	}

	timer := time.NewTimer(opts.Timeout)
	defer timer.Stop()

	select {
	case result := <-opts.Handler.Result():
		if result.Err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, result.Err)
		}
		return result.Token, nil
	case err := <-serveErr:
		return nil, fmt.Errorf("callback server failed: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, opts.Timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
