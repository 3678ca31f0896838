package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/plx/internal/retry"
	"github.com/desertthunder/plx/internal/server"
	"github.com/desertthunder/plx/internal/services"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/desertthunder/plx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SpotifyAuth connects a user's Spotify account.
//
// Starts a local HTTP server, opens the browser for authorization, exchanges the code and stores the
// encrypted refresh token so that scheduled runs can act without the user present.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")

	store, err := r.openStore()
	if err != nil {
		return err
	}
	user, err := store.Users.Get(ctx, userID)
	if err != nil {
		return err
	}

	manager, err := r.openCredentials()
	if err != nil {
		return err
	}
	spotify, err := services.NewSpotifyService(r.config.Credentials.Spotify.Map())
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrMissingCredentials, err)
	}

	state, err := shared.GenerateState()
	if err != nil {
		return fmt.Errorf("failed to generate state token: %w", err)
	}
	authURL := spotify.GetAuthURL(state)

	token, err := server.AwaitToken(ctx, server.CallbackOpts{
		Addr:    r.config.Server.Addr(),
		Handler: server.NewOAuthHandler(spotify, state, "/callback"),
		Timeout: cmd.Duration("timeout"),
		Logger:  r.logger,
		Ready: func(addr string) {
			r.writePlain("→ Opening browser for Spotify authorization...\n")
			if err := shared.OpenBrowser(authURL); err != nil {
				r.logger.Warnf("failed to open browser automatically %v", err)
				r.writePlainln("⚠ Could not open browser automatically.")
				r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
			}
			r.writePlain("→ Waiting for authorization (%s timeout)...\n", cmd.Duration("timeout"))
		},
	})
	if err != nil {
		return err
	}

	if err := manager.StoreCredential(ctx, user.ID, token.RefreshToken); err != nil {
		return err
	}

	r.logger.Info("stored credential", "user", user.ID)
	r.writePlainln("✓ Spotify account connected for %s", user.DisplayName)
	r.writePlain("Scheduled runs for this user can now start. Try: plx spotify playlists --user %s\n", user.ID)
	return nil
}

// AuthStatus reports whether a user has a stored credential and whether it can still be exchanged.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")

	store, err := r.openStore()
	if err != nil {
		return err
	}
	user, err := store.Users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasCredential() {
		return r.writePlain("✗ %s has no connected account. Run: plx auth spotify --user %s\n", user.DisplayName, user.ID)
	}
	if !cmd.Bool("check") {
		return r.writePlain("✓ %s has a stored credential\n", user.DisplayName)
	}

	manager, err := r.openCredentials()
	if err != nil {
		return err
	}
	api, err := manager.GetClient(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", shared.ErrNotAuthenticated, tasks.FailureMessage(err))
	}
	if profiler, ok := unwrapClient(api).(profiler); ok {
		if account, err := profiler.CurrentUser(ctx); err == nil {
			return r.writePlain("✓ %s is authenticated as %s (%s)\n", user.DisplayName, account.DisplayName, account.ID)
		}
	}
	return r.writePlain("✓ %s is authenticated\n", user.DisplayName)
}

type playlistLister interface {
	Playlists(ctx context.Context) ([]services.SpotifySimplePlaylist, error)
}

type profiler interface {
	CurrentUser(ctx context.Context) (*services.SpotifyUser, error)
}

func unwrapClient(api services.PlaylistAPI) services.PlaylistAPI {
	if wrapped, ok := api.(*retry.PlaylistClient); ok {
		return wrapped.Unwrap()
	}
	return api
}

// SpotifyPlaylists lists a user's playlists so their IDs can be used in schedules and archive pairs.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")
	limit := int(cmd.Int("limit"))

	manager, err := r.openCredentials()
	if err != nil {
		return err
	}
	api, err := manager.GetClient(ctx, userID)
	if err != nil {
		return errors.New(tasks.FailureMessage(err))
	}
	lister, ok := unwrapClient(api).(playlistLister)
	if !ok {
		return fmt.Errorf("%w: playlist listing is not supported by this client", shared.ErrNotImplemented)
	}

	r.logger.Infof("listing spotify playlists with limit %v", limit)
	playlists, err := lister.Playlists(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.Tracks.Total)
		r.writePlain("\n")
	}
	return nil
}
