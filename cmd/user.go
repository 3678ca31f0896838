package main

import (
	"context"

	"github.com/desertthunder/plx/internal/models"
	"github.com/urfave/cli/v3"
)

// UserAdd creates a user. Auto-snapshots are on unless --no-snapshots is given.
func (r *Runner) UserAdd(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}

	user := &models.User{DisplayName: cmd.String("name"), AutoSnapshot: !cmd.Bool("no-snapshots")}
	if err := store.Users.Create(ctx, user); err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(user, true)
	}
	r.writePlain("✓ Created user %s (%s)\n", user.DisplayName, user.ID)
	r.writePlain("Connect a Spotify account with: plx auth spotify --user %s\n", user.ID)
	return nil
}

// UserList lists users with their credential and snapshot state.
func (r *Runner) UserList(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	users, err := store.Users.List(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(users, cmd.Bool("pretty"))
	}
	if len(users) == 0 {
		return r.writePlain("No users. Create one with: plx user add --name <name>\n")
	}
	for _, u := range users {
		account := "not connected"
		if u.HasCredential() {
			account = "connected"
		}
		r.writePlain("%s  %s\n", u.ID, u.DisplayName)
		r.writePlain("   Account: %s, auto-snapshots: %s\n", account, onOff(u.AutoSnapshot))
	}
	return nil
}

// UserSnapshots turns auto-snapshots on or off for a user.
func (r *Runner) UserSnapshots(enabled bool) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		store, err := r.openStore()
		if err != nil {
			return err
		}
		userID := cmd.String("user")
		if err := store.Users.SetAutoSnapshot(ctx, userID, enabled); err != nil {
			return err
		}
		return r.writePlain("✓ Auto-snapshots %s for %s\n", onOff(enabled), userID)
	}
}

// UserDelete removes a user together with their schedules, pairs and snapshots.
func (r *Runner) UserDelete(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	userID := cmd.String("user")
	if err := store.Users.Delete(ctx, userID); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted user %s\n", userID)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
