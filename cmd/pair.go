package main

import (
	"context"

	"github.com/desertthunder/plx/internal/models"
	"github.com/urfave/cli/v3"
)

// PairAdd binds a production playlist to an archive playlist for rotate schedules.
func (r *Runner) PairAdd(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}

	pair := &models.ArchivePair{
		UserID:                 cmd.String("user"),
		ProductionPlaylistID:   cmd.String("production"),
		ProductionPlaylistName: cmd.String("production-name"),
		ArchivePlaylistID:      cmd.String("archive"),
		ArchivePlaylistName:    cmd.String("archive-name"),
	}
	if err := store.Pairs.Create(ctx, pair); err != nil {
		return err
	}
	return r.writePlain("✓ Paired %s → archive %s (%s)\n", pair.ProductionPlaylistID, pair.ArchivePlaylistID, pair.ID)
}

// PairList lists a user's archive pairs.
func (r *Runner) PairList(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	pairs, err := store.Pairs.List(ctx, cmd.String("user"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(pairs, cmd.Bool("pretty"))
	}
	if len(pairs) == 0 {
		return r.writePlain("No archive pairs.\n")
	}
	for _, p := range pairs {
		r.writePlain("%s  %s → %s\n", p.ID, orDash(p.ProductionPlaylistName+" "+p.ProductionPlaylistID), p.ArchivePlaylistID)
	}
	return nil
}

// PairDelete removes an archive pair.
func (r *Runner) PairDelete(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	id, err := idArg(cmd)
	if err != nil {
		return err
	}
	if err := store.Pairs.Delete(ctx, cmd.String("user"), id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted pair %s\n", id)
}
