package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/plx/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:    "plx",
		Usage:   "Run scheduled merge, reorder and rotate jobs against your Spotify playlists",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("PLX_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file with PLX_* secrets",
				Value: ".env",
			},
		},
		Before:   runner.LoadConfig,
		After:    func(context.Context, *cli.Command) error { return runner.Close() },
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file if missing, then initialize the database and run migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "generate-key", Usage: "Write a random encryption key to the config file when none is set"},
		},
		Action: r.Setup,
	}
}

func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Commands: []*cli.Command{
			{Name: "up", Usage: "Apply pending migrations", Action: r.Migrate(false)},
			{Name: "down", Usage: "Roll back the latest migration", Action: r.Migrate(true)},
			{
				Name:   "status",
				Usage:  "List migrations and whether each is applied",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}},
				Action: r.MigrateStatus,
			},
		},
	}
}
