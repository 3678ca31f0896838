package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/plx/internal/shared"
	"github.com/urfave/cli/v3"
)

// LoadConfig reads the config file (embedded defaults when it does not exist), overlays PLX_* environment
// variables and validates the result. It runs before every command.
func (r *Runner) LoadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	r.configPath = path

	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = shared.LoadConfig(path); err != nil {
			return ctx, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return ctx, fmt.Errorf("failed to stat config: %w", err)
	} else {
		r.logger.Debug("config file not found, using defaults", "path", path)
	}

	if err := shared.ApplyEnv(config, cmd.String("env-file")); err != nil {
		return ctx, err
	}
	if err := config.Validate(); err != nil {
		return ctx, err
	}

	r.config = config
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(config.Log.Level))
	return ctx, nil
}

// Setup creates the config file from the embedded template if it is missing, then runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); errors.Is(err, os.ErrNotExist) {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			return err
		}
		r.writePlain("✓ Created %s\n", r.configPath)
	}

	r.logger.Info("initializing database", "driver", r.config.Database.Driver)
	if _, err := r.openStore(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	r.writePlain("✓ Database ready (%s)\n", r.config.Database.Driver)
	if err := r.config.RequireEncryptionKey(); err != nil {
		if !cmd.Bool("generate-key") {
			r.writePlainln("⚠ No encryption key configured. Set security.encryption_key or PLX_ENCRYPTION_KEY, or rerun with --generate-key.")
		} else if err := r.generateKey(); err != nil {
			return err
		}
	}
	r.writePlain("Next steps:\n")
	r.writePlain("1. plx user add --name \"you\"\n")
	r.writePlain("2. plx auth spotify --user <user-id>\n")
	r.writePlain("3. plx schedule add --user <user-id> --job merge --target <playlist> --source <playlist>\n")
	return nil
}

// generateKey writes a fresh encryption secret into the config file.
func (r *Runner) generateKey() error {
	secret, err := shared.GenerateSecret()
	if err != nil {
		return fmt.Errorf("failed to generate encryption key: %w", err)
	}

	config, err := shared.LoadConfig(r.configPath)
	if err != nil {
		return err
	}
	config.Security.EncryptionKey = secret
	if err := shared.SaveConfig(r.configPath, config); err != nil {
		return err
	}

	r.config.Security.EncryptionKey = secret
	return r.writePlain("✓ Generated an encryption key in %s. Losing it makes stored credentials unreadable.\n", r.configPath)
}

// Migrate applies pending migrations, or rolls back the newest one.
func (r *Runner) Migrate(down bool) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		db, err := r.openDB()
		if err != nil {
			return err
		}
		if down {
			if err := shared.RollbackMigration(db); err != nil {
				return err
			}
			return r.writePlain("✓ Rolled back the latest migration\n")
		}
		if err := shared.RunMigrations(db); err != nil {
			return err
		}
		return r.writePlain("✓ Migrations applied\n")
	}
}

// MigrateStatus lists the embedded migrations and whether each one is applied.
func (r *Runner) MigrateStatus(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB()
	if err != nil {
		return err
	}
	states, err := shared.MigrationStatus(db)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(states, true)
	}
	for _, s := range states {
		mark := "pending"
		if s.Applied {
			mark = "applied"
		}
		r.writePlain("%04d  %-12s %s\n", s.Version, s.Name, mark)
	}
	return nil
}
