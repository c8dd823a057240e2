package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/plstore/internal/shared"
	"github.com/desertthunder/plstore/internal/store"
	"github.com/urfave/cli/v3"
)

// Setup writes a starter config when none exists, then opens the database so the
// schema is created (or validated, for an existing file).
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if r.config == nil {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			r.logger.Info("config file not found, creating from template", "path", configPath)
			if err := shared.CreateConfigFile(configPath); err != nil {
				r.logger.Warn("failed to create config file, using defaults", "error", err)
			} else {
				r.logger.Info("config file created", "path", configPath)
			}
		}
	}

	db, err := r.openStore(ctx, cmd)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", db.Path())
	return r.writeOK("Database ready at %s (schema version %d)", db.Path(), store.SchemaVersion)
}

// Clear deletes every playlist and item. It refuses to run without --yes.
func (r *Runner) Clear(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes") {
		return fmt.Errorf("%w: clear deletes everything, pass --yes to confirm", shared.ErrMissingArgument)
	}

	db, err := r.openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.ClearAll(ctx); err != nil {
		return fmt.Errorf("failed to clear database: %w", err)
	}
	return r.writeOK("Cleared all playlists and items from %s", db.Path())
}
