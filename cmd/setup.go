package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/spx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the embedded template when missing, then initializes the journal database
// and runs migrations. With --reset it clears the journal after confirmation.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); os.IsNotExist(err) {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			return fmt.Errorf("%w: %w", shared.ErrFilesystem, err)
		}

		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return err
		}
		r.config = config
		r.writePlain("✓ Config written to %s\n", r.configPath)
		r.writePlain("  Set client_id and client_secret, then run 'spx auth'\n")
	} else {
		r.logger.Info("using existing config", "path", r.configPath)
	}

	if r.config.Database.Path == "" {
		r.logger.Info("database.path is empty, journal disabled")
		return nil
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	if _, err := r.Journal(); err != nil {
		return err
	}

	if r.db == nil {
		return r.writePlain("✓ Journal ready\n")
	}

	if cmd.Bool("reset") {
		ok, err := r.Confirmer().Confirm(ctx, fmt.Sprintf("Clear every journal entry in %s?", r.config.Database.Path))
		if err != nil {
			return err
		}
		if ok {
			if err := shared.ResetSchema(r.db); err != nil {
				return fmt.Errorf("failed to reset journal: %w", err)
			}
			r.logger.Info("journal cleared", "database", r.config.Database.Path)
		}
	}

	version, err := shared.SchemaVersion(r.db)
	if err != nil {
		return err
	}
	r.logger.Info("setup complete", "database", r.config.Database.Path, "schema", version)
	return r.writePlain("✓ Journal ready at %s (schema %04d)\n", r.config.Database.Path, version)
}
