package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/spotimirror/internal/shared"
	"github.com/urfave/cli/v3"
)

// setupCommand creates the config file and the history database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml from the template, then initialize the history database",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recent database migration instead",
			},
		},
		Action: r.Setup,
	}
}

// Setup writes a config template when none exists and runs pending database migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		r.writePlain("✓ Created %s, add your Spotify client_id and client_secret to it\n", configPath)
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		return err
	}
	config.ApplyEnv()
	r.config, r.configPath = config, configPath

	if config.Database.Path == "" {
		r.writePlain("database.path is empty, pass history is disabled\n")
		return nil
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if cmd.Bool("rollback") {
		if err := shared.RollbackMigration(db); err != nil {
			return err
		}
		r.writePlain("✓ Rolled back latest migration in %s\n", config.Database.Path)
		return nil
	}

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.writePlain("✓ Database ready at %s\n", config.Database.Path)
	return nil
}
