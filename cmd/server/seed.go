package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/OpenNSW/flowtrack/internal/config"
	"github.com/OpenNSW/flowtrack/internal/database"
	"github.com/OpenNSW/flowtrack/internal/workflow"
	"github.com/OpenNSW/flowtrack/internal/workflow/seed"
)

const seedActor = "system:seed"

func seedFileFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "seed-file",
		Usage:    "YAML file of workflow templates and status templates to create",
		Required: required,
		Sources:  cli.EnvVars("SEED_FILE"),
	}
}

func newSeedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Create the templates of a YAML seed file that do not exist yet",
		Flags: []cli.Flag{seedFileFlag(true)},
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			db, err := database.New(&cfg.Database, isDebug(command))
			if err != nil {
				return err
			}
			defer func() {
				if err := database.Close(db); err != nil {
					slog.Error("failed to close database", "error", err)
				}
			}()
			if err := database.Migrate(db); err != nil {
				return err
			}

			m := workflow.NewManager(workflow.Options{DB: db, QueryTimeout: cfg.Database.QueryTimeout()})
			return runSeed(ctx, m, command.String("seed-file"))
		},
	}
}

func runSeed(ctx context.Context, m *workflow.Manager, path string) error {
	file, err := seed.LoadFile(path)
	if err != nil {
		return err
	}

	res, err := seed.NewSeeder(m.Engine(), seedActor).Apply(ctx, file)
	if err != nil {
		return fmt.Errorf("failed to apply seed file %s: %w", path, err)
	}

	slog.Info("seed applied",
		"file", path,
		"templatesCreated", res.TemplatesCreated,
		"templatesSkipped", res.TemplatesSkipped,
		"statusTemplatesCreated", res.StatusTemplatesCreated,
		"statusTemplatesSkipped", res.StatusTemplatesSkipped,
	)
	return nil
}
