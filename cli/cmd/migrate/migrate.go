package migrate

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compozy/docrag/cli/cmd"
	"github.com/compozy/docrag/cli/helpers"
	"github.com/compozy/docrag/engine/infra/migration"
	"github.com/compozy/docrag/engine/infra/postgres"
	"github.com/compozy/docrag/engine/infra/sqlite"
	appconfig "github.com/compozy/docrag/pkg/config"
	"github.com/compozy/docrag/pkg/logger"
)

var descriptions = map[string]string{
	migration.Up:      "Apply all pending migrations",
	migration.Down:    "Roll back the latest migration",
	migration.Reset:   "Roll back every migration",
	migration.Status:  "Print the migration status",
	migration.Version: "Print the current schema version",
}

// NewMigrateCommand manages the metadata schema of the configured driver.
func NewMigrateCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the document metadata schema",
	}
	for _, name := range migration.Commands {
		sub := name
		command.AddCommand(&cobra.Command{
			Use:   sub,
			Short: descriptions[sub],
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, args []string) error {
				return cmd.ExecuteCommand(c, func(ctx context.Context, _ *cobra.Command, e *cmd.CommandExecutor, _ []string) error {
					report, err := Run(ctx, e.Config, sub)
					if err != nil {
						return err
					}
					return printReport(e, report)
				}, args)
			},
		})
	}
	return command
}

// Run executes a migration command against the metadata store selected by cfg.
func Run(ctx context.Context, cfg *appconfig.Config, command string) (*migration.Report, error) {
	log := logger.FromContext(ctx)
	log.Info("Running migrations", "driver", cfg.Metadata.Driver, "command", command)
	if cfg.Metadata.Driver == "postgres" {
		return postgres.Migrate(ctx, cfg.Database.DSN(), command)
	}
	store, err := sqlite.NewStore(ctx, sqlite.ConfigFrom(&cfg.SQLite))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	defer func() {
		if err := store.Close(ctx); err != nil {
			log.Warn("Failed to close sqlite store", "error", err)
		}
	}()
	return sqlite.Migrate(ctx, store.DB(), command)
}

func printReport(e *cmd.CommandExecutor, report *migration.Report) error {
	if e.Mode() == helpers.ModeJSON {
		return e.Out.JSON(map[string]any{"success": true, "data": report})
	}
	e.Out.Title("migrate %s", report.Command)
	e.Out.Field("Schema version", report.Version)
	for _, step := range report.Steps {
		line := fmt.Sprintf("%-8s %s", step.State, step.Name)
		switch {
		case step.AppliedAt != nil:
			line += "  " + step.AppliedAt.Format("2006-01-02 15:04:05")
		case step.Duration != "":
			line += "  " + step.Duration
		}
		e.Out.Text(line)
	}
	if len(report.Steps) == 0 && report.Command != migration.Version {
		e.Out.Muted("nothing to do")
	}
	return nil
}
