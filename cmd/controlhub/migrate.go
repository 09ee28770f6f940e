package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/controlhub-core/internal/infrastructure/config"
	"github.com/nerrad567/controlhub-core/internal/infrastructure/database"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and show their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openConfiguredDB(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // process exits next

			if err := db.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}
			return printMigrationStatus(cmd.Context(), db, cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openConfiguredDB(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // process exits next

			if err := db.MigrateDown(cmd.Context()); err != nil {
				return fmt.Errorf("rolling back: %w", err)
			}
			return printMigrationStatus(cmd.Context(), db, cmd.OutOrStdout())
		},
	})
	return cmd
}

// openConfiguredDB opens the database without migrating it.
func openConfiguredDB(ctx context.Context, configPath string) (*database.DB, error) {
	cfg, err := config.Load(resolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return openDatabase(ctx, cfg)
}

func printMigrationStatus(ctx context.Context, db *database.DB, out io.Writer) error {
	applied, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATUS\tAPPLIED")
	for _, m := range applied {
		fmt.Fprintf(tw, "%s\tapplied\t%s\n", m.Version, m.AppliedAt.UTC().Format(time.RFC3339))
	}
	for _, m := range pending {
		fmt.Fprintf(tw, "%s\tpending\t-\n", m.Version)
	}
	return tw.Flush()
}
