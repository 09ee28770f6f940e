package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nerrad567/controlhub-core/internal/layout"
)

func newLayoutCmd(configPath *string) *cobra.Command {
	var regenerate bool

	cmd := &cobra.Command{
		Use:   "layout <controller-id>",
		Short: "Print a controller's dashboard as JSON",
		Long: `layout prints the stored dashboard for a controller, generating one
from its modules and rule groups when none exists yet.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.registry.RefreshCache(cmd.Context()); err != nil {
				return fmt.Errorf("loading controllers: %w", err)
			}
			return printLayout(cmd.Context(), a.dashboards, cmd.OutOrStdout(), args[0], regenerate)
		},
	}
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "discard the stored dashboard and generate a fresh one")
	return cmd
}

// dashboardSource is the part of layout.Service the command reads.
type dashboardSource interface {
	Dashboard(ctx context.Context, controllerID string) (*layout.Dashboard, error)
	Regenerate(ctx context.Context, controllerID string) (*layout.Dashboard, error)
}

func printLayout(ctx context.Context, svc dashboardSource, out io.Writer, controllerID string, regenerate bool) error {
	get := svc.Dashboard
	if regenerate {
		get = svc.Regenerate
	}
	d, err := get(ctx, controllerID)
	if err != nil {
		return fmt.Errorf("loading dashboard for %s: %w", controllerID, err)
	}
	return writeJSON(out, d)
}
