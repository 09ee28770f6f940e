package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nerrad567/controlhub-core/internal/rulegroup"
)

func newReconcileCmd(configPath *string) *cobra.Command {
	var deviantsOnly bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Print the reconciled rule groups as JSON",
		Long: `reconcile loads every controller from the backend (or the stored
snapshot when the backend is unreachable), merges rule groups across
controllers and prints the result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return reconcile(cmd.Context(), a.rules, cmd.OutOrStdout(), deviantsOnly)
		},
	}
	cmd.Flags().BoolVar(&deviantsOnly, "deviants", false, "only print rules whose values differ between controllers")
	return cmd
}

// reconcileSource is the part of rulegroup.Service the command reads.
type reconcileSource interface {
	Reload(ctx context.Context) error
	Groups() ([]rulegroup.GroupSummary, error)
	Group(id int) (rulegroup.GroupView, error)
}

func reconcile(ctx context.Context, svc reconcileSource, out io.Writer, deviantsOnly bool) error {
	if err := svc.Reload(ctx); err != nil {
		return fmt.Errorf("reconciling: %w", err)
	}
	summaries, err := svc.Groups()
	if err != nil {
		return err
	}

	groups := make([]rulegroup.GroupView, 0, len(summaries))
	for _, s := range summaries {
		g, err := svc.Group(s.ID)
		if err != nil {
			return err
		}
		if deviantsOnly {
			kept := g.Rules[:0]
			for _, r := range g.Rules {
				if len(r.Deviants) > 0 {
					kept = append(kept, r)
				}
			}
			if len(kept) == 0 {
				continue
			}
			g.Rules = kept
		}
		groups = append(groups, g)
	}
	return writeJSON(out, groups)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
