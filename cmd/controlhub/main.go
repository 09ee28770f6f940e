// controlhub serves a reconciled, cross-controller view of grow-controller
// rule groups and per-controller dashboards.
//
// Subcommands:
//
//	serve      run the HTTP/WebSocket API with periodic reconciliation
//	reconcile  print the reconciled rule groups once and exit
//	layout     print a controller's dashboard
//	migrate    show or roll back database migrations
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/nerrad567/controlhub-core/migrations"
)

// Version information, set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// defaultConfigPath is used when neither --config nor CONTROLHUB_CONFIG is set.
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "controlhub",
		Short: "Cross-controller rule groups and dashboards",
		Long: `controlhub pulls every controller from the backend, merges equivalent
rule groups and rules across controllers, and reports where their values
deviate. Edits made through the API fan out to every controller carrying
the rule.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default $CONTROLHUB_CONFIG or "+defaultConfigPath+")")

	root.AddCommand(
		newServeCmd(&configPath),
		newReconcileCmd(&configPath),
		newLayoutCmd(&configPath),
		newMigrateCmd(&configPath),
	)
	return root
}

// resolveConfigPath picks the flag value, then CONTROLHUB_CONFIG, then the default.
func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv("CONTROLHUB_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
