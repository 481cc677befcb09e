package main

import (
	"context"

	"shifttask-backend/internal/app"
	"shifttask-backend/pkg/config"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskctl",
		Short: "Operate the shift task engine",
		Long: `taskctl runs the scheduled task sweeps on demand, loads template and
escalation seeds, migrates the schema and mints API tokens. It reads the
same environment (.env) as the API server.`,
		SilenceUsage: true,
	}
	root.AddCommand(newSweepCmd(), newSeedCmd(), newMigrateCmd(), newTokenCmd())
	return root
}

// openApp loads the environment config and wires the application.
func openApp(ctx context.Context) (*app.App, error) {
	return app.Open(ctx, config.Load())
}
