package main

import (
	"fmt"
	"sort"

	"shifttask-backend/internal/task/scheduler"

	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "sweep [overdue|expiry|handoff|autogen|all]",
		Short:     "Run one scheduled sweep now",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{scheduler.SweepOverdue, scheduler.SweepExpiry, scheduler.SweepHandoff, scheduler.SweepAutogen, scheduler.SweepAll},
		RunE: func(cmd *cobra.Command, args []string) error {
			name := scheduler.SweepAll
			if len(args) == 1 {
				name = args[0]
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Sweeper.Run(cmd.Context(), name)
			keys := make([]string, 0, len(report))
			for k := range report {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%-18s %d\n", k, report[k])
			}
			return err
		},
	}
}
