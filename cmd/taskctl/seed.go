package main

import (
	"fmt"

	"shifttask-backend/pkg/seed"

	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load templates, escalation rules and directory records from YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := seed.LoadFile(args[0])
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d templates, %d rules, %d employees, %d departments\n",
					args[0], len(f.Templates), len(f.EscalationRules), len(f.Employees), len(f.Departments))
				return nil
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := f.Apply(a.Templates, a.Employees)
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d departments, %d employees, %d templates, %d rules\n",
				res.Departments, res.Employees, res.Templates, res.Rules)
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without writing")
	return cmd
}
