package main

import (
	"fmt"

	"shifttask-backend/internal/auth"
	"shifttask-backend/pkg/config"

	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var userID, role string
	cmd := &cobra.Command{
		Use:   "token <employee-id>",
		Short: "Mint a bearer token for an employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != auth.RoleWorker && role != auth.RoleManager {
				return fmt.Errorf("role must be %s or %s", auth.RoleWorker, auth.RoleManager)
			}
			cfg := config.Load()
			token, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry).Issue(auth.Identity{
				EmployeeID: args[0],
				UserID:     userID,
				Role:       role,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "linked user id for in-app notifications")
	cmd.Flags().StringVar(&role, "role", auth.RoleWorker, "worker or manager")
	return cmd
}
