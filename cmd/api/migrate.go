package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diagnosis/bistro-api/pkg/config"
	"github.com/diagnosis/bistro-api/pkg/database"
	"github.com/diagnosis/bistro-api/pkg/logger"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := database.RunMigrations(cfg.Database.URL); err != nil {
				return err
			}
			logger.Info("Migrations applied")
			return nil
		},
	})

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := rollbackSteps(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := database.RollbackMigrations(cfg.Database.URL, steps); err != nil {
				return err
			}
			logger.Info("Migrations rolled back", "steps", steps)
			return nil
		},
	}
	down.Flags().IntP("steps", "n", 1, "Number of migrations to roll back")
	cmd.AddCommand(down)

	return cmd
}

func rollbackSteps(cmd *cobra.Command) (int, error) {
	steps, err := cmd.Flags().GetInt("steps")
	if err != nil {
		return 0, fmt.Errorf("read --steps: %w", err)
	}
	if steps <= 0 {
		return 0, fmt.Errorf("--steps must be positive, got %d", steps)
	}
	return steps, nil
}
