package main

import (
	"github.com/spf13/cobra"

	"github.com/preceptorhub/preceptor-engine/pkg/config"
	"github.com/preceptorhub/preceptor-engine/pkg/database"
)

var rollbackSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return migrateUp(cfg)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sqlDB, err := database.OpenSQL(cfg.Database.URL())
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		return database.RollbackMigrations(sqlDB, cfg.MigrationsPath, rollbackSteps, logger)
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&rollbackSteps, "steps", 1, "Number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(migrateCmd)
}

func migrateUp(cfg *config.Config) error {
	sqlDB, err := database.OpenSQL(cfg.Database.URL())
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	return database.RunMigrations(sqlDB, cfg.MigrationsPath, logger)
}
