package main

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"resume-matcher/internal/shared/storage/db"
)

var errNoDatabase = errors.New("DATABASE_URL is required for migrations")

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage session table migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return migrate(cmd.Context(), "up", db.RunMigrations)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return migrate(cmd.Context(), "down", db.RollbackMigration)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the applied migration version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return migrate(cmd.Context(), "status", func(ctx context.Context, sqlDB *sql.DB) error {
			version, err := db.MigrationVersion(ctx, sqlDB)
			if err != nil {
				return err
			}
			cmd.Printf("migration version: %d\n", version)
			return nil
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

func migrate(ctx context.Context, direction string, step func(context.Context, *sql.DB) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return errNoDatabase
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		logger.Error("failed to connect database", zap.Error(err))
		return err
	}
	defer sqlDB.Close()

	if err := step(ctx, sqlDB); err != nil {
		logger.Error("migration failed", zap.String("direction", direction), zap.Error(err))
		return err
	}
	logger.Info("migration complete", zap.String("direction", direction))
	return nil
}
