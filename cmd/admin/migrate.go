package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"resumeEditor/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "创建或更新数据库表结构",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := database.InitDatabase(cfg.Database, slog.Default(), false)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	slog.Info("database migrated", slog.String("db_name", cfg.Database.Name))
	return nil
}
