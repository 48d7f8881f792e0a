package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"resumeEditor/internal/config"
	"resumeEditor/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "运维工具：数据库迁移与开发令牌签发",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logging.New(cfg.Log)
	return cfg, nil
}
