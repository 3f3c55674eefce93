package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/digiglu/api-api/internal/config"
	"github.com/digiglu/api-api/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Применить миграции БД и завершиться",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("загрузка конфигурации: %w", err)
		}
		logger := config.SetupLogger(cfg)
		return database.Migrate(cfg, logger)
	},
}
