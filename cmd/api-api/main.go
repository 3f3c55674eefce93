// Точка входа api-api — HAL API экспериментов, коллекций API и схем.
// Команды: serve (по умолчанию) — HTTP-сервер, migrate — миграции БД,
// version — версия сборки.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/digiglu/api-api/internal/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "api-api",
		Short: "HAL API экспериментов, коллекций API и схем",
		// Без подкоманды запускается сервер
		RunE:          runServe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd, migrateCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Показать версию",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "api-api %s\n", config.Version)
	},
}
