package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"focusboard/backend/internal/config"
	"focusboard/backend/internal/db"
)

var (
	configPath    string
	migrationsDir string
)

var rootCmd = &cobra.Command{
	Use:          "focusboard-migrate",
	Short:        "Apply pending schema migrations",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logger := cfg.NewLogger()

		database, err := db.OpenSQLite(cfg.DBPath)
		if err != nil {
			return err
		}
		defer database.Close()

		migrations := db.Migrations()
		if migrationsDir != "" {
			migrations = db.MigrationsFromDir(migrationsDir)
		}
		if err := db.RunMigrations(database, migrations); err != nil {
			return err
		}

		logger.Info("migrations applied", "db", cfg.DBPath)
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a config file")
	rootCmd.Flags().StringVar(&migrationsDir, "migrations", "", "read migrations from this directory instead of the embedded set")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("migrate failed", "err", err)
		os.Exit(1)
	}
}
