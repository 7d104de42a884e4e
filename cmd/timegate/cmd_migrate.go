package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friendsincode/timegate/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the schedule tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		database, err := initDatabase()
		if err != nil {
			return err
		}
		defer db.Close(database)

		if err := db.Migrate(database); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "database migrated (%s)\n", cfg.DBBackend)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
