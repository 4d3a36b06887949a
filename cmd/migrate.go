package cmd

import (
	"fmt"

	"beedee/bot/models"
	"beedee/internal/config"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the birthdays table and its month/day index if missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		gdb, err := openDatabase(cfg.Database)
		if err != nil {
			return err
		}
		if sqlDB, err := gdb.DB(); err == nil {
			defer sqlDB.Close()
		}

		table := cfg.Database.Table
		migrator := gdb.Table(table).Migrator()

		if !migrator.HasTable(table) {
			if err := migrator.CreateTable(&models.Birthday{}); err != nil {
				return fmt.Errorf("create table %s: %w", table, err)
			}
		}

		if !migrator.HasIndex(&models.Birthday{}, "month-day-index") {
			if err := migrator.CreateIndex(&models.Birthday{}, "month-day-index"); err != nil {
				return fmt.Errorf("create index on %s: %w", table, err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "table %s is ready\n", table)
		return nil
	},
}
