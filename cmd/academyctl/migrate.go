package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wintergreen/academia-backend/config"
	"github.com/wintergreen/academia-backend/internal/db"
	"github.com/wintergreen/academia-backend/pkg/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := db.Initialize(&cfg.Database); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			return err
		}
		logger.Info("Schema is up to date")
		return nil
	},
}
