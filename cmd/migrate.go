package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-recipes-backend/internal/repo"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := repo.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}()

		if err := repo.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}
		log.Info().Str("driver", cfg.Database.Driver).Msg("schema up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
