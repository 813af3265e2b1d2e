package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-recipes-backend/internal/cache"
	"github.com/tbourn/go-recipes-backend/internal/repo"
	"github.com/tbourn/go-recipes-backend/internal/services"
)

const defaultIngredientsFile = "data/ingredients.json"

// loadIngredientsCmd imports the ingredient catalog from a JSON file.
var loadIngredientsCmd = &cobra.Command{
	Use:   "load-ingredients [file]",
	Short: "Import ingredients from a JSON file",
	Long: `Imports [{"name": ..., "measurement_unit": ...}] records. Pairs that
already exist are left untouched; records without a name or unit are skipped.

	recipes load-ingredients data/ingredients.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := defaultIngredientsFile
		if len(args) == 1 {
			path = args[0]
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		records, err := decodeIngredients(f)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

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
			return fmt.Errorf("migrate: %w", err)
		}

		// The cache only needs to see the catalog version bump.
		c, err := cache.New(cmd.Context(), cfg.Cache)
		if err != nil {
			log.Warn().Err(err).Msg("cache unavailable; cached searches expire on their own")
			c = cache.Noop{}
		}
		defer c.Close()

		stats, err := services.NewIngredientService(db, c, cfg.Cache.TTL).Import(cmd.Context(), records)
		if err != nil {
			return err
		}
		cmd.Printf("Ingredients processed: %d created, %d existing, %d skipped\n",
			stats.Created, stats.Existing, stats.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadIngredientsCmd)
}

func decodeIngredients(r io.Reader) ([]services.IngredientRecord, error) {
	var records []services.IngredientRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return records, nil
}
