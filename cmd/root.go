// Package cmd implements the command line interface of the recipes backend.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-recipes-backend/internal/config"
	"github.com/tbourn/go-recipes-backend/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X .../cmd.version=...".
var version = "dev"

var (
	envFile string
	cfg     config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "recipes",
	Short:         "Recipe sharing backend",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnvFile(envFile); err != nil {
			return err
		}
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
}

// loadEnvFile applies path to the environment without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
