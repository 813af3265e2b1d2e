package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-recipes-backend/internal/server"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the recipes API server",
	Long: `Starts the recipes API server. Usage:

	recipes server

The server stops gracefully on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv, err := server.New(ctx, cfg, version)
		if err != nil {
			return err
		}
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
