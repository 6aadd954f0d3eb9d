package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"order_sheets_sync/internal/app"
	"order_sheets_sync/internal/config"
)

var (
	configFile string

	cfg *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "order-sheets-sync",
	Short: "Mirror orders into one spreadsheet tab per order",
	Long: `order-sheets-sync renders an order and its purchases as a grid and writes
it into the order's own tab of a Google spreadsheet, creating the tab on
first sync. Run "serve" to accept database webhooks, or "sync" for a
one-off pass.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		app.SetupEnvironment()

		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		log.Debug().Str("command", cmd.Name()).Msg("Configuration loaded")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./config.yaml when present)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(seedCmd)
}
