package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "altsignals",
	Short: "Alternative data signal platform",
	Long: `altsignals collects alternative data signals for public companies
(SEC filings, Wikipedia attention, app ratings, hiring activity),
keeps them fresh per signal tier, and validates their predictive power
against forward stock returns.

Examples:
  go run ./cmd/altsignals update --company UBER
  go run ./cmd/altsignals update --daemon
  go run ./cmd/altsignals backfill --company UBER --from 2024-01-01
  go run ./cmd/altsignals backtest run --ticker UBER
  go run ./cmd/altsignals prices ingest --ticker UBER
  go run ./cmd/altsignals api`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
