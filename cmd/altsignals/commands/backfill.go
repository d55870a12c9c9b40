package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/altsignals/internal/orchestrator"
)

// backfillCmd represents the backfill command
var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Ingest maximum-depth history for signal pairs",
	Long: `Runs an unconditional, full-window ingestion for the requested
(company, signal type) pairs. Every pair is treated as due and collectors
are asked for the complete historical window instead of "since last
update". Intended to run once per pair before regular updates take over.

Flags:
  --company   restrict to specific company IDs (comma-separated)
  --signals   restrict to specific signal types (comma-separated)
  --from      window start (YYYY-MM-DD, default: now - backfill window)
  --to        window end (YYYY-MM-DD, default: now)
  --dry-run   fetch and process but skip persistence

Example:
  go run ./cmd/altsignals backfill --company UBER
  go run ./cmd/altsignals backfill --company UBER --from 2024-01-01 --to 2025-01-01`,
	RunE: runBackfill,
}

var (
	backfillCompanies []string
	backfillSignals   []string
	backfillFrom      string
	backfillTo        string
	backfillDryRun    bool
)

func init() {
	rootCmd.AddCommand(backfillCmd)

	backfillCmd.Flags().StringSliceVar(&backfillCompanies, "company", nil, "company IDs (comma-separated)")
	backfillCmd.Flags().StringSliceVar(&backfillSignals, "signals", nil, "signal types (comma-separated)")
	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "window start (YYYY-MM-DD)")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "window end (YYYY-MM-DD)")
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "skip persistence and state advance")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	var from, to time.Time
	var err error

	if backfillFrom != "" {
		from, err = time.Parse("2006-01-02", backfillFrom)
		if err != nil {
			return fmt.Errorf("invalid --from date: %w", err)
		}
	}
	if backfillTo != "" {
		to, err = time.Parse("2006-01-02", backfillTo)
		if err != nil {
			return fmt.Errorf("invalid --to date: %w", err)
		}
	}

	rt, err := initRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	fmt.Println("=== altsignals backfill ===")

	report, err := rt.orders.Backfill(cmd.Context(), orchestrator.BackfillOptions{
		Companies:   backfillCompanies,
		SignalTypes: backfillSignals,
		From:        from,
		To:          to,
		DryRun:      backfillDryRun,
	})
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}

	printBatchReport(report)
	return nil
}
