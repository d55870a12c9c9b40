package commands

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/altsignals/internal/orchestrator"
)

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Run one signal update batch (or the daemon)",
	Long: `Computes which (company, signal type) pairs are due per their
update tier, fetches from each source, and persists normalized signals.
Task failures are isolated per pair and reported, never fatal.

Flags:
  --company   restrict to specific company IDs (comma-separated)
  --signals   restrict to specific signal types (comma-separated)
  --force     treat every requested pair as due
  --dry-run   fetch and process but skip persistence
  --daemon    run continuously, polling for due pairs
  --interval  daemon poll interval (default from ORCH_POLL_INTERVAL)

Example:
  go run ./cmd/altsignals update
  go run ./cmd/altsignals update --company UBER --signals wikipedia_pageviews
  go run ./cmd/altsignals update --force --dry-run
  go run ./cmd/altsignals update --daemon --interval 5m`,
	RunE: runUpdate,
}

var (
	updateStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show pairs whose last refresh is stale",
		RunE:  runUpdateStatus,
	}

	updateCompanies       []string
	updateSignals         []string
	updateForce           bool
	updateDryRun          bool
	updateDaemon          bool
	updateInterval        time.Duration
	updateStatusOlderThan time.Duration
)

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.AddCommand(updateStatusCmd)

	updateCmd.Flags().StringSliceVar(&updateCompanies, "company", nil, "company IDs (comma-separated)")
	updateCmd.Flags().StringSliceVar(&updateSignals, "signals", nil, "signal types (comma-separated)")
	updateCmd.Flags().BoolVar(&updateForce, "force", false, "treat every requested pair as due")
	updateCmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "skip persistence and state advance")
	updateCmd.Flags().BoolVar(&updateDaemon, "daemon", false, "run continuously")
	updateCmd.Flags().DurationVar(&updateInterval, "interval", 0, "daemon poll interval (e.g. 5m)")

	updateStatusCmd.Flags().DurationVar(&updateStatusOlderThan, "older-than", 24*time.Hour, "staleness cutoff")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	rt, err := initRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if updateInterval > 0 {
		rt.cfg.Orchestrator.PollInterval = updateInterval
	}

	opts := orchestrator.Options{
		Companies:   updateCompanies,
		SignalTypes: updateSignals,
		Force:       updateForce,
		DryRun:      updateDryRun,
	}

	if updateDaemon {
		fmt.Println("=== altsignals update daemon ===")
		fmt.Printf("Poll interval: %s (Ctrl+C to stop)\n\n", rt.cfg.Orchestrator.PollInterval)

		// Cancel on SIGINT/SIGTERM; the daemon finishes its in-flight
		// batch before returning.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return rt.orders.RunDaemon(ctx, opts)
	}

	fmt.Println("=== altsignals update ===")
	report, err := rt.orders.RunOnce(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	printBatchReport(report)
	return nil
}

func runUpdateStatus(cmd *cobra.Command, args []string) error {
	rt, err := initRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	cutoff := time.Now().UTC().Add(-updateStatusOlderThan)
	stale, err := rt.state.ListStale(cmd.Context(), cutoff)
	if err != nil {
		return err
	}

	fmt.Printf("=== Pairs not refreshed in %s ===\n", updateStatusOlderThan)
	if len(stale) == 0 {
		fmt.Println("(none)")
		return nil
	}

	pairs := make([]string, 0, len(stale))
	for pair := range stale {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)
	for _, pair := range pairs {
		fmt.Printf("  %-36s last updated %s\n", pair, stale[pair].Format("2006-01-02 15:04"))
	}
	return nil
}

func printBatchReport(report *orchestrator.BatchReport) {
	fmt.Println()
	if report.DryRun {
		fmt.Println("(dry run: nothing was persisted)")
	}
	fmt.Printf("Due pairs:       %d\n", report.DueCount)
	fmt.Printf("Succeeded:       %d\n", report.Succeeded)
	fmt.Printf("Failed:          %d\n", report.Failed)
	fmt.Printf("Signals written: %d\n", report.SignalsWritten)
	fmt.Printf("Duration:        %.2fs\n", report.FinishedAt.Sub(report.StartedAt).Seconds())

	if len(report.Failures) > 0 {
		fmt.Println("\nFailures:")
		fmt.Println(strings.Repeat("-", 60))
		for _, f := range report.Failures {
			fmt.Printf("  %s/%s [%s stage=%s] %s\n",
				f.CompanyID, f.SignalType, f.Source, f.Stage, f.Message)
		}
	}
}
