package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// pricesCmd represents the prices command
var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Manage the daily price series",
	Long: `Daily OHLCV bars back the validation engine. Bars are fetched from
the Stooq CSV endpoint and upserted by (ticker, trade date).

Example:
  go run ./cmd/altsignals prices ingest --ticker UBER
  go run ./cmd/altsignals prices ingest --ticker UBER --from 2024-01-01`,
}

var (
	pricesIngestCmd = &cobra.Command{
		Use:   "ingest",
		Short: "Fetch and store daily bars",
		Long: `Fetches daily bars for one ticker (or every registered company
when --ticker is omitted) and upserts them.

Flags:
  --ticker  ticker to ingest (default: all registered companies)
  --from    window start (YYYY-MM-DD, default: 2 years ago)
  --to      window end (YYYY-MM-DD, default: today)

Example:
  go run ./cmd/altsignals prices ingest --ticker UBER
  go run ./cmd/altsignals prices ingest --from 2023-01-01`,
		RunE: runPricesIngest,
	}

	pricesTicker string
	pricesFrom   string
	pricesTo     string
)

func init() {
	rootCmd.AddCommand(pricesCmd)
	pricesCmd.AddCommand(pricesIngestCmd)

	pricesIngestCmd.Flags().StringVar(&pricesTicker, "ticker", "", "ticker (default: all registered companies)")
	pricesIngestCmd.Flags().StringVar(&pricesFrom, "from", "", "window start (YYYY-MM-DD)")
	pricesIngestCmd.Flags().StringVar(&pricesTo, "to", "", "window end (YYYY-MM-DD)")
}

func runPricesIngest(cmd *cobra.Command, args []string) error {
	end := time.Now().UTC()
	start := end.AddDate(-2, 0, 0)
	var err error

	if pricesFrom != "" {
		start, err = time.Parse("2006-01-02", pricesFrom)
		if err != nil {
			return fmt.Errorf("invalid --from date: %w", err)
		}
	}
	if pricesTo != "" {
		end, err = time.Parse("2006-01-02", pricesTo)
		if err != nil {
			return fmt.Errorf("invalid --to date: %w", err)
		}
	}

	rt, err := initRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	var tickers []string
	if pricesTicker != "" {
		tickers = []string{strings.ToUpper(pricesTicker)}
	} else {
		for _, c := range rt.companies.ListAll() {
			tickers = append(tickers, c.Ticker)
		}
	}

	client := rt.stooqClient()
	ctx := cmd.Context()

	fmt.Println("=== altsignals price ingest ===")
	fmt.Printf("Window: %s ~ %s\n\n", start.Format("2006-01-02"), end.Format("2006-01-02"))

	var failed int
	for _, ticker := range tickers {
		bars, err := client.FetchDaily(ctx, ticker, start, end)
		if err != nil {
			rt.log.WithError(err).WithField("ticker", ticker).Warn("Price fetch failed")
			fmt.Printf("  %-6s ❌ %v\n", ticker, err)
			failed++
			continue
		}
		if err := rt.prices.SaveBatch(ctx, bars); err != nil {
			return fmt.Errorf("failed to save bars for %s: %w", ticker, err)
		}
		fmt.Printf("  %-6s ✅ %d bars\n", ticker, len(bars))
	}

	if failed == len(tickers) {
		return fmt.Errorf("price ingest failed for all %d tickers", failed)
	}
	return nil
}
