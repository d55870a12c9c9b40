package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/altsignals/internal/backtest"
	"github.com/wonny/altsignals/internal/contracts"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Validate signal predictive power against forward returns",
	Long: `Replays stored signals against the daily price series and reports,
per signal type and horizon, whether post-signal returns differ from
chance: t-test, information coefficient, hit rate, and sharpe.

Example:
  go run ./cmd/altsignals backtest run --ticker UBER
  go run ./cmd/altsignals backtest run --ticker UBER --horizons 5,20,60 --alpha 0.05`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Run validation for one company",
		Long: `Validates every signal type recorded for one company.

Flags:
  --ticker       company ID / ticker (required)
  --horizons     forward windows in trading days (default 5,20,60)
  --min-signals  minimum events per (type, horizon) before stats are trusted
  --alpha        two-sided significance level (default 0.05)
  --from         signal window start (YYYY-MM-DD)
  --to           signal window end (YYYY-MM-DD)
  --pooled       also pool events across all companies per signal type

Example:
  go run ./cmd/altsignals backtest run --ticker UBER
  go run ./cmd/altsignals backtest run --ticker UBER --horizons 20 --min-signals 15
  go run ./cmd/altsignals backtest run --ticker UBER --pooled`,
		RunE: runBacktestValidation,
	}

	// Flags
	backtestTicker     string
	backtestHorizons   []int
	backtestMinSignals int
	backtestAlpha      float64
	backtestFrom       string
	backtestTo         string
	backtestPooled     bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)

	backtestRunCmd.Flags().StringVar(&backtestTicker, "ticker", "", "company ID (required)")
	backtestRunCmd.Flags().IntSliceVar(&backtestHorizons, "horizons", nil, "forward horizons in trading days")
	backtestRunCmd.Flags().IntVar(&backtestMinSignals, "min-signals", 0, "minimum events per (type, horizon)")
	backtestRunCmd.Flags().Float64Var(&backtestAlpha, "alpha", 0, "two-sided significance level")
	backtestRunCmd.Flags().StringVar(&backtestFrom, "from", "", "signal window start (YYYY-MM-DD)")
	backtestRunCmd.Flags().StringVar(&backtestTo, "to", "", "signal window end (YYYY-MM-DD)")
	backtestRunCmd.Flags().BoolVar(&backtestPooled, "pooled", false, "pool events across companies per signal type")

	backtestRunCmd.MarkFlagRequired("ticker")
}

func runBacktestValidation(cmd *cobra.Command, args []string) error {
	var start, end time.Time
	var err error

	if backtestFrom != "" {
		start, err = time.Parse("2006-01-02", backtestFrom)
		if err != nil {
			return fmt.Errorf("invalid --from date: %w", err)
		}
	}
	if backtestTo != "" {
		end, err = time.Parse("2006-01-02", backtestTo)
		if err != nil {
			return fmt.Errorf("invalid --to date: %w", err)
		}
	}

	rt, err := initRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	company, ok := rt.companies.Get(strings.ToUpper(backtestTicker))
	if !ok {
		return fmt.Errorf("unknown company: %s", backtestTicker)
	}

	engine := rt.backtestEngine()
	runCfg := backtest.RunConfig{
		CompanyID:  company.ID,
		Ticker:     company.Ticker,
		Horizons:   backtestHorizons,
		MinSamples: backtestMinSignals,
		Alpha:      backtestAlpha,
		Start:      start,
		End:        end,
	}

	fmt.Println("=== altsignals backtest ===")
	fmt.Printf("Company: %s (%s)\n\n", company.Name, company.Ticker)

	report, err := engine.Run(cmd.Context(), runCfg)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	printValidationReport(report)

	if backtestPooled {
		if err := runPooledValidation(cmd, rt, engine, runCfg, report); err != nil {
			return err
		}
	}

	return nil
}

func runPooledValidation(cmd *cobra.Command, rt *runtime, engine *backtest.Engine, runCfg backtest.RunConfig, report *backtest.Report) error {
	companies := rt.companies.ListAll()

	fmt.Println("\n🌐 Pooled (all companies)")
	fmt.Println(strings.Repeat("=", 68))

	for _, st := range report.SignalTypes {
		results, err := engine.RunPooled(cmd.Context(), runCfg, companies, st.SignalType)
		if err != nil {
			return fmt.Errorf("pooled validation failed for %s: %w", st.SignalType, err)
		}
		fmt.Printf("\n%s\n", st.SignalType)
		printHorizonTable(results)
	}

	return nil
}

func printValidationReport(report *backtest.Report) {
	fmt.Printf("Price series: %s ~ %s\n",
		report.PriceStart.Format("2006-01-02"),
		report.PriceEnd.Format("2006-01-02"))
	fmt.Printf("Total signals: %d\n", report.TotalSignals)

	// Baseline
	fmt.Println("\n📊 Baseline (unconditional forward returns)")
	fmt.Println(strings.Repeat("-", 68))
	for _, b := range report.Baseline {
		fmt.Printf("  %3dd  n=%-5d mean=%+.4f  median=%+.4f  std=%.4f\n",
			b.Horizon, b.N, b.MeanReturn, b.MedianReturn, b.StdReturn)
	}

	// Per signal type
	for _, st := range report.SignalTypes {
		fmt.Printf("\n📡 %s (%s, %d events)", st.SignalType, st.Category, st.TotalEvents)
		if st.Predictive {
			fmt.Printf("  ✅ predictive @ %dd", st.BestHorizon)
		}
		fmt.Println()
		fmt.Println(strings.Repeat("-", 68))
		printHorizonTable(st.Horizons)
	}

	// Verdict
	predictive := report.PredictiveTypes()
	fmt.Println("\n" + strings.Repeat("=", 68))
	if len(predictive) == 0 {
		fmt.Println("❌ No signal type shows significant predictive power")
	} else {
		fmt.Println("✅ Predictive signal types (best p-value ascending):")
		for _, st := range predictive {
			fmt.Printf("  %-24s best horizon %dd\n", st.SignalType, st.BestHorizon)
		}
	}
}

func printHorizonTable(results []contracts.ValidationResult) {
	for _, r := range results {
		if r.InsufficientData {
			fmt.Printf("  %3dd  n=%-4d insufficient data\n", r.Horizon, r.N)
			continue
		}
		marker := " "
		if r.Significant {
			marker = "*"
		}
		fmt.Printf("  %3dd%s n=%-4d mean=%+.4f  t=%+.2f  p=%.4f  ic=%+.3f  hit=%.0f%%  sharpe=%+.2f  %s\n",
			r.Horizon, marker, r.N, r.MeanReturn, r.TStat, r.PValue,
			r.InformationCoefficient, r.HitRate*100, r.Sharpe, directionLabel(r.Direction))
	}
}

func directionLabel(d contracts.Direction) string {
	switch d {
	case contracts.DirectionBullish:
		return "📈 bullish"
	case contracts.DirectionContrarian:
		return "📉 contrarian"
	default:
		return "-"
	}
}
