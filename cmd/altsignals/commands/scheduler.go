package commands

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/altsignals/internal/scheduler"
	"github.com/wonny/altsignals/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run scheduled background jobs",
	Long: `Starts the cron scheduler and manages its jobs.

Registered jobs:
- signal_update: every 5 minutes (due signal pairs)
- price_sync:    weekdays 22:30 UTC (daily bars after US close)

Subcommands:
  start   - start the scheduler
  run     - run one job immediately
  status  - show recent job results

Example:
  go run ./cmd/altsignals scheduler start
  go run ./cmd/altsignals scheduler run price_sync`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		RunE:  runScheduler,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show recent job results",
		RunE:  showSchedulerStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func initScheduler() (*scheduler.Scheduler, *runtime, error) {
	rt, err := initRuntime()
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(rt.log)

	if err := sched.AddJob(jobs.NewSignalUpdateJob(rt.orders, rt.log)); err != nil {
		rt.Close()
		return nil, nil, fmt.Errorf("register signal_update: %w", err)
	}
	if err := sched.AddJob(jobs.NewPriceSyncJob(rt.stooqClient(), rt.prices, rt.companies, rt.log)); err != nil {
		rt.Close()
		return nil, nil, fmt.Errorf("register price_sync: %w", err)
	}

	return sched, rt, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== altsignals scheduler ===")

	sched, rt, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer rt.Close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started")
	fmt.Println("\nRegistered jobs:")
	for _, name := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")
	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	sched, rt, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer rt.Close()

	fmt.Printf("Running job: %s\n", jobName)
	result, err := sched.RunJobNow(jobName)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("job %s failed: %s", jobName, result.Error)
	}
	fmt.Printf("✅ %s completed in %.2fs\n", jobName, result.Duration.Seconds())
	return nil
}

func showSchedulerStatus(cmd *cobra.Command, args []string) error {
	sched, rt, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer rt.Close()

	fmt.Println("=== Job status ===")
	fmt.Println(strings.Repeat("-", 60))

	for _, name := range sched.GetAllJobs() {
		history, err := sched.GetJobHistory(name)
		if err != nil {
			continue
		}
		results := history.GetLatestResults(5)
		fmt.Printf("%-16s success rate %.0f%% (last %d runs)\n",
			name, history.GetSuccessRate()*100, len(results))
		for _, r := range results {
			status := "✅"
			if !r.Success {
				status = "❌"
			}
			fmt.Printf("  %s %s  %.2fs\n", status, r.StartTime.Format("2006-01-02 15:04:05"), r.Duration.Seconds())
		}
	}

	return nil
}
