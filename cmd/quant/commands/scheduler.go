package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-momentum/internal/scheduler"
	"github.com/wonny/aegis-momentum/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `정기 백테스트 배치 스케줄러를 관리합니다.

Subcommands:
  start   - 스케줄러 시작 (BATCH_SCHEDULE, 기본 평일 16:30)
  list    - 등록된 작업과 다음 실행 시각

Example:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler start --run-now
  go run ./cmd/quant scheduler list`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 배치 작업을 등록합니다.

등록되는 작업:
- momentum_backtest: BATCH_SCHEDULE (배치 실행 후 DATABASE_URL이 있으면 저장)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}
)

var (
	schedulerConfig string
	schedulerRunNow bool
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)

	schedulerCmd.PersistentFlags().StringVar(&schedulerConfig, "config", "", "batch YAML file (default BATCH_CONFIG or built-in periods)")
	schedulerStartCmd.Flags().BoolVar(&schedulerRunNow, "run-now", false, "run the batch once at startup")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Aegis Momentum Scheduler ===")

	a, sched, job, err := initScheduler(true)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	printJobs(sched)

	if schedulerRunNow {
		for _, name := range sched.GetAllJobs() {
			if err := sched.RunJob(ctx, name); err != nil {
				return err
			}
			printHistory(sched, name, 1)
		}
		if summary := job.LastSummary(); summary != nil {
			PrintSummary(*summary)
		}
	}

	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	cancel()
	sched.Stop()
	printStats(sched)
	for _, name := range sched.GetAllJobs() {
		printHistory(sched, name, historyLimit)
	}
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, _, err := initScheduler(false)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	sched.Start()
	defer sched.Stop()

	printJobs(sched)
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		next, err := sched.NextRun(jobName)
		if err != nil || next.IsZero() {
			fmt.Printf("  - %s\n", jobName)
			continue
		}
		fmt.Printf("  - %s (next: %s)\n", jobName, next.Format("2006-01-02 15:04:05"))
	}
}

func printStats(sched *scheduler.Scheduler) {
	for jobName, stat := range sched.GetJobStats() {
		fmt.Printf("📊 %s\n", jobName)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Printf("   Failures: %d\n", stat.FailureCount)
		if stat.LastRun != nil {
			fmt.Printf("   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}
	}
}

// historyLimit is the number of recent runs printed per job at shutdown
const historyLimit = 5

// printHistory prints the latest n runs of a job, newest last
func printHistory(sched *scheduler.Scheduler, jobName string, n int) {
	history, err := sched.GetJobHistory(jobName)
	if err != nil || len(history) == 0 {
		return
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}

	fmt.Printf("🕘 %s recent runs\n", jobName)
	for _, run := range history {
		result := "✅"
		if !run.Success {
			result = "❌ " + run.Error
		}
		fmt.Printf("   %s  %-10s attempts=%d  %s\n",
			run.StartTime.Format("2006-01-02 15:04:05"),
			run.Duration.Round(time.Millisecond), run.Attempts, result)
	}
}

// initScheduler wires the engine and registers the batch job
func initScheduler(useStore bool) (*app, *scheduler.Scheduler, *jobs.BatchJob, error) {
	a, err := newApp(context.Background(), appOptions{useStore: useStore})
	if err != nil {
		return nil, nil, nil, err
	}

	batch, err := a.loadBatch(schedulerConfig)
	if err != nil {
		a.Close()
		return nil, nil, nil, err
	}

	// nil 포인터가 인터페이스에 담기지 않도록
	var saver jobs.BatchSaver
	if a.store != nil {
		saver = a.store
	}

	sched := scheduler.New(a.log,
		scheduler.WithRetry(1, 5*time.Minute),
		scheduler.WithJobTimeout(30*time.Minute),
	)
	job := jobs.NewBatchJob(a.orchestrator, saver, batch, a.cfg.BatchSchedule, a.log)
	if err := sched.AddJob(job); err != nil {
		a.Close()
		return nil, nil, nil, err
	}

	return a, sched, job, nil
}
