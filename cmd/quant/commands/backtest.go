package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-momentum/internal/batchconfig"
	"github.com/wonny/aegis-momentum/internal/contracts"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "다기간 백테스트",
	Long: `여러 기간을 동시에 랭킹하고 기간별 성과와 종목 일관성을 집계합니다.

Subcommands:
  run     - 배치 실행
  list    - 저장된 배치 목록 (DATABASE_URL 필요)

Example:
  go run ./cmd/quant backtest run
  go run ./cmd/quant backtest run --config batch.yaml --persist
  go run ./cmd/quant backtest list`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "배치 실행",
		Long: `배치 설정의 모든 기간을 동시에 실행합니다.

--config 가 없으면 BATCH_CONFIG, 그것도 없으면 기본 9개 기간
(30/60/90/180/365/730일, 2020/2021/2022-01-01)을 AAPL, MSFT, TSLA, NVDA, AMZN에 대해 실행합니다.`,
		RunE: runBacktest,
	}

	backtestListCmd = &cobra.Command{
		Use:   "list",
		Short: "저장된 배치 목록",
		RunE:  listBacktests,
	}
)

var (
	backtestConfig  string
	backtestPersist bool
	backtestTickers string
	backtestJSON    bool
	backtestLimit   int
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)
	backtestCmd.AddCommand(backtestListCmd)

	backtestRunCmd.Flags().StringVar(&backtestConfig, "config", "", "batch YAML file (default BATCH_CONFIG or built-in periods)")
	backtestRunCmd.Flags().BoolVar(&backtestPersist, "persist", false, "store the batch in PostgreSQL")
	backtestRunCmd.Flags().StringVar(&backtestTickers, "tickers", "", "override the configured tickers")
	backtestRunCmd.Flags().BoolVar(&backtestJSON, "json", false, "print outcomes and summary as JSON")

	backtestListCmd.Flags().IntVar(&backtestLimit, "limit", 20, "number of batches to show")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, appOptions{useStore: backtestPersist})
	if err != nil {
		return err
	}
	defer a.Close()

	batch, err := a.loadBatch(backtestConfig)
	if err != nil {
		return err
	}
	if backtestTickers != "" {
		batch.Tickers = splitTickers(backtestTickers)
		if err := batchconfig.Validate(batch); err != nil {
			return err
		}
	}

	tasks, err := batch.Tasks()
	if err != nil {
		return err
	}

	orch := a.orchestrator
	if !backtestJSON {
		PrintHeader("Momentum Backtest",
			fmt.Sprintf("Batch     : %s", batch.Name),
			fmt.Sprintf("Periods   : %d", len(tasks)),
			fmt.Sprintf("Symbols   : %s", strings.Join(batch.Tickers, ", ")),
			fmt.Sprintf("Top N     : %d", batch.TopN),
		)
		done := 0
		orch = orch.WithObserver(func(o contracts.BacktestOutcome) {
			done++
			status := "ok"
			if !o.Success {
				status = string(o.ErrorKind)
			}
			fmt.Printf("[Backtest] %s finished: %s [%d/%d]\n", o.Label, status, done, len(tasks))
		})
	}

	outcomes, summary := orch.RunBatch(ctx, tasks)

	if backtestPersist && a.store != nil {
		hash, err := batchconfig.Hash(batch)
		if err != nil {
			return err
		}
		if err := a.store.SaveBatch(ctx, summary, outcomes, hash); err != nil {
			return fmt.Errorf("persist batch: %w", err)
		}
	}

	if backtestJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"outcomes": outcomes,
			"summary":  summary,
		})
	}

	fmt.Println()
	for _, o := range outcomes {
		PrintOutcome(o)
	}
	PrintSummary(summary)
	if backtestPersist && a.store != nil {
		PrintSuccess(fmt.Sprintf("Batch %s saved", summary.BatchID))
	}
	return nil
}

func listBacktests(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, appOptions{useStore: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if a.store == nil {
		return fmt.Errorf("DATABASE_URL is not set")
	}

	batches, err := a.store.ListBatches(ctx, backtestLimit)
	if err != nil {
		return err
	}

	widths := []int{36, 20, 8, 10}
	PrintTableHeader([]string{"Batch ID", "Started", "Tasks", "Success"}, widths)
	for _, b := range batches {
		PrintTableRow([]string{
			b.BatchID,
			b.StartedAt.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d", b.Total),
			fmt.Sprintf("%.1f%%", b.SuccessRate*100),
		}, widths)
	}
	return nil
}
