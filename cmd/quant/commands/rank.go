package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// rankCmd represents the rank command
var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "단일 기간 모멘텀 랭킹",
	Long: `한 기간에 대해 종목별 모멘텀 점수를 계산하고 상위 N개를 출력합니다.

--lookback 은 일수(60) 또는 기준일(2020-01-01)을 받습니다.

Example:
  go run ./cmd/quant rank --lookback 60 --tickers AAPL,MSFT,TSLA --top 3
  go run ./cmd/quant rank --lookback 2021-01-01 --tickers 005930,000660 --json`,
	RunE: runRank,
}

var (
	rankLookback string
	rankTickers  string
	rankTopN     int
	rankWorkers  int
	rankJSON     bool
)

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringVar(&rankLookback, "lookback", "60", "lookback days or anchor date (YYYY-MM-DD)")
	rankCmd.Flags().StringVar(&rankTickers, "tickers", "AAPL,MSFT,TSLA,NVDA,AMZN", "comma separated tickers")
	rankCmd.Flags().IntVar(&rankTopN, "top", 0, "number of tickers to select (default DEFAULT_TOP_N)")
	rankCmd.Flags().IntVar(&rankWorkers, "workers", 0, "concurrent fetches (default FETCH_WORKERS)")
	rankCmd.Flags().BoolVar(&rankJSON, "json", false, "print the outcome as JSON")
}

func runRank(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	tickers := splitTickers(rankTickers)
	if len(tickers) == 0 {
		return fmt.Errorf("--tickers is required")
	}

	task := contracts.BacktestTask{
		Spec:        contracts.RawSpec(rankLookback),
		Label:       "lookback " + rankLookback,
		Tickers:     tickers,
		TopN:        rankTopN,
		Concurrency: rankWorkers,
	}

	if !rankJSON {
		PrintHeader("Momentum Ranking",
			fmt.Sprintf("Lookback  : %s", rankLookback),
			fmt.Sprintf("Symbols   : %s", strings.Join(tickers, ", ")),
			fmt.Sprintf("Provider  : %s", a.cfg.Provider.Name),
		)
	}

	outcome := a.runner.Run(ctx, task)

	if rankJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcome); err != nil {
			return err
		}
	} else {
		fmt.Println()
		PrintOutcome(outcome)
	}

	if !outcome.Success {
		return fmt.Errorf("ranking failed: %s", outcome.ErrorKind)
	}
	return nil
}
