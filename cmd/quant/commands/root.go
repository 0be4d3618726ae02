package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	env     string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "Aegis Momentum - 모멘텀 랭킹 & 백테스트 엔진",
	Long: `Aegis Momentum Unified CLI

기간별 모멘텀 점수로 종목을 랭킹하고, 여러 기간을 동시에 백테스트합니다.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant rank --lookback 60 --tickers AAPL,MSFT,NVDA
  go run ./cmd/quant backtest run --config batch.yaml
  go run ./cmd/quant resolve 2020-01-01
  go run ./cmd/quant api
  go run ./cmd/quant scheduler start`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// 플래그가 환경변수보다 우선
		if cmd.Flags().Changed("env") {
			os.Setenv("ENV", env)
		}
		if verbose {
			os.Setenv("LOG_LEVEL", "debug")
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
