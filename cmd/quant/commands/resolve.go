package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-momentum/internal/lookback"
)

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve <spec>",
	Short: "기간 입력을 윈도우로 변환",
	Long: `일수 또는 기준일을 해석해 lookback 윈도우를 출력합니다.

Example:
  go run ./cmd/quant resolve 90
  go run ./cmd/quant resolve 2020-01-01`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	w, err := lookback.NewResolver().ResolveString(args[0])
	if err != nil {
		PrintError(err.Error())
		return err
	}

	fmt.Printf("Mode      : %s\n", w.Mode)
	fmt.Printf("Days      : %d\n", w.LookbackDays)
	if w.Anchor != nil {
		fmt.Printf("Anchor    : %s\n", w.Anchor.Format("2006-01-02"))
	}
	fmt.Printf("Resolved  : %s\n", w.ResolvedAt.Format("2006-01-02 15:04:05"))
	return nil
}
