package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a formatted command header
func PrintHeader(title string, lines ...string) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	if len(lines) > 0 {
		PrintSeparator()
		for _, l := range lines {
			fmt.Printf("  %s\n", l)
		}
	}
	PrintDoubleSeparator()
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintOutcome prints one task outcome
func PrintOutcome(o contracts.BacktestOutcome) {
	if !o.Success {
		PrintError(fmt.Sprintf("[%d] %s: %s (%s)", o.TaskIndex, o.Label, o.ErrorKind, o.ErrorDetail))
		return
	}

	window := ""
	if o.Window != nil {
		window = fmt.Sprintf(" (%d days)", o.Window.LookbackDays)
	}
	PrintSuccess(fmt.Sprintf("[%d] %s%s", o.TaskIndex, o.Label, window))

	widths := []int{6, 12, 12}
	PrintTableHeader([]string{"Rank", "Ticker", "Score"}, widths)
	for _, e := range o.Selection {
		PrintTableRow([]string{fmt.Sprintf("%d", e.Rank), e.Ticker, fmt.Sprintf("%+.4f", e.Score)}, widths)
	}

	if o.FetchReport != nil && len(o.FetchReport.Failed) > 0 {
		tickers := make([]string, 0, len(o.FetchReport.Failed))
		for t := range o.FetchReport.Failed {
			tickers = append(tickers, t)
		}
		sort.Strings(tickers)
		for _, t := range tickers {
			fmt.Printf("   ⚠️  %s: %s\n", t, o.FetchReport.Failed[t])
		}
	}
	fmt.Println()
}

// PrintSummary prints the batch summary: rate, best periods and consistency
func PrintSummary(s contracts.BatchSummary) {
	PrintHeader("Backtest Summary",
		fmt.Sprintf("Batch ID  : %s", s.BatchID),
		fmt.Sprintf("Tasks     : %d total, %d succeeded, %d failed", s.Total, s.Succeeded, s.Failed),
		fmt.Sprintf("Success   : %.1f%%", s.SuccessRate*100),
		fmt.Sprintf("Duration  : %s", s.CompletedAt.Sub(s.StartedAt).Round(time.Millisecond)),
	)

	if len(s.BestPeriods) > 0 {
		fmt.Println("\n🏆 Best periods")
		widths := []int{16, 10, 30}
		PrintTableHeader([]string{"Period", "Avg", "Tickers"}, widths)
		for _, p := range s.BestPeriods {
			PrintTableRow([]string{p.Label, fmt.Sprintf("%+.4f", p.AvgScore), strings.Join(p.Tickers, ", ")}, widths)
		}
	}

	if len(s.InstrumentStats) > 0 {
		stats := make([]contracts.InstrumentStat, 0, len(s.InstrumentStats))
		for _, st := range s.InstrumentStats {
			stats = append(stats, st)
		}
		// 출현 빈도 → 평균 점수 순
		sort.Slice(stats, func(i, j int) bool {
			if stats[i].Appearances != stats[j].Appearances {
				return stats[i].Appearances > stats[j].Appearances
			}
			if stats[i].AvgScore != stats[j].AvgScore {
				return stats[i].AvgScore > stats[j].AvgScore
			}
			return stats[i].Ticker < stats[j].Ticker
		})

		fmt.Println("\n📊 Instrument consistency")
		widths := []int{10, 8, 12, 10, 10}
		PrintTableHeader([]string{"Ticker", "Seen", "Consistency", "AvgScore", "AvgRank"}, widths)
		for _, st := range stats {
			PrintTableRow([]string{
				st.Ticker,
				fmt.Sprintf("%d", st.Appearances),
				fmt.Sprintf("%.1f%%", st.Consistency*100),
				fmt.Sprintf("%+.4f", st.AvgScore),
				fmt.Sprintf("%.2f", st.AvgRank),
			}, widths)
		}
	}

	if len(s.Failures) > 0 {
		fmt.Println("\n❌ Failed periods")
		for _, f := range s.Failures {
			fmt.Printf("   [%d] %s: %s\n", f.TaskIndex, f.Label, f.Kind)
		}
	}
	fmt.Println()
}

// splitTickers parses a comma separated list
func splitTickers(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}
