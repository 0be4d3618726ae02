package backtest

import (
	"sort"
	"time"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// Summarize aggregates outcomes into a batch summary. It is pure: the same
// outcomes always give the same summary.
// ⭐ SSOT: 배치 집계 로직은 여기서만
func Summarize(batchID string, outcomes []contracts.BacktestOutcome, bestK int, startedAt, completedAt time.Time) contracts.BatchSummary {
	summary := contracts.BatchSummary{
		BatchID:         batchID,
		StartedAt:       startedAt,
		CompletedAt:     completedAt,
		Total:           len(outcomes),
		BestPeriods:     []contracts.PeriodPerformance{},
		Consistency:     map[string]float64{},
		InstrumentStats: map[string]contracts.InstrumentStat{},
	}

	for _, o := range outcomes {
		if o.Success {
			summary.Succeeded++
			continue
		}
		summary.Failed++
		summary.Failures = append(summary.Failures, contracts.FailureDetail{
			TaskIndex: o.TaskIndex,
			Label:     o.Label,
			Kind:      o.ErrorKind,
			Detail:    o.ErrorDetail,
		})
	}

	if summary.Total > 0 {
		summary.SuccessRate = float64(summary.Succeeded) / float64(summary.Total)
	}

	summary.BestPeriods = bestPeriods(outcomes, bestK)
	summary.InstrumentStats = instrumentStats(outcomes, summary.Succeeded)
	for ticker, stat := range summary.InstrumentStats {
		summary.Consistency[ticker] = stat.Consistency
	}

	return summary
}

// bestPeriods ranks succeeded tasks by the mean composite of their selection
func bestPeriods(outcomes []contracts.BacktestOutcome, k int) []contracts.PeriodPerformance {
	periods := make([]contracts.PeriodPerformance, 0, len(outcomes))
	for _, o := range outcomes {
		if !o.Success || len(o.Selection) == 0 {
			continue
		}
		periods = append(periods, contracts.PeriodPerformance{
			TaskIndex: o.TaskIndex,
			Label:     o.Label,
			AvgScore:  o.Selection.AverageScore(),
			Tickers:   o.Selection.Tickers(),
		})
	}

	// 동점이면 태스크 순서 유지
	sort.SliceStable(periods, func(i, j int) bool {
		return periods[i].AvgScore > periods[j].AvgScore
	})

	if k > 0 && len(periods) > k {
		periods = periods[:k]
	}
	return periods
}

// instrumentStats counts each ticker's appearances in succeeded selections.
// Consistency is appearances over the number of succeeded tasks.
func instrumentStats(outcomes []contracts.BacktestOutcome, succeeded int) map[string]contracts.InstrumentStat {
	stats := map[string]contracts.InstrumentStat{}
	rankSums := map[string]int{}

	for _, o := range outcomes {
		if !o.Success {
			continue
		}
		for _, entry := range o.Selection {
			stat := stats[entry.Ticker]
			stat.Ticker = entry.Ticker
			stat.Appearances++
			stat.TotalScore += entry.Score
			stat.Periods = append(stat.Periods, o.Label)
			stats[entry.Ticker] = stat
			rankSums[entry.Ticker] += entry.Rank
		}
	}

	for ticker, stat := range stats {
		stat.AvgScore = stat.TotalScore / float64(stat.Appearances)
		stat.AvgRank = float64(rankSums[ticker]) / float64(stat.Appearances)
		if succeeded > 0 {
			stat.Consistency = float64(stat.Appearances) / float64(succeeded)
		}
		stats[ticker] = stat
	}
	return stats
}
