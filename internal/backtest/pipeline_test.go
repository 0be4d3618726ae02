package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/factors"
	"github.com/wonny/aegis-momentum/internal/fetcher"
	"github.com/wonny/aegis-momentum/internal/lookback"
	"github.com/wonny/aegis-momentum/internal/selection"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

// tickerProvider serves a fixed frame shape per ticker
type tickerProvider struct{}

func (tickerProvider) Name() string { return "fixture" }

func (tickerProvider) FetchFrame(ctx context.Context, ticker string, q contracts.Query) (*contracts.Frame, error) {
	switch ticker {
	case "EMPTY":
		return contracts.NewFrame(ticker, 0), nil
	case "ONEBAR":
		return barsFrame(ticker, 1, func(i int) float64 { return 100 }), nil
	case "UP":
		return barsFrame(ticker, 30, func(i int) float64 { return 100 + float64(i) }), nil
	case "FLAT":
		return barsFrame(ticker, 30, func(i int) float64 { return 100 }), nil
	}
	return contracts.NewFrame(ticker, 0), nil
}

func barsFrame(ticker string, n int, closeAt func(i int) float64) *contracts.Frame {
	f := contracts.NewFrame(ticker, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := closeAt(i)
		f.Timestamps[i] = start.AddDate(0, 0, i)
		f.Columns[contracts.FieldOpen][i] = c
		f.Columns[contracts.FieldHigh][i] = c + 1
		f.Columns[contracts.FieldLow][i] = c - 1
		f.Columns[contracts.FieldClose][i] = c
		f.Columns[contracts.FieldVolume][i] = 1000
	}
	return f
}

func newPipelineOrchestrator() *Orchestrator {
	log := logger.Nop()
	engine := factors.NewEngine(log)
	f := fetcher.New(tickerProvider{}, engine, fetcher.Config{
		MaxAttempts:       2,
		RequestTimeout:    time.Second,
		MinRecords:        2,
		LongWindowMinBars: 30,
	}, log, nil)

	runner := NewRunner(
		lookback.NewResolverWithClock(func() time.Time { return fixedNow }),
		fetcher.NewCoordinator(f, log),
		engine,
		selection.NewSelector(log),
		RunnerConfig{DefaultTopN: 3, DefaultWorkers: 2},
		log,
		nil,
	)
	return NewOrchestrator(runner, 3, log, nil)
}

func TestPipelineIsolatesInvalidTickers(t *testing.T) {
	tasks := []contracts.BacktestTask{
		{Spec: contracts.DaysSpec(5), Label: "mixed", Tickers: []string{"EMPTY", "ONEBAR", "UP", "FLAT"}},
		{Spec: contracts.DaysSpec(5), Label: "all invalid", Tickers: []string{"EMPTY", "ONEBAR"}},
		{Spec: contracts.RawSpec("next spring"), Label: "bad spec", Tickers: []string{"UP"}},
	}

	outcomes, summary := newPipelineOrchestrator().RunBatch(context.Background(), tasks)
	require.Len(t, outcomes, 3)

	mixed := outcomes[0]
	require.True(t, mixed.Success, mixed.ErrorDetail)
	var tickers []string
	for _, e := range mixed.Selection {
		tickers = append(tickers, e.Ticker)
	}
	assert.Equal(t, []string{"UP", "FLAT"}, tickers)

	assert.False(t, outcomes[1].Success)
	assert.Equal(t, contracts.KindNoData, outcomes[1].ErrorKind)

	assert.False(t, outcomes[2].Success)
	assert.Equal(t, contracts.KindInvalidSpec, outcomes[2].ErrorKind)

	for i, o := range outcomes {
		assert.Equal(t, i, o.TaskIndex)
	}
	assert.InDelta(t, 1.0/3.0, summary.SuccessRate, 1e-9)
	assert.Equal(t, map[string]float64{"UP": 1.0, "FLAT": 1.0}, summary.Consistency)
}
