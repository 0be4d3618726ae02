package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

// DefaultWorkers is the per-task fetch concurrency budget
const DefaultWorkers = 3

// ErrAllFetchesFailed is the cause of the NoData error FetchAll returns
// when no ticker produced a usable series
var ErrAllFetchesFailed = errors.New("no usable series")

// SeriesFetcher fetches one ticker
type SeriesFetcher interface {
	Fetch(ctx context.Context, ticker string, window contracts.Window) FetchResult
}

// Coordinator fans out per-ticker fetches under a weighted semaphore
// ⭐ SSOT: 종목별 동시 조회 수 제한은 여기서만
type Coordinator struct {
	fetcher SeriesFetcher
	logger  *logger.Logger
}

// NewCoordinator creates a coordinator over fetcher
func NewCoordinator(fetcher SeriesFetcher, log *logger.Logger) *Coordinator {
	return &Coordinator{
		fetcher: fetcher,
		logger:  log.WithModule("coordinator"),
	}
}

// FetchAll fetches every distinct ticker with at most workers in flight.
// One ticker's failure or panic never affects the others. The returned map holds
// only validated series; an empty map comes back as a NoData error wrapping ErrAllFetchesFailed.
func (c *Coordinator) FetchAll(ctx context.Context, tickers []string, window contracts.Window, workers int) (map[string]*contracts.Series, contracts.FetchReport, error) {
	if workers < 1 {
		workers = DefaultWorkers
	}

	unique := dedupe(tickers)
	report := contracts.FetchReport{
		Requested: len(unique),
		Fetched:   []string{},
		Failed:    map[string]string{},
	}

	results := make([]FetchResult, len(unique))
	sem := semaphore.NewWeighted(int64(workers))

	var wg sync.WaitGroup
	for i, ticker := range unique {
		wg.Add(1)
		go func(i int, ticker string) {
			defer wg.Done()
			results[i] = c.fetchOne(ctx, sem, ticker, window)
		}(i, ticker)
	}
	wg.Wait()

	series := make(map[string]*contracts.Series, len(unique))
	for _, r := range results {
		if !r.OK() || r.Series == nil {
			report.Failed[r.Ticker] = r.Reason
			continue
		}
		series[r.Ticker] = r.Series
		report.Fetched = append(report.Fetched, r.Ticker)
		if r.Status == StatusDegraded {
			report.Degraded = append(report.Degraded, r.Ticker)
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"requested": report.Requested,
		"fetched":   len(report.Fetched),
		"degraded":  len(report.Degraded),
		"failed":    len(report.Failed),
		"workers":   workers,
	}).Info("Fetch fan-out completed")

	if len(series) == 0 {
		return nil, report, contracts.NewError(contracts.KindNoData, contracts.StageFetch,
			fmt.Sprintf("all fetches failed (%s)", failureSummary(report.Failed)), ErrAllFetchesFailed)
	}
	return series, report, nil
}

// fetchOne acquires a slot, fetches and absorbs panics
func (c *Coordinator) fetchOne(ctx context.Context, sem *semaphore.Weighted, ticker string, window contracts.Window) (result FetchResult) {
	if err := sem.Acquire(ctx, 1); err != nil {
		return FetchResult{Ticker: ticker, Status: StatusNoData, Reason: fmt.Sprintf("cancelled: %v", err)}
	}
	defer sem.Release(1)

	defer func() {
		if r := recover(); r != nil {
			c.logger.WithFields(map[string]interface{}{
				"ticker": ticker,
				"panic":  fmt.Sprint(r),
			}).Error("Fetch panicked")
			result = FetchResult{Ticker: ticker, Status: StatusNoData, Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()

	result = c.fetcher.Fetch(ctx, ticker, window)
	result.Ticker = ticker
	return result
}

func dedupe(tickers []string) []string {
	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func failureSummary(failed map[string]string) string {
	if len(failed) == 0 {
		return "no tickers"
	}
	keys := make([]string, 0, len(failed))
	for k := range failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, failed[k]))
	}
	return strings.Join(parts, "; ")
}
