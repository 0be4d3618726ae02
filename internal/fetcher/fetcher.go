package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/factors"
	"github.com/wonny/aegis-momentum/internal/metrics"
	"github.com/wonny/aegis-momentum/internal/quality"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

// LongWindowDays is the lookback at which Days windows switch to the "max" history query
const LongWindowDays = 365

// Status is the per-ticker fetch verdict
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusNoData   Status = "no_data"
)

// Config holds fetch policy
type Config struct {
	MaxAttempts       int
	RequestTimeout    time.Duration // per attempt
	RetryDelay        time.Duration // pause between attempts, 0 = none
	MinRecords        int
	LongWindowMinBars int
	StrictValidation  bool
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       2,
		RequestTimeout:    15 * time.Second,
		MinRecords:        2,
		LongWindowMinBars: 30,
	}
}

// FetchResult is the structured per-ticker result; a failed fetch is a NoData result, never an error
type FetchResult struct {
	Ticker   string
	Series   *contracts.Series
	Status   Status
	Reason   string
	Attempts int
}

// OK reports whether a usable series was produced
func (r FetchResult) OK() bool {
	return r.Status == StatusOK || r.Status == StatusDegraded
}

// Fetcher retrieves, cleans, validates and enriches one ticker's series
// ⭐ SSOT: 종목별 시세 조회/재시도/검증 정책은 여기서만
type Fetcher struct {
	provider contracts.MarketDataProvider
	engine   *factors.Engine
	cfg      Config
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// New creates a Fetcher. m may be nil.
func New(provider contracts.MarketDataProvider, engine *factors.Engine, cfg Config, log *logger.Logger, m *metrics.Metrics) *Fetcher {
	def := DefaultConfig()
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.MinRecords < 1 {
		cfg.MinRecords = def.MinRecords
	}
	if cfg.LongWindowMinBars < 1 {
		cfg.LongWindowMinBars = def.LongWindowMinBars
	}

	return &Fetcher{
		provider: provider,
		engine:   engine,
		cfg:      cfg,
		logger:   log.WithModule("fetcher"),
		metrics:  m,
		now:      time.Now,
	}
}

// RangeFor maps a lookback to the provider history range on int(lookback·1.5) days
func RangeFor(lookbackDays int) string {
	required := int(float64(lookbackDays) * 1.5)

	switch {
	case required <= 5:
		return "5d"
	case required <= 30:
		return "1mo"
	case required <= 90:
		return "3mo"
	case required <= 180:
		return "6mo"
	case required <= 365:
		return "1y"
	case required <= 730:
		return "2y"
	case required <= 1825:
		return "5y"
	case required <= 3650:
		return "10y"
	default:
		return "max"
	}
}

// plan returns the primary query and an optional fallback used when the primary errors
func (f *Fetcher) plan(window contracts.Window) (contracts.Query, *contracts.Query) {
	if window.IsAnchored() {
		return contracts.Query{From: *window.Anchor, To: f.now()}, nil
	}

	bounded := contracts.Query{Range: RangeFor(window.LookbackDays)}
	if window.LookbackDays >= LongWindowDays && bounded.Range != "max" {
		return contracts.Query{Range: "max"}, &bounded
	}
	return bounded, nil
}

// anchorGapDays is how far the first bar may trail the anchor (weekends, holidays)
// before an anchored series counts as degraded
const anchorGapDays = 7

const secondsPerDay = 24 * 60 * 60

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (f *Fetcher) isLongWindow(window contracts.Window) bool {
	return !window.IsAnchored() && window.LookbackDays >= LongWindowDays
}

// Fetch runs up to MaxAttempts attempts and never returns an error
func (f *Fetcher) Fetch(ctx context.Context, ticker string, window contracts.Window) FetchResult {
	primary, fallback := f.plan(window)
	log := f.logger.WithFields(map[string]interface{}{
		"ticker":   ticker,
		"query":    primary.String(),
		"lookback": window.LookbackDays,
	})

	result := FetchResult{Ticker: ticker, Status: StatusNoData}

	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			result.Reason = fmt.Sprintf("cancelled: %v", err)
			break
		}
		if attempt > 1 && f.cfg.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				result.Reason = fmt.Sprintf("cancelled: %v", ctx.Err())
				return f.finish(result, log)
			case <-time.After(f.cfg.RetryDelay):
			}
		}
		result.Attempts = attempt

		frame, err := f.query(ctx, ticker, primary)
		if err != nil && fallback != nil {
			log.WithError(err).Warn("Max history query failed, falling back to bounded range")
			frame, err = f.query(ctx, ticker, *fallback)
		}
		if err != nil {
			result.Reason = err.Error()
			f.metrics.FetchAttempt(attemptErrorLabel(err))
			log.WithError(err).WithField("attempt", attempt).Warn("Fetch attempt failed")
			continue
		}

		series, reason := f.process(ticker, frame, window)
		if series == nil {
			result.Reason = reason
			f.metrics.FetchAttempt("invalid")
			log.WithFields(map[string]interface{}{
				"attempt": attempt,
				"reason":  reason,
			}).Warn("Fetch attempt rejected")
			continue
		}

		f.metrics.FetchAttempt("ok")
		result.Series = series
		result.Reason = reason
		result.Status = StatusOK
		if series.Degraded {
			result.Status = StatusDegraded
		}
		return f.finish(result, log)
	}

	return f.finish(result, log)
}

func (f *Fetcher) finish(result FetchResult, log *logger.Logger) FetchResult {
	f.metrics.FetchResult(string(result.Status))

	switch result.Status {
	case StatusDegraded:
		log.WithFields(map[string]interface{}{
			"bars":   result.Series.Len(),
			"reason": result.Reason,
		}).Info("Accepted shorter history for long window")
	case StatusNoData:
		log.WithFields(map[string]interface{}{
			"attempts": result.Attempts,
			"reason":   result.Reason,
		}).Warn("No usable data")
	default:
		log.WithField("bars", result.Series.Len()).Debug("Fetched series")
	}
	return result
}

// query issues one provider call bounded by RequestTimeout
func (f *Fetcher) query(ctx context.Context, ticker string, q contracts.Query) (*contracts.Frame, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.cfg.RequestTimeout)
	defer cancel()

	frame, err := f.provider.FetchFrame(attemptCtx, ticker, q)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s: %v", errTimeout, f.cfg.RequestTimeout, err)
		}
		return nil, err
	}
	if frame.Len() == 0 {
		return nil, errEmptyResponse
	}
	return frame, nil
}

var (
	errEmptyResponse = errors.New("empty response")
	errTimeout       = errors.New("request timeout")
)

// process cleans, validates, normalizes and enriches one frame.
// A nil series means the attempt failed with the returned reason.
func (f *Fetcher) process(ticker string, frame *contracts.Frame, window contracts.Window) (*contracts.Series, string) {
	cleaned := quality.DropIncomplete(frame)

	if res := quality.Validate(cleaned, f.cfg.MinRecords); !res.OK {
		return nil, reasonText(res)
	}

	bars, res := quality.Normalize(cleaned, f.cfg.StrictValidation)
	if !res.OK {
		return nil, reasonText(res)
	}
	if len(bars) < f.cfg.MinRecords {
		return nil, string(quality.ReasonTooFewRecords)
	}

	series := &contracts.Series{
		Ticker:        ticker,
		Bars:          bars,
		RequestedDays: window.LookbackDays,
	}

	reason := ""
	if f.isLongWindow(window) && len(bars) < window.LookbackDays {
		if len(bars) < f.cfg.LongWindowMinBars {
			return nil, fmt.Sprintf("history too short: %d bars < %d", len(bars), f.cfg.LongWindowMinBars)
		}
		series.Degraded = true
		reason = fmt.Sprintf("history shorter than lookback: %d of %d bars", len(bars), window.LookbackDays)
	}
	if window.IsAnchored() {
		// 상장일이 기준일보다 늦으면 실제 기간이 짧아짐
		gapDays := (dateOf(bars[0].Time).Unix() - dateOf(*window.Anchor).Unix()) / secondsPerDay
		if gapDays > anchorGapDays {
			series.Degraded = true
			reason = fmt.Sprintf("history starts %d days after anchor %s", gapDays, window.Anchor.Format("2006-01-02"))
		}
	}

	f.engine.Enrich(series)
	return series, reason
}

func reasonText(res quality.Result) string {
	if res.Field != "" {
		return fmt.Sprintf("%s: %s", res.Reason, res.Field)
	}
	return string(res.Reason)
}

func attemptErrorLabel(err error) string {
	switch {
	case errors.Is(err, errEmptyResponse):
		return "empty"
	case errors.Is(err, errTimeout):
		return "timeout"
	default:
		return "error"
	}
}
