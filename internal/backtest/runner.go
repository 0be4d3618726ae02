package backtest

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/metrics"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

// TaskState is a step of the task state machine
type TaskState string

const (
	StateCreated   TaskState = "created"
	StateResolving TaskState = "resolving"
	StateFetching  TaskState = "fetching"
	StateScoring   TaskState = "scoring"
	StateSelecting TaskState = "selecting"
	StateSucceeded TaskState = "succeeded"
	StateFailed    TaskState = "failed"
)

// WindowResolver resolves a lookback spec
type WindowResolver interface {
	Resolve(spec contracts.LookbackSpec) (contracts.Window, error)
}

// FetchCoordinator fetches a ticker universe
type FetchCoordinator interface {
	FetchAll(ctx context.Context, tickers []string, window contracts.Window, workers int) (map[string]*contracts.Series, contracts.FetchReport, error)
}

// Scorer computes a momentum score for one series
type Scorer interface {
	Score(s *contracts.Series, window contracts.Window) contracts.MomentumScore
}

// Ranker selects the top N scores
type Ranker interface {
	Select(scores []contracts.MomentumScore, topN int) (contracts.RankedSelection, error)
}

// RunnerConfig holds task defaults
type RunnerConfig struct {
	DefaultTopN    int
	DefaultWorkers int
}

// Runner executes one task and is the failure-containment boundary:
// every error or panic becomes a failed outcome.
// ⭐ SSOT: 단일 백테스트 태스크 실행은 여기서만
type Runner struct {
	resolver    WindowResolver
	coordinator FetchCoordinator
	scorer      Scorer
	selector    Ranker
	cfg         RunnerConfig
	logger      *logger.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewRunner creates a runner. m may be nil.
func NewRunner(
	resolver WindowResolver,
	coordinator FetchCoordinator,
	scorer Scorer,
	selector Ranker,
	cfg RunnerConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *Runner {
	if cfg.DefaultTopN < 1 {
		cfg.DefaultTopN = 3
	}
	if cfg.DefaultWorkers < 1 {
		cfg.DefaultWorkers = 3
	}
	return &Runner{
		resolver:    resolver,
		coordinator: coordinator,
		scorer:      scorer,
		selector:    selector,
		cfg:         cfg,
		logger:      log.WithModule("task_runner"),
		metrics:     m,
		now:         time.Now,
	}
}

// Run executes a standalone task
func (r *Runner) Run(ctx context.Context, task contracts.BacktestTask) contracts.BacktestOutcome {
	return r.RunIndexed(ctx, 0, task)
}

// RunIndexed executes a task that sits at index in a batch
func (r *Runner) RunIndexed(ctx context.Context, index int, task contracts.BacktestTask) (outcome contracts.BacktestOutcome) {
	started := r.now()
	log := r.logger.WithFields(map[string]interface{}{
		"task":  index,
		"label": task.DisplayLabel(),
		"spec":  task.Spec.String(),
	})

	outcome = contracts.BacktestOutcome{
		TaskIndex: index,
		Label:     task.DisplayLabel(),
		Spec:      task.Spec.String(),
	}
	state := StateCreated

	defer func() {
		if rec := recover(); rec != nil {
			log.WithFields(map[string]interface{}{
				"state": state,
				"panic": fmt.Sprint(rec),
				"stack": string(debug.Stack()),
			}).Error("Task panicked")
			outcome = r.fail(outcome, state, contracts.NewError(contracts.KindInternal, stageOf(state),
				fmt.Sprintf("panic: %v", rec), nil), log)
		}
		outcome.CompletedAt = r.now()
		r.metrics.TaskOutcome(outcome.Success, string(outcome.ErrorKind), outcome.CompletedAt.Sub(started))
	}()

	// Created → Resolving
	state = r.transition(log, state, StateResolving)
	window, err := r.resolver.Resolve(task.Spec)
	if err != nil {
		return r.fail(outcome, state, asEngineError(err, contracts.StageResolve), log)
	}
	outcome.Window = &window

	// Resolving → Fetching
	state = r.transition(log, state, StateFetching)
	workers := task.Concurrency
	if workers < 1 {
		workers = r.cfg.DefaultWorkers
	}
	series, report, err := r.coordinator.FetchAll(ctx, task.Tickers, window, workers)
	outcome.FetchReport = &report
	if err != nil {
		return r.fail(outcome, state, asEngineError(err, contracts.StageFetch), log)
	}

	// Fetching → Scoring (input order is kept for the ranking tiebreak)
	state = r.transition(log, state, StateScoring)
	scores := make([]contracts.MomentumScore, 0, len(series))
	for _, ticker := range report.Fetched {
		s, ok := series[ticker]
		if !ok {
			continue
		}
		scores = append(scores, r.scorer.Score(s, window))
	}

	// Scoring → Selecting
	state = r.transition(log, state, StateSelecting)
	topN := task.TopN
	if topN < 1 {
		topN = r.cfg.DefaultTopN
	}
	selection, err := r.selector.Select(scores, topN)
	if err != nil {
		return r.fail(outcome, state, asEngineError(err, contracts.StageSelect), log)
	}

	// Selecting → Succeeded
	state = r.transition(log, state, StateSucceeded)
	outcome.Success = true
	outcome.Selection = selection

	log.WithFields(map[string]interface{}{
		"selected": selection.Tickers(),
		"fetched":  len(report.Fetched),
		"degraded": len(report.Degraded),
		"failed":   len(report.Failed),
	}).Info("Task succeeded")

	return outcome
}

func (r *Runner) transition(log *logger.Logger, from, to TaskState) TaskState {
	log.WithFields(map[string]interface{}{
		"from": from,
		"to":   to,
	}).Debug("Task state transition")
	r.metrics.TaskTransition(string(from), string(to))
	return to
}

func (r *Runner) fail(outcome contracts.BacktestOutcome, from TaskState, err *contracts.EngineError, log *logger.Logger) contracts.BacktestOutcome {
	outcome.Success = false
	outcome.Selection = nil
	outcome.ErrorKind = err.Kind
	outcome.ErrorDetail = err.Error()
	outcome.FailedStage = err.Stage
	r.metrics.TaskTransition(string(from), string(StateFailed))

	entry := log.WithFields(map[string]interface{}{
		"from":       from,
		"to":         StateFailed,
		"error_kind": err.Kind,
		"stage":      err.Stage,
	}).WithError(err)
	if err.Kind == contracts.KindInternal {
		entry.Error("Task failed")
	} else {
		entry.Warn("Task failed")
	}
	return outcome
}

// asEngineError keeps engine errors as they are and turns anything else into Internal
func asEngineError(err error, stage contracts.Stage) *contracts.EngineError {
	if kind := contracts.KindOf(err); kind != contracts.KindInternal {
		s := contracts.StageOf(err)
		if s == "" {
			s = stage
		}
		return contracts.NewError(kind, s, messageOf(err), nil)
	}
	return contracts.NewError(contracts.KindInternal, stage, err.Error(), nil)
}

func messageOf(err error) string {
	if ee, ok := err.(*contracts.EngineError); ok {
		if ee.Cause != nil {
			return fmt.Sprintf("%s: %v", ee.Message, ee.Cause)
		}
		return ee.Message
	}
	return err.Error()
}

func stageOf(state TaskState) contracts.Stage {
	switch state {
	case StateResolving:
		return contracts.StageResolve
	case StateFetching:
		return contracts.StageFetch
	case StateScoring:
		return contracts.StageScore
	case StateSelecting:
		return contracts.StageSelect
	default:
		return contracts.StageTask
	}
}
