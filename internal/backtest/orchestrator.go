package backtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/metrics"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

// TaskRunner runs one indexed task
type TaskRunner interface {
	RunIndexed(ctx context.Context, index int, task contracts.BacktestTask) contracts.BacktestOutcome
}

// Observer is notified as each task completes. Calls are serialized.
type Observer func(outcome contracts.BacktestOutcome)

// Orchestrator runs a batch of tasks concurrently and aggregates the results
type Orchestrator struct {
	runner   TaskRunner
	bestK    int
	logger   *logger.Logger
	metrics  *metrics.Metrics
	observer Observer
	now      func() time.Time
}

// NewOrchestrator creates an orchestrator. m may be nil.
func NewOrchestrator(runner TaskRunner, bestK int, log *logger.Logger, m *metrics.Metrics) *Orchestrator {
	if bestK < 1 {
		bestK = 3
	}
	return &Orchestrator{
		runner:  runner,
		bestK:   bestK,
		logger:  log.WithModule("orchestrator"),
		metrics: m,
		now:     time.Now,
	}
}

// WithObserver returns a copy of o that reports every completed task to fn
func (o *Orchestrator) WithObserver(fn Observer) *Orchestrator {
	cp := *o
	cp.observer = fn
	return &cp
}

// RunBatch runs every task concurrently. outcomes[i] always belongs to tasks[i],
// and one task's failure never affects another.
func (o *Orchestrator) RunBatch(ctx context.Context, tasks []contracts.BacktestTask) ([]contracts.BacktestOutcome, contracts.BatchSummary) {
	return o.RunBatchObserved(ctx, tasks, o.observer)
}

// RunBatchObserved is RunBatch with a per-call observer. fn may be nil.
func (o *Orchestrator) RunBatchObserved(ctx context.Context, tasks []contracts.BacktestTask, fn Observer) ([]contracts.BacktestOutcome, contracts.BatchSummary) {
	batchID := uuid.New().String()
	startedAt := o.now()
	log := o.logger.WithFields(map[string]interface{}{
		"batch_id": batchID,
		"tasks":    len(tasks),
	})
	log.Info("Batch started")

	outcomes := make([]contracts.BacktestOutcome, len(tasks))
	var (
		wg      sync.WaitGroup
		notifyM sync.Mutex
	)

	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task contracts.BacktestTask) {
			defer wg.Done()
			outcomes[i] = o.runOne(ctx, i, task)

			if fn != nil {
				notifyM.Lock()
				defer notifyM.Unlock()
				o.notify(fn, outcomes[i])
			}
		}(i, task)
	}
	wg.Wait()

	summary := Summarize(batchID, outcomes, o.bestK, startedAt, o.now())
	o.metrics.BatchSuccessRate(summary.SuccessRate)

	log.WithFields(map[string]interface{}{
		"succeeded":    summary.Succeeded,
		"failed":       summary.Failed,
		"success_rate": summary.SuccessRate,
		"duration":     summary.CompletedAt.Sub(startedAt).String(),
	}).Info("Batch completed")

	return outcomes, summary
}

// notify calls the observer; an observer panic never reaches the batch
func (o *Orchestrator) notify(fn Observer, outcome contracts.BacktestOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.WithFields(map[string]interface{}{
				"task":  outcome.TaskIndex,
				"panic": fmt.Sprint(rec),
			}).Error("Batch observer panicked")
		}
	}()
	fn(outcome)
}

// runOne keeps a runner panic inside its own slot
func (o *Orchestrator) runOne(ctx context.Context, i int, task contracts.BacktestTask) (outcome contracts.BacktestOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.WithFields(map[string]interface{}{
				"task":  i,
				"panic": fmt.Sprint(rec),
			}).Error("Task runner panicked")
			outcome = contracts.BacktestOutcome{
				TaskIndex:   i,
				Label:       task.DisplayLabel(),
				Spec:        task.Spec.String(),
				ErrorKind:   contracts.KindInternal,
				ErrorDetail: fmt.Sprintf("panic: %v", rec),
				FailedStage: contracts.StageTask,
				CompletedAt: o.now(),
			}
		}
	}()
	return o.runner.RunIndexed(ctx, i, task)
}
