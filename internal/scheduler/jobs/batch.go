package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonny/aegis-momentum/internal/batchconfig"
	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

// BatchRunner runs a batch of tasks
type BatchRunner interface {
	RunBatch(ctx context.Context, tasks []contracts.BacktestTask) ([]contracts.BacktestOutcome, contracts.BatchSummary)
}

// BatchSaver persists a finished batch
type BatchSaver interface {
	SaveBatch(ctx context.Context, summary contracts.BatchSummary, outcomes []contracts.BacktestOutcome, configHash string) error
}

// BatchJob runs the configured backtest batch on a schedule
// ⭐ SSOT: 정기 백테스트 배치 스케줄은 이 Job에서만
type BatchJob struct {
	runner   BatchRunner
	saver    BatchSaver
	cfg      *batchconfig.Config
	schedule string
	logger   *logger.Logger

	// 마지막 요약 (상태 조회용)
	mu   sync.RWMutex
	last *contracts.BatchSummary
}

// NewBatchJob creates a new batch job. saver may be nil when no database is configured.
func NewBatchJob(runner BatchRunner, saver BatchSaver, cfg *batchconfig.Config, schedule string, log *logger.Logger) *BatchJob {
	return &BatchJob{
		runner:   runner,
		saver:    saver,
		cfg:      cfg,
		schedule: schedule,
		logger:   log.WithModule("batch_job"),
	}
}

// Name returns the job name
func (j *BatchJob) Name() string {
	return "momentum_backtest"
}

// Schedule returns the cron schedule (with seconds)
func (j *BatchJob) Schedule() string {
	return j.schedule
}

// LastSummary returns the summary of the most recent run, nil before the first
func (j *BatchJob) LastSummary() *contracts.BatchSummary {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.last
}

// Run executes one batch. Task failures are part of the summary; only a
// broken config or a failed save is an error.
func (j *BatchJob) Run(ctx context.Context) error {
	j.logger.WithField("batch", j.cfg.Name).Info("Starting scheduled backtest batch")

	tasks, err := j.cfg.Tasks()
	if err != nil {
		return fmt.Errorf("build tasks: %w", err)
	}

	outcomes, summary := j.runner.RunBatch(ctx, tasks)
	j.mu.Lock()
	j.last = &summary
	j.mu.Unlock()

	j.logger.WithFields(map[string]interface{}{
		"batch_id":     summary.BatchID,
		"total":        summary.Total,
		"succeeded":    summary.Succeeded,
		"success_rate": summary.SuccessRate,
	}).Info("Scheduled backtest batch finished")

	if j.saver == nil {
		return nil
	}

	hash, err := batchconfig.Hash(j.cfg)
	if err != nil {
		return fmt.Errorf("hash batch config: %w", err)
	}
	if err := j.saver.SaveBatch(ctx, summary, outcomes, hash); err != nil {
		return fmt.Errorf("save batch %s: %w", summary.BatchID, err)
	}
	return nil
}
