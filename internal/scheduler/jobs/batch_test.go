package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-momentum/internal/batchconfig"
	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

type fakeRunner struct {
	tasks []contracts.BacktestTask
}

func (f *fakeRunner) RunBatch(ctx context.Context, tasks []contracts.BacktestTask) ([]contracts.BacktestOutcome, contracts.BatchSummary) {
	f.tasks = tasks
	outcomes := make([]contracts.BacktestOutcome, len(tasks))
	for i := range tasks {
		outcomes[i] = contracts.BacktestOutcome{TaskIndex: i, Success: true}
	}
	return outcomes, contracts.BatchSummary{BatchID: "b-1", Total: len(tasks), Succeeded: len(tasks), SuccessRate: 1}
}

type fakeSaver struct {
	err     error
	batchID string
	hash    string
	count   int
}

func (f *fakeSaver) SaveBatch(ctx context.Context, summary contracts.BatchSummary, outcomes []contracts.BacktestOutcome, configHash string) error {
	f.batchID = summary.BatchID
	f.hash = configHash
	f.count = len(outcomes)
	return f.err
}

func TestBatchJobRun(t *testing.T) {
	runner := &fakeRunner{}
	saver := &fakeSaver{}
	cfg := batchconfig.Default()
	job := NewBatchJob(runner, saver, cfg, "0 30 16 * * 1-5", logger.Nop())

	assert.Equal(t, "momentum_backtest", job.Name())
	assert.Equal(t, "0 30 16 * * 1-5", job.Schedule())
	assert.Nil(t, job.LastSummary())

	require.NoError(t, job.Run(context.Background()))

	assert.Len(t, runner.tasks, 9)
	assert.Equal(t, "b-1", saver.batchID)
	assert.Equal(t, 9, saver.count)
	wantHash, err := batchconfig.Hash(cfg)
	require.NoError(t, err)
	assert.Equal(t, wantHash, saver.hash)
	require.NotNil(t, job.LastSummary())
	assert.Equal(t, 1.0, job.LastSummary().SuccessRate)
}

func TestBatchJobWithoutSaver(t *testing.T) {
	job := NewBatchJob(&fakeRunner{}, nil, batchconfig.Default(), "@daily", logger.Nop())
	assert.NoError(t, job.Run(context.Background()))
}

func TestBatchJobSaveError(t *testing.T) {
	saver := &fakeSaver{err: errors.New("connection refused")}
	job := NewBatchJob(&fakeRunner{}, saver, batchconfig.Default(), "@daily", logger.Nop())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save batch b-1")
}

func TestBatchJobInvalidConfig(t *testing.T) {
	cfg := batchconfig.Default()
	cfg.Periods = []batchconfig.Period{{Spec: "yesterday"}}
	runner := &fakeRunner{}
	job := NewBatchJob(runner, nil, cfg, "@daily", logger.Nop())

	assert.Error(t, job.Run(context.Background()))
	assert.Nil(t, runner.tasks)
}
