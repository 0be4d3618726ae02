package handlers

import (
	"strings"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// TaskRequest is the body of POST /api/backtest/task
type TaskRequest struct {
	Spec        string   `json:"spec" validate:"required"`
	Label       string   `json:"label"`
	Tickers     []string `json:"tickers" validate:"required,min=1,max=200,dive,required,max=20"`
	TopN        int      `json:"top_n" validate:"omitempty,min=1,max=200"`
	Concurrency int      `json:"concurrency" validate:"omitempty,min=1,max=32"`
}

// PeriodRequest is one period of a batch
type PeriodRequest struct {
	Spec  string `json:"spec" validate:"required"`
	Label string `json:"label"`
}

// BatchRequest is the body of POST /api/backtest/batch and the first /ws/backtest message
type BatchRequest struct {
	Tickers     []string        `json:"tickers" validate:"required,min=1,max=200,dive,required,max=20"`
	TopN        int             `json:"top_n" validate:"omitempty,min=1,max=200"`
	Concurrency int             `json:"concurrency" validate:"omitempty,min=1,max=32"`
	Periods     []PeriodRequest `json:"periods" validate:"required,min=1,max=50,dive"`
}

// Task builds the task. The spec text is resolved by the runner so a bad
// spec becomes an InvalidSpec outcome.
func (r TaskRequest) Task() contracts.BacktestTask {
	return contracts.BacktestTask{
		Spec:        contracts.RawSpec(r.Spec),
		Label:       strings.TrimSpace(r.Label),
		Tickers:     r.Tickers,
		TopN:        r.TopN,
		Concurrency: r.Concurrency,
	}
}

// Tasks builds one task per period, in request order
func (r BatchRequest) Tasks() []contracts.BacktestTask {
	tasks := make([]contracts.BacktestTask, len(r.Periods))
	for i, p := range r.Periods {
		tasks[i] = TaskRequest{
			Spec:        p.Spec,
			Label:       p.Label,
			Tickers:     r.Tickers,
			TopN:        r.TopN,
			Concurrency: r.Concurrency,
		}.Task()
	}
	return tasks
}
