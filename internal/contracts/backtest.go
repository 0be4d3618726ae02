package contracts

import "time"

// BacktestTask is one ranking run for one period over one ticker universe
type BacktestTask struct {
	Spec        LookbackSpec
	Label       string
	Tickers     []string
	TopN        int
	Concurrency int
}

// DisplayLabel falls back to the spec text when no label was given
func (t BacktestTask) DisplayLabel() string {
	if t.Label != "" {
		return t.Label
	}
	return t.Spec.String()
}

// FetchReport records per-ticker fetch results of one task
type FetchReport struct {
	Requested int               `json:"requested"`
	Fetched   []string          `json:"fetched"`
	Degraded  []string          `json:"degraded,omitempty"`
	Failed    map[string]string `json:"failed,omitempty"` // ticker → reason
}

// BacktestOutcome is the write-once result of one task.
// Success carries Selection; failure carries ErrorKind and ErrorDetail.
type BacktestOutcome struct {
	TaskIndex   int             `json:"task_index"`
	Label       string          `json:"label"`
	Spec        string          `json:"spec"`
	Success     bool            `json:"success"`
	Selection   RankedSelection `json:"selection,omitempty"`
	ErrorKind   ErrorKind       `json:"error_kind,omitempty"`
	ErrorDetail string          `json:"error_detail,omitempty"`
	FailedStage Stage           `json:"failed_stage,omitempty"`
	Window      *Window         `json:"window,omitempty"`
	FetchReport *FetchReport    `json:"fetch_report,omitempty"`
	CompletedAt time.Time       `json:"completed_at"`
}

// PeriodPerformance is one entry of the best-periods list
type PeriodPerformance struct {
	TaskIndex int      `json:"task_index"`
	Label     string   `json:"label"`
	AvgScore  float64  `json:"avg_score"`
	Tickers   []string `json:"tickers"`
}

// InstrumentStat aggregates one ticker across succeeded tasks
type InstrumentStat struct {
	Ticker      string   `json:"ticker"`
	Appearances int      `json:"appearances"`
	TotalScore  float64  `json:"total_score"`
	AvgScore    float64  `json:"avg_score"`
	AvgRank     float64  `json:"avg_rank"`
	Consistency float64  `json:"consistency"`
	Periods     []string `json:"periods"`
}

// FailureDetail describes one failed task
type FailureDetail struct {
	TaskIndex int       `json:"task_index"`
	Label     string    `json:"label"`
	Kind      ErrorKind `json:"error_kind"`
	Detail    string    `json:"detail"`
}

// BatchSummary aggregates a full batch
type BatchSummary struct {
	BatchID         string                    `json:"batch_id"`
	StartedAt       time.Time                 `json:"started_at"`
	CompletedAt     time.Time                 `json:"completed_at"`
	Total           int                       `json:"total"`
	Succeeded       int                       `json:"succeeded"`
	Failed          int                       `json:"failed"`
	SuccessRate     float64                   `json:"success_rate"`
	BestPeriods     []PeriodPerformance       `json:"best_periods"`
	Consistency     map[string]float64        `json:"consistency"`
	InstrumentStats map[string]InstrumentStat `json:"instrument_stats"`
	Failures        []FailureDetail           `json:"failures,omitempty"`
}
