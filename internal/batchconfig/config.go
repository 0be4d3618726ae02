package batchconfig

import (
	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/factors"
)

// Config는 백테스트 배치 전체 설정
type Config struct {
	Name        string           `yaml:"name" json:"name"`
	Tickers     []string         `yaml:"tickers" json:"tickers"`
	TopN        int              `yaml:"top_n" json:"top_n"`
	Concurrency int              `yaml:"concurrency" json:"concurrency"`
	Periods     []Period         `yaml:"periods" json:"periods"`
	Weights     *factors.Weights `yaml:"weights,omitempty" json:"weights,omitempty"`
}

// Period is one lookback to backtest. Spec is a day count or a YYYY-MM-DD anchor.
type Period struct {
	Spec  string `yaml:"spec" json:"spec"`
	Label string `yaml:"label" json:"label"`
}

// DefaultTickers is the universe used when none is configured
var DefaultTickers = []string{"AAPL", "MSFT", "TSLA", "NVDA", "AMZN"}

// DefaultPeriods are the nine standard backtest periods
var DefaultPeriods = []Period{
	{Spec: "30", Label: "1 month"},
	{Spec: "60", Label: "2 months"},
	{Spec: "90", Label: "3 months"},
	{Spec: "180", Label: "6 months"},
	{Spec: "365", Label: "1 year"},
	{Spec: "730", Label: "2 years"},
	{Spec: "2020-01-01", Label: "since 2020"},
	{Spec: "2021-01-01", Label: "since 2021"},
	{Spec: "2022-01-01", Label: "since 2022"},
}

// Default returns the built-in batch
func Default() *Config {
	return &Config{
		Name:        "default",
		Tickers:     append([]string(nil), DefaultTickers...),
		TopN:        3,
		Concurrency: 3,
		Periods:     append([]Period(nil), DefaultPeriods...),
	}
}

// EffectiveWeights returns the configured weights or the defaults
func (c *Config) EffectiveWeights() factors.Weights {
	if c.Weights != nil {
		return *c.Weights
	}
	return factors.DefaultWeights()
}

// Tasks turns every period into a task over the shared ticker universe.
// Specs are parsed here so an invalid period fails before any fetch.
func (c *Config) Tasks() ([]contracts.BacktestTask, error) {
	tasks := make([]contracts.BacktestTask, 0, len(c.Periods))
	for i, p := range c.Periods {
		spec, err := contracts.ParseLookbackSpec(p.Spec)
		if err != nil {
			return nil, ValidationError{Field: periodField(i, "spec"), Message: err.Error()}
		}
		tasks = append(tasks, contracts.BacktestTask{
			Spec:        spec,
			Label:       p.Label,
			Tickers:     append([]string(nil), c.Tickers...),
			TopN:        c.TopN,
			Concurrency: c.Concurrency,
		})
	}
	return tasks, nil
}
