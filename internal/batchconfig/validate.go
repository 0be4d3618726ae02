package batchconfig

import (
	"fmt"
	"strings"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Universe ===
	if len(cfg.Tickers) == 0 {
		return ValidationError{"tickers", "required"}
	}
	for i, t := range cfg.Tickers {
		if strings.TrimSpace(t) == "" {
			return ValidationError{fmt.Sprintf("tickers[%d]", i), "must not be empty"}
		}
	}

	if cfg.TopN < 1 {
		return ValidationError{"top_n", "must be >= 1"}
	}
	if cfg.Concurrency < 1 || cfg.Concurrency > 32 {
		return ValidationError{"concurrency", "must be in [1, 32]"}
	}

	// === Periods ===
	if len(cfg.Periods) == 0 {
		return ValidationError{"periods", "required"}
	}
	for i, p := range cfg.Periods {
		if _, err := contracts.ParseLookbackSpec(p.Spec); err != nil {
			return ValidationError{periodField(i, "spec"), err.Error()}
		}
	}

	// === Weights ===
	if cfg.Weights != nil {
		if err := cfg.Weights.Valid(); err != nil {
			return ValidationError{"weights", err.Error()}
		}
	}

	return nil
}

func periodField(i int, name string) string {
	return fmt.Sprintf("periods[%d].%s", i, name)
}
