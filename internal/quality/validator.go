package quality

import (
	"math"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// ReasonCode explains why a frame was rejected
type ReasonCode string

const (
	ReasonNone             ReasonCode = ""
	ReasonEmpty            ReasonCode = "empty"
	ReasonTooFewRecords    ReasonCode = "too_few_records"
	ReasonMissingColumn    ReasonCode = "missing_column"
	ReasonAllNullColumn    ReasonCode = "all_null_column"
	ReasonNonMonotonic     ReasonCode = "non_monotonic"
	ReasonNonPositiveClose ReasonCode = "non_positive_close"
)

// Result is a validation verdict
type Result struct {
	OK     bool
	Reason ReasonCode
	Field  contracts.Field // offending column for missing/all-null
}

func pass() Result {
	return Result{OK: true}
}

func fail(reason ReasonCode) Result {
	return Result{Reason: reason}
}

// Validate checks a raw frame against minRecords.
// Checks run in order: empty, row count, required columns present, no all-null column.
// ⭐ SSOT: 시계열 유효성 판정은 여기서만
func Validate(frame *contracts.Frame, minRecords int) Result {
	n := frame.Len()
	if n == 0 {
		return fail(ReasonEmpty)
	}
	if n < minRecords {
		return fail(ReasonTooFewRecords)
	}

	for _, field := range contracts.RequiredFields {
		col, ok := frame.Columns[field]
		if !ok || len(col) != n {
			return Result{Reason: ReasonMissingColumn, Field: field}
		}
	}

	for _, field := range contracts.RequiredFields {
		if allNaN(frame.Columns[field]) {
			return Result{Reason: ReasonAllNullColumn, Field: field}
		}
	}

	return pass()
}

func allNaN(col []float64) bool {
	for _, v := range col {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}
