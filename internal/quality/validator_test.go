package quality

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// buildFrame creates a frame with the given closes; other columns derive from close
func buildFrame(closes ...float64) *contracts.Frame {
	f := contracts.NewFrame("TEST", len(closes))
	for i, c := range closes {
		f.Timestamps[i] = day0.AddDate(0, 0, i)
		f.Columns[contracts.FieldOpen][i] = c
		f.Columns[contracts.FieldHigh][i] = c
		f.Columns[contracts.FieldLow][i] = c
		f.Columns[contracts.FieldClose][i] = c
		f.Columns[contracts.FieldVolume][i] = 1000
	}
	return f
}

func TestValidate(t *testing.T) {
	nan := math.NaN()

	tests := []struct {
		name       string
		frame      func() *contracts.Frame
		minRecords int
		want       Result
	}{
		{
			name:       "valid",
			frame:      func() *contracts.Frame { return buildFrame(1, 2, 3) },
			minRecords: 2,
			want:       Result{OK: true},
		},
		{
			name:       "nil frame",
			frame:      func() *contracts.Frame { return nil },
			minRecords: 2,
			want:       Result{Reason: ReasonEmpty},
		},
		{
			name:       "empty",
			frame:      func() *contracts.Frame { return buildFrame() },
			minRecords: 2,
			want:       Result{Reason: ReasonEmpty},
		},
		{
			name:       "too few",
			frame:      func() *contracts.Frame { return buildFrame(1) },
			minRecords: 2,
			want:       Result{Reason: ReasonTooFewRecords},
		},
		{
			name: "missing volume column",
			frame: func() *contracts.Frame {
				f := buildFrame(1, 2)
				delete(f.Columns, contracts.FieldVolume)
				return f
			},
			minRecords: 2,
			want:       Result{Reason: ReasonMissingColumn, Field: contracts.FieldVolume},
		},
		{
			name: "all null high",
			frame: func() *contracts.Frame {
				f := buildFrame(1, 2)
				f.Columns[contracts.FieldHigh] = []float64{nan, nan}
				return f
			},
			minRecords: 2,
			want:       Result{Reason: ReasonAllNullColumn, Field: contracts.FieldHigh},
		},
		{
			name: "partially null is fine",
			frame: func() *contracts.Frame {
				f := buildFrame(1, 2)
				f.Columns[contracts.FieldHigh][0] = nan
				return f
			},
			minRecords: 2,
			want:       Result{OK: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.frame(), tt.minRecords))
		})
	}
}

func TestDropIncomplete(t *testing.T) {
	f := buildFrame(10, 11, 12, 13)
	f.Columns[contracts.FieldClose][1] = math.NaN()
	f.Columns[contracts.FieldVolume][3] = math.NaN()

	out := DropIncomplete(f)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, []float64{10, 12}, out.Columns[contracts.FieldClose])
	assert.Equal(t, day0.AddDate(0, 0, 2), out.Timestamps[1])

	// input untouched
	assert.Equal(t, 4, f.Len())
}

func TestDropIncompleteKeepsMissingColumnsMissing(t *testing.T) {
	f := buildFrame(10, 11)
	delete(f.Columns, contracts.FieldOpen)

	out := DropIncomplete(f)
	assert.Equal(t, 2, out.Len())
	assert.Equal(t, ReasonMissingColumn, Validate(out, 2).Reason)
}

func TestNormalizeLenient(t *testing.T) {
	f := buildFrame(10, 11, 0, 13, 14)
	// swap order of the last two rows and duplicate a date
	f.Timestamps[3], f.Timestamps[4] = f.Timestamps[4], f.Timestamps[3]
	f.Timestamps[1] = f.Timestamps[0]

	bars, res := Normalize(f, false)
	require.True(t, res.OK)

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	// duplicate date keeps last row, zero close dropped, order restored
	assert.Equal(t, []float64{11, 14, 13}, closes)
	for i := 1; i < len(bars); i++ {
		assert.True(t, bars[i].Time.After(bars[i-1].Time))
	}
}

func TestNormalizeStrict(t *testing.T) {
	t.Run("non positive close", func(t *testing.T) {
		_, res := Normalize(buildFrame(10, -1, 12), true)
		assert.Equal(t, ReasonNonPositiveClose, res.Reason)
	})

	t.Run("non monotonic", func(t *testing.T) {
		f := buildFrame(10, 11, 12)
		f.Timestamps[2] = f.Timestamps[0]
		_, res := Normalize(f, true)
		assert.Equal(t, ReasonNonMonotonic, res.Reason)
	})

	t.Run("clean", func(t *testing.T) {
		bars, res := Normalize(buildFrame(10, 11, 12), true)
		assert.True(t, res.OK)
		assert.Len(t, bars, 3)
	})
}

func TestNormalizeAllNonPositive(t *testing.T) {
	_, res := Normalize(buildFrame(0, 0), false)
	assert.Equal(t, ReasonEmpty, res.Reason)
}
