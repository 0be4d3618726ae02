package quality

import (
	"math"
	"sort"
	"time"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// DropIncomplete returns a copy of frame without rows that have a NaN
// in any required column the frame carries.
// Columns the provider omitted are left for Validate to report.
func DropIncomplete(frame *contracts.Frame) *contracts.Frame {
	if frame == nil {
		return &contracts.Frame{Columns: map[contracts.Field][]float64{}}
	}

	n := frame.Len()
	keep := make([]int, 0, n)
	for i := 0; i < n; i++ {
		complete := true
		for _, field := range contracts.RequiredFields {
			col, ok := frame.Columns[field]
			if !ok {
				continue
			}
			if i >= len(col) || math.IsNaN(col[i]) {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, i)
		}
	}

	out := &contracts.Frame{
		Ticker:     frame.Ticker,
		Timestamps: make([]time.Time, len(keep)),
		Columns:    make(map[contracts.Field][]float64, len(frame.Columns)),
	}
	for j, i := range keep {
		out.Timestamps[j] = frame.Timestamps[i]
	}
	for field, col := range frame.Columns {
		dst := make([]float64, len(keep))
		for j, i := range keep {
			if i < len(col) {
				dst[j] = col[i]
			} else {
				dst[j] = math.NaN()
			}
		}
		out.Columns[field] = dst
	}
	return out
}

// Normalize converts a validated frame into bars ordered by date with
// unique dates and positive closes.
// Lenient mode sorts, keeps the last row of a duplicated date and drops close <= 0.
// Strict mode rejects the frame on the first such anomaly instead.
func Normalize(frame *contracts.Frame, strict bool) ([]contracts.Bar, Result) {
	n := frame.Len()
	bars := make([]contracts.Bar, 0, n)

	for i := 0; i < n; i++ {
		bar := contracts.Bar{
			Time:   frame.Timestamps[i],
			Open:   frame.Value(contracts.FieldOpen, i),
			High:   frame.Value(contracts.FieldHigh, i),
			Low:    frame.Value(contracts.FieldLow, i),
			Close:  frame.Value(contracts.FieldClose, i),
			Volume: frame.Value(contracts.FieldVolume, i),
		}

		if bar.Close <= 0 {
			if strict {
				return nil, fail(ReasonNonPositiveClose)
			}
			continue
		}

		if len(bars) > 0 {
			prev := bars[len(bars)-1].Time
			if !dateOf(bar.Time).After(dateOf(prev)) && strict {
				return nil, fail(ReasonNonMonotonic)
			}
		}
		bars = append(bars, bar)
	}

	if strict {
		return bars, pass()
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})

	// dedupe by calendar date, last row wins
	out := bars[:0]
	for _, bar := range bars {
		if len(out) > 0 && dateOf(out[len(out)-1].Time).Equal(dateOf(bar.Time)) {
			out[len(out)-1] = bar
			continue
		}
		out = append(out, bar)
	}

	if len(out) == 0 {
		return nil, fail(ReasonEmpty)
	}
	return out, pass()
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
