package contracts

import (
	"math"
	"time"
)

// Field is a raw price column name
type Field string

const (
	FieldOpen   Field = "Open"
	FieldHigh   Field = "High"
	FieldLow    Field = "Low"
	FieldClose  Field = "Close"
	FieldVolume Field = "Volume"
)

// RequiredFields are the columns every provider frame must carry
var RequiredFields = []Field{FieldOpen, FieldHigh, FieldLow, FieldClose, FieldVolume}

// Frame is the raw, untrusted provider payload for one ticker.
// Missing cells are NaN; a column the provider did not return is absent from Columns.
type Frame struct {
	Ticker     string
	Timestamps []time.Time
	Columns    map[Field][]float64
}

// NewFrame allocates a frame with all required columns of length n filled with NaN
func NewFrame(ticker string, n int) *Frame {
	f := &Frame{
		Ticker:     ticker,
		Timestamps: make([]time.Time, n),
		Columns:    make(map[Field][]float64, len(RequiredFields)),
	}
	for _, field := range RequiredFields {
		col := make([]float64, n)
		for i := range col {
			col[i] = math.NaN()
		}
		f.Columns[field] = col
	}
	return f
}

// Len returns the number of rows
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Timestamps)
}

// Value returns the cell at row i, NaN when the column or row is missing
func (f *Frame) Value(field Field, i int) float64 {
	col, ok := f.Columns[field]
	if !ok || i < 0 || i >= len(col) {
		return math.NaN()
	}
	return col[i]
}

// Bar is one daily OHLCV row
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Indicators are the derived columns, aligned with Series.Bars (NaN where undefined)
type Indicators struct {
	MAShort     []float64 `json:"-"`
	MALong      []float64 `json:"-"`
	DailyReturn []float64 `json:"-"`
	Volatility  []float64 `json:"-"`
	Oscillator  []float64 `json:"-"`
}

// Series is a validated, normalized series owned by a single task
type Series struct {
	Ticker        string
	Bars          []Bar
	Indicators    Indicators
	Degraded      bool // long window served with less history than requested
	RequestedDays int
}

// Len returns the number of bars
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Closes returns the close column
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Volumes returns the volume column
func (s *Series) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Volume
	}
	return out
}
