package contracts

// MomentumScore is the per-ticker factor breakdown, immutable once built
// ⭐ SSOT: Composite = 0.7·Price + 0.2·Volume + 0.1·Oscillator (기본 가중치)
type MomentumScore struct {
	Ticker     string  `json:"ticker"`
	Price      float64 `json:"price_momentum"`
	Volume     float64 `json:"volume_momentum"`
	Oscillator float64 `json:"oscillator_momentum"`
	Composite  float64 `json:"composite"`
}

// RankedEntry is one row of a selection
type RankedEntry struct {
	Rank   int     `json:"rank"` // 1-based
	Ticker string  `json:"ticker"`
	Score  float64 `json:"score"`
}

// RankedSelection is the top-N ordered by score descending, ties in input order
type RankedSelection []RankedEntry

// Tickers returns the selected tickers in rank order
func (r RankedSelection) Tickers() []string {
	out := make([]string, len(r))
	for i, e := range r {
		out[i] = e.Ticker
	}
	return out
}

// AverageScore returns the mean score, 0 when empty
func (r RankedSelection) AverageScore() float64 {
	if len(r) == 0 {
		return 0
	}
	total := 0.0
	for _, e := range r {
		total += e.Score
	}
	return total / float64(len(r))
}
