package factors

import "math"

// Indicator windows
const (
	MAShortWindow    = 5
	MALongWindow     = 20
	VolatilityWindow = 20
	OscillatorWindow = 14
	VolumeWindow     = 20
)

// MovingAverage returns the trailing mean of values over window.
// The first window-1 entries are NaN.
func MovingAverage(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window < 1 {
		return out
	}

	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// DailyReturns returns (c[t] - c[t-1]) / c[t-1]; index 0 and zero bases are NaN
func DailyReturns(closes []float64) []float64 {
	out := nanSlice(len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			out[i] = (closes[i] - closes[i-1]) / closes[i-1]
		}
	}
	return out
}

// RollingVolatility is the trailing sample standard deviation (ddof = 1).
// A window containing any NaN yields NaN.
func RollingVolatility(returns []float64, window int) []float64 {
	out := nanSlice(len(returns))
	if window < 2 {
		return out
	}

	for i := window - 1; i < len(returns); i++ {
		seg := returns[i-window+1 : i+1]
		if hasNaN(seg) {
			continue
		}
		out[i] = sampleStd(seg)
	}
	return out
}

// Oscillator is the RSI-style oscillator over window.
// Gains and losses are averaged with a simple trailing mean; the first delta counts as 0.
// A zero mean loss yields 100.
func Oscillator(closes []float64, window int) []float64 {
	n := len(closes)
	out := nanSlice(n)
	if window < 1 || n < window {
		return out
	}

	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else if delta < 0 {
			losses[i] = -delta
		}
	}

	avgGain := MovingAverage(gains, window)
	avgLoss := MovingAverage(losses, window)

	for i := window - 1; i < n; i++ {
		out[i] = oscillatorValue(avgGain[i], avgLoss[i])
	}
	return out
}

func oscillatorValue(avgGain, avgLoss float64) float64 {
	// 손실 평균 0 → RS = +∞ → 100
	if avgLoss <= 1e-12 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

func sampleStd(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return math.NaN()
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= n

	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / (n - 1))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0.0
	}
	return v
}
