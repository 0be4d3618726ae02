package factors

import (
	"fmt"
	"math"
)

// PriceMomentum measures the close change over the lookback.
// Days mode uses the close lookbackDays bars back, or the first close when the
// series is shorter. Anchored mode always uses the first close.
func PriceMomentum(closes []float64, lookbackDays int, anchored bool) float64 {
	n := len(closes)
	if n < 2 {
		return 0.0
	}

	base := closes[0]
	if !anchored && lookbackDays >= 1 && n >= lookbackDays {
		base = closes[n-lookbackDays]
	}
	if base == 0 {
		return 0.0
	}

	return finiteOrZero((closes[n-1] - base) / base)
}

// VolumeMomentum compares the mean volume of the last window bars with the
// mean of everything before them. Short series and zero bases give 0.
func VolumeMomentum(volumes []float64, window int) float64 {
	n := len(volumes)
	if window < 1 || n < window {
		return 0.0
	}

	prior := mean(volumes[:n-window])
	recent := mean(volumes[n-window:])
	if prior == 0 {
		return 0.0
	}

	return finiteOrZero((recent - prior) / prior)
}

// OscillatorMomentum rescales the latest oscillator reading to [-1, 1]
func OscillatorMomentum(latest float64) float64 {
	return finiteOrZero((latest - 50) / 50)
}

// Weights are the composite blend
type Weights struct {
	Price      float64 `yaml:"price" json:"price"`
	Volume     float64 `yaml:"volume" json:"volume"`
	Oscillator float64 `yaml:"oscillator" json:"oscillator"`
}

// DefaultWeights returns 0.7 / 0.2 / 0.1
func DefaultWeights() Weights {
	return Weights{Price: 0.7, Volume: 0.2, Oscillator: 0.1}
}

// Composite blends the three components
func (w Weights) Composite(price, volume, oscillator float64) float64 {
	return w.Price*price + w.Volume*volume + w.Oscillator*oscillator
}

// Valid checks that the weights are finite, non-negative and sum to 1
func (w Weights) Valid() error {
	parts := []struct {
		name  string
		value float64
	}{
		{"price", w.Price},
		{"volume", w.Volume},
		{"oscillator", w.Oscillator},
	}
	sum := 0.0
	for _, p := range parts {
		if math.IsNaN(p.value) || math.IsInf(p.value, 0) {
			return fmt.Errorf("%s weight must be finite", p.name)
		}
		if p.value < 0 {
			return fmt.Errorf("%s weight must be >= 0, got %.4f", p.name, p.value)
		}
		sum += p.value
	}
	// 부동소수점 오차 허용
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("weights must sum to 1.0, got %.6f", sum)
	}
	return nil
}
