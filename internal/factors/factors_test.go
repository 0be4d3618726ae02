package factors

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

func seriesFrom(closes, volumes []float64) *contracts.Series {
	s := &contracts.Series{Ticker: "TEST"}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		v := 1000.0
		if volumes != nil {
			v = volumes[i]
		}
		s.Bars = append(s.Bars, contracts.Bar{
			Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: v,
		})
	}
	return s
}

func TestMovingAverage(t *testing.T) {
	out := MovingAverage([]float64{1, 2, 3, 4, 5, 6}, 3)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-12)
	assert.InDelta(t, 5.0, out[5], 1e-12)
}

func TestDailyReturns(t *testing.T) {
	out := DailyReturns([]float64{100, 110, 99})
	assert.True(t, math.IsNaN(out[0]))
	assert.InDelta(t, 0.1, out[1], 1e-12)
	assert.InDelta(t, -0.1, out[2], 1e-12)
}

func TestRollingVolatility(t *testing.T) {
	returns := []float64{math.NaN(), 0.01, 0.03, 0.02}
	out := RollingVolatility(returns, 3)

	assert.True(t, math.IsNaN(out[2]), "window containing NaN")
	assert.InDelta(t, 0.01, out[3], 1e-12) // sample std of 0.01, 0.03, 0.02
}

func TestOscillator(t *testing.T) {
	t.Run("short series is undefined", func(t *testing.T) {
		out := Oscillator([]float64{1, 2, 3}, 14)
		for _, v := range out {
			assert.True(t, math.IsNaN(v))
		}
	})

	t.Run("only gains gives 100", func(t *testing.T) {
		closes := make([]float64, 20)
		for i := range closes {
			closes[i] = float64(100 + i)
		}
		out := Oscillator(closes, 14)
		assert.True(t, math.IsNaN(out[12]))
		assert.Equal(t, 100.0, out[13])
		assert.Equal(t, 100.0, out[19])
	})

	t.Run("flat prices give 100", func(t *testing.T) {
		closes := make([]float64, 15)
		for i := range closes {
			closes[i] = 50
		}
		assert.Equal(t, 100.0, Oscillator(closes, 14)[14])
	})

	t.Run("alternating moves stay in range", func(t *testing.T) {
		closes := []float64{10, 12, 11, 13, 12, 14, 13, 15, 14, 16, 15, 17, 16, 18, 17}
		out := Oscillator(closes, 14)
		last := out[len(out)-1]
		// gains 7×2=14, losses 7×1=7 over the window → RS 2 → 66.67
		assert.InDelta(t, 100-100/3.0, last, 1e-9)
		assert.GreaterOrEqual(t, last, 0.0)
		assert.LessOrEqual(t, last, 100.0)
	})
}

func TestPriceMomentum(t *testing.T) {
	tests := []struct {
		name     string
		closes   []float64
		lookback int
		anchored bool
		want     float64
	}{
		{"indexed base", []float64{100, 110, 121}, 2, false, 0.1},
		{"shorter than lookback uses first", []float64{100, 110, 121}, 10, false, 0.21},
		{"exact length uses first", []float64{100, 110, 121}, 3, false, 0.21},
		{"anchored uses first", []float64{100, 110, 121}, 2, true, 0.21},
		{"single bar", []float64{100}, 1, false, 0},
		{"empty", nil, 5, false, 0},
		{"zero base", []float64{0, 10}, 2, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PriceMomentum(tt.closes, tt.lookback, tt.anchored), 1e-9)
		})
	}
}

func TestVolumeMomentum(t *testing.T) {
	vols := []float64{10, 10, 10, 10, 10, 100, 100, 100, 100, 100}
	assert.InDelta(t, 9.0, VolumeMomentum(vols, 5), 1e-12)

	assert.Equal(t, 0.0, VolumeMomentum(vols[:4], 5), "shorter than window")
	assert.Equal(t, 0.0, VolumeMomentum(vols[:5], 5), "no prior bars")
	assert.Equal(t, 0.0, VolumeMomentum([]float64{0, 0, 5, 5}, 2), "zero prior mean")
}

func TestOscillatorMomentum(t *testing.T) {
	assert.Equal(t, 1.0, OscillatorMomentum(100))
	assert.Equal(t, 0.0, OscillatorMomentum(50))
	assert.Equal(t, -1.0, OscillatorMomentum(0))
	assert.Equal(t, 0.0, OscillatorMomentum(math.NaN()))
}

func TestCompositeWeights(t *testing.T) {
	w := DefaultWeights()
	cases := [][3]float64{
		{0.1, 9.0, 0.5},
		{-0.3, 0, -1},
		{1e6, -2.5, 0.333},
	}
	for _, c := range cases {
		want := 0.7*c[0] + 0.2*c[1] + 0.1*c[2]
		assert.InDelta(t, want, w.Composite(c[0], c[1], c[2]), 1e-9)
	}
}

func TestEngineEnrich(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i%4)
	}
	s := seriesFrom(closes, nil)

	NewEngine(logger.Nop()).Enrich(s)

	ind := s.Indicators
	require.Len(t, ind.MAShort, 30)
	require.Len(t, ind.Oscillator, 30)
	assert.True(t, math.IsNaN(ind.MAShort[3]))
	assert.False(t, math.IsNaN(ind.MAShort[4]))
	assert.True(t, math.IsNaN(ind.MALong[18]))
	assert.False(t, math.IsNaN(ind.MALong[19]))
	assert.True(t, math.IsNaN(ind.Volatility[19]))
	assert.False(t, math.IsNaN(ind.Volatility[20]))
	assert.False(t, math.IsNaN(ind.Oscillator[13]))
}

func TestEngineScore(t *testing.T) {
	engine := NewEngine(logger.Nop())

	t.Run("composite matches weights", func(t *testing.T) {
		closes := make([]float64, 40)
		vols := make([]float64, 40)
		for i := range closes {
			closes[i] = 100 + float64(i) + float64(i%3)
			vols[i] = float64(1000 + 10*i)
		}
		s := seriesFrom(closes, vols)
		engine.Enrich(s)

		score := engine.Score(s, contracts.Window{LookbackDays: 20, Mode: contracts.LookbackDays})
		assert.Equal(t, "TEST", score.Ticker)
		assert.InDelta(t, 0.7*score.Price+0.2*score.Volume+0.1*score.Oscillator, score.Composite, 1e-9)
		assert.Greater(t, score.Price, 0.0)
		assert.Greater(t, score.Volume, 0.0)
	})

	t.Run("short series degrades to price only", func(t *testing.T) {
		s := seriesFrom([]float64{100, 110, 121}, nil)
		engine.Enrich(s)

		score := engine.Score(s, contracts.Window{LookbackDays: 2, Mode: contracts.LookbackDays})
		assert.InDelta(t, 0.1, score.Price, 1e-9)
		assert.Equal(t, 0.0, score.Volume)
		assert.Equal(t, 0.0, score.Oscillator)
		assert.InDelta(t, 0.07, score.Composite, 1e-9)
	})

	t.Run("not enriched still scores", func(t *testing.T) {
		s := seriesFrom([]float64{100, 110, 121}, nil)
		score := engine.Score(s, contracts.Window{LookbackDays: 2, Mode: contracts.LookbackDays})
		assert.InDelta(t, 0.07, score.Composite, 1e-9)
	})

	t.Run("empty series", func(t *testing.T) {
		score := engine.Score(&contracts.Series{Ticker: "E"}, contracts.Window{LookbackDays: 5})
		assert.Equal(t, contracts.MomentumScore{Ticker: "E"}, score)
	})
}

func TestWeightsValid(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{"defaults", DefaultWeights(), false},
		{"price only", Weights{Price: 1}, false},
		{"sum too high", Weights{Price: 0.8, Volume: 0.2, Oscillator: 0.1}, true},
		{"negative", Weights{Price: 1.2, Volume: -0.2}, true},
		{"nan", Weights{Price: math.NaN(), Volume: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Valid()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
