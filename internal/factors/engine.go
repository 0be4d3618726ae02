package factors

import (
	"math"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

// Engine enriches series with indicators and scores them
// ⭐ SSOT: 모멘텀 점수 계산은 여기서만
type Engine struct {
	weights Weights
	logger  *logger.Logger
}

// NewEngine creates an engine with the default weights
func NewEngine(log *logger.Logger) *Engine {
	return NewEngineWithWeights(DefaultWeights(), log)
}

// NewEngineWithWeights creates an engine with custom weights
func NewEngineWithWeights(w Weights, log *logger.Logger) *Engine {
	return &Engine{
		weights: w,
		logger:  log.WithModule("factors"),
	}
}

// Weights returns the configured blend
func (e *Engine) Weights() Weights {
	return e.weights
}

// Enrich fills the derived indicator columns of s in place
func (e *Engine) Enrich(s *contracts.Series) {
	if s == nil {
		return
	}
	closes := s.Closes()
	returns := DailyReturns(closes)

	s.Indicators = contracts.Indicators{
		MAShort:     MovingAverage(closes, MAShortWindow),
		MALong:      MovingAverage(closes, MALongWindow),
		DailyReturn: returns,
		Volatility:  RollingVolatility(returns, VolatilityWindow),
		Oscillator:  Oscillator(closes, OscillatorWindow),
	}
}

// Score computes the momentum breakdown of s over window. It never fails:
// undefined components degrade to 0.
func (e *Engine) Score(s *contracts.Series, window contracts.Window) contracts.MomentumScore {
	score := contracts.MomentumScore{Ticker: s.Ticker}
	if s.Len() == 0 {
		return score
	}

	osc := s.Indicators.Oscillator
	if len(osc) != s.Len() {
		osc = Oscillator(s.Closes(), OscillatorWindow)
	}
	latest := math.NaN()
	if len(osc) > 0 {
		latest = osc[len(osc)-1]
	}

	score.Price = PriceMomentum(s.Closes(), window.LookbackDays, window.IsAnchored())
	score.Volume = VolumeMomentum(s.Volumes(), VolumeWindow)
	score.Oscillator = OscillatorMomentum(latest)
	score.Composite = e.weights.Composite(score.Price, score.Volume, score.Oscillator)

	e.logger.WithFields(map[string]interface{}{
		"ticker":     s.Ticker,
		"price":      score.Price,
		"volume":     score.Volume,
		"oscillator": score.Oscillator,
		"composite":  score.Composite,
	}).Debug("Calculated momentum score")

	return score
}
