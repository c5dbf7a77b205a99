package indicators

import (
	"fmt"

	"cryptoSignalBot/internal/domain"
)

// StochasticConfig holds configuration for the stochastic oscillator
type StochasticConfig struct {
	KPeriod    int
	DPeriod    int
	Retention  int
	Overbought float64
	Oversold   float64
}

// StochasticValue is one stochastic oscillator sample.
type StochasticValue struct {
	K float64
	D float64
}

// Stochastic implements the fast stochastic oscillator: %K over KPeriod highs and lows,
// %D the SMA of %K over DPeriod.
//
// Zero-denominator policy: when the highest high equals the lowest low, %K is 50.
type Stochastic struct {
	engine[StochasticValue]
	config StochasticConfig
	highs  *window
	lows   *window
	d      *smaCalc
}

// NewStochastic creates a new stochastic oscillator instance
func NewStochastic(config StochasticConfig) (*Stochastic, error) {
	if config.KPeriod <= 0 || config.DPeriod <= 0 {
		return nil, fmt.Errorf("Stochastic: %w: periods must be positive", ErrInvalidConfig)
	}
	if config.Overbought == 0 && config.Oversold == 0 {
		config.Overbought, config.Oversold = 80, 20
	}
	s := &Stochastic{
		config: config,
		highs:  newWindow(config.KPeriod),
		lows:   newWindow(config.KPeriod),
		d:      newSMACalc(config.DPeriod),
	}
	name := fmt.Sprintf("STOCH(%d,%d)", config.KPeriod, config.DPeriod)
	s.engine = newEngine(name, config.KPeriod+config.DPeriod-1, config.Retention, s.step)
	return s, nil
}

func (s *Stochastic) step(c domain.Candle) (StochasticValue, bool) {
	s.highs.push(c.High)
	s.lows.push(c.Low)
	if !s.highs.full() {
		return StochasticValue{}, false
	}
	_, highest := s.highs.minMax()
	lowest, _ := s.lows.minMax()

	k := 50.0
	if rng := highest - lowest; rng > 0 {
		k = 100 * (c.Close - lowest) / rng
	}
	d, ok := s.d.add(k)
	if !ok {
		return StochasticValue{}, false
	}
	return StochasticValue{K: k, D: d}, true
}

// Reset implements Indicator.
func (s *Stochastic) Reset() {
	s.resetEngine()
	s.highs.reset()
	s.lows.reset()
	s.d.reset()
}

// IsOverbought checks if a %K value is in the overbought zone
func (s *Stochastic) IsOverbought(k float64) bool {
	return k >= s.config.Overbought
}

// IsOversold checks if a %K value is in the oversold zone
func (s *Stochastic) IsOversold(k float64) bool {
	return k <= s.config.Oversold
}
