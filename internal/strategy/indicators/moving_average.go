package indicators

import (
	"fmt"

	"cryptoSignalBot/internal/domain"
)

// SMA implements the Simple Moving Average indicator
type SMA struct {
	engine[float64]
	config IndicatorConfig
	calc   *smaCalc
}

// NewSMA creates a new SMA indicator instance
func NewSMA(config IndicatorConfig) (*SMA, error) {
	if err := config.validate("SMA"); err != nil {
		return nil, err
	}
	s := &SMA{config: config, calc: newSMACalc(config.Period)}
	s.engine = newEngine(fmt.Sprintf("SMA(%d)", config.Period), config.Period, config.Retention, s.step)
	return s, nil
}

func (s *SMA) step(c domain.Candle) (float64, bool) {
	return s.calc.add(s.config.Source.of(c))
}

// Reset implements Indicator.
func (s *SMA) Reset() {
	s.resetEngine()
	s.calc.reset()
}

// EMA implements the Exponential Moving Average indicator
type EMA struct {
	engine[float64]
	config IndicatorConfig
	calc   *emaCalc
}

// NewEMA creates a new EMA indicator instance. The first value is the SMA of the first
// Period prices; later values use the 2/(Period+1) multiplier.
func NewEMA(config IndicatorConfig) (*EMA, error) {
	if err := config.validate("EMA"); err != nil {
		return nil, err
	}
	e := &EMA{config: config, calc: newEMACalc(config.Period)}
	e.engine = newEngine(fmt.Sprintf("EMA(%d)", config.Period), config.Period, config.Retention, e.step)
	return e, nil
}

func (e *EMA) step(c domain.Candle) (float64, bool) {
	return e.calc.add(e.config.Source.of(c))
}

// Reset implements Indicator.
func (e *EMA) Reset() {
	e.resetEngine()
	e.calc.reset()
}

// SMMA implements the Smoothed (Wilder) Moving Average.
type SMMA struct {
	engine[float64]
	config IndicatorConfig
	calc   *wilder
}

// NewSMMA creates a new SMMA indicator instance
func NewSMMA(config IndicatorConfig) (*SMMA, error) {
	if err := config.validate("SMMA"); err != nil {
		return nil, err
	}
	s := &SMMA{config: config, calc: newWilder(config.Period)}
	s.engine = newEngine(fmt.Sprintf("SMMA(%d)", config.Period), config.Period, config.Retention, s.step)
	return s, nil
}

func (s *SMMA) step(c domain.Candle) (float64, bool) {
	return s.calc.add(s.config.Source.of(c))
}

// Reset implements Indicator.
func (s *SMMA) Reset() {
	s.resetEngine()
	s.calc.reset()
}
