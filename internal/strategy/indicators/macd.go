package indicators

import (
	"fmt"

	"cryptoSignalBot/internal/domain"
)

// MACDConfig holds configuration for the MACD indicator
type MACDConfig struct {
	FastPeriod   int
	SlowPeriod   int
	SignalPeriod int
	Retention    int
	Source       PriceSource
}

// MACDValue is one MACD sample.
type MACDValue struct {
	MACD      float64 // Fast EMA - slow EMA
	Signal    float64 // EMA of MACD
	Histogram float64 // MACD - signal
}

// MACD implements Moving Average Convergence Divergence. A value is emitted once the
// signal line is seeded, i.e. after SlowPeriod+SignalPeriod-1 candles.
type MACD struct {
	engine[MACDValue]
	config MACDConfig
	fast   *emaCalc
	slow   *emaCalc
	signal *emaCalc
}

// NewMACD creates a new MACD indicator instance
func NewMACD(config MACDConfig) (*MACD, error) {
	if config.FastPeriod <= 0 || config.SlowPeriod <= 0 || config.SignalPeriod <= 0 {
		return nil, fmt.Errorf("MACD: %w: periods must be positive", ErrInvalidConfig)
	}
	if config.FastPeriod >= config.SlowPeriod {
		return nil, fmt.Errorf("MACD: %w: fast period %d must be below slow period %d", ErrInvalidConfig, config.FastPeriod, config.SlowPeriod)
	}
	m := &MACD{
		config: config,
		fast:   newEMACalc(config.FastPeriod),
		slow:   newEMACalc(config.SlowPeriod),
		signal: newEMACalc(config.SignalPeriod),
	}
	name := fmt.Sprintf("MACD(%d,%d,%d)", config.FastPeriod, config.SlowPeriod, config.SignalPeriod)
	m.engine = newEngine(name, config.SlowPeriod+config.SignalPeriod-1, config.Retention, m.step)
	return m, nil
}

func (m *MACD) step(c domain.Candle) (MACDValue, bool) {
	price := m.config.Source.of(c)
	fast, _ := m.fast.add(price)
	slow, ok := m.slow.add(price)
	if !ok {
		return MACDValue{}, false
	}
	line := fast - slow
	signal, ok := m.signal.add(line)
	if !ok {
		return MACDValue{}, false
	}
	return MACDValue{MACD: line, Signal: signal, Histogram: line - signal}, true
}

// Reset implements Indicator.
func (m *MACD) Reset() {
	m.resetEngine()
	m.fast.reset()
	m.slow.reset()
	m.signal.reset()
}
