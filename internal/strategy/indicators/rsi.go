package indicators

import (
	"fmt"

	"cryptoSignalBot/internal/domain"
)

// RSIConfig holds configuration for the RSI indicator
type RSIConfig struct {
	IndicatorConfig
	Overbought float64
	Oversold   float64
}

// RSI implements the Relative Strength Index using Wilder's smoothing.
//
// Zero-denominator policy: when the average loss is zero the RSI is 100, and when
// the average gain is zero as well (flat prices) it is 50.
type RSI struct {
	engine[float64]
	config    RSIConfig
	avgGain   *wilder
	avgLoss   *wilder
	prevPrice float64
	hasPrev   bool
}

// NewRSI creates a new RSI indicator instance. The first value needs Period+1 candles.
func NewRSI(config RSIConfig) (*RSI, error) {
	if err := config.validate("RSI"); err != nil {
		return nil, err
	}
	if config.Overbought == 0 && config.Oversold == 0 {
		config.Overbought, config.Oversold = 70, 30
	}
	if config.Oversold >= config.Overbought {
		return nil, fmt.Errorf("RSI: %w: oversold %.2f must be below overbought %.2f", ErrInvalidConfig, config.Oversold, config.Overbought)
	}
	r := &RSI{
		config:  config,
		avgGain: newWilder(config.Period),
		avgLoss: newWilder(config.Period),
	}
	r.engine = newEngine(fmt.Sprintf("RSI(%d)", config.Period), config.Period+1, config.Retention, r.step)
	return r, nil
}

func (r *RSI) step(c domain.Candle) (float64, bool) {
	price := r.config.Source.of(c)
	if !r.hasPrev {
		r.prevPrice, r.hasPrev = price, true
		return 0, false
	}
	change := price - r.prevPrice
	r.prevPrice = price

	var gain, loss float64
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}
	g, ready := r.avgGain.add(gain)
	l, _ := r.avgLoss.add(loss)
	if !ready {
		return 0, false
	}
	return rsiValue(g, l), true
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50 // Neutral if no change
		}
		return 100 // Max RSI if only gains
	}
	rs := avgGain / avgLoss
	rsi := 100 - (100 / (1 + rs))

	// Ensure RSI is within bounds
	if rsi > 100 {
		rsi = 100
	} else if rsi < 0 {
		rsi = 0
	}
	return rsi
}

// Reset implements Indicator.
func (r *RSI) Reset() {
	r.resetEngine()
	r.avgGain.reset()
	r.avgLoss.reset()
	r.prevPrice, r.hasPrev = 0, false
}

// IsOverbought checks if the RSI value indicates an overbought condition
func (r *RSI) IsOverbought(value float64) bool {
	return value >= r.config.Overbought
}

// IsOversold checks if the RSI value indicates an oversold condition
func (r *RSI) IsOversold(value float64) bool {
	return value <= r.config.Oversold
}
