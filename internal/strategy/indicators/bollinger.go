package indicators

import (
	"fmt"

	"cryptoSignalBot/internal/domain"
)

// BollingerConfig holds configuration for Bollinger Bands
type BollingerConfig struct {
	IndicatorConfig
	StdDevMultiplier float64 // Defaults to 2
}

// BollingerValue is one Bollinger Bands sample.
type BollingerValue struct {
	Upper     float64
	Middle    float64
	Lower     float64
	PercentB  float64 // Position of the price inside the bands; 0.5 when the bands collapse
	Bandwidth float64 // (Upper-Lower)/Middle; 0 when Middle is 0
}

// Bollinger implements Bollinger Bands over a simple moving average with the
// population standard deviation of the same window.
type Bollinger struct {
	engine[BollingerValue]
	config BollingerConfig
	win    *window
}

// NewBollinger creates a new Bollinger Bands indicator instance
func NewBollinger(config BollingerConfig) (*Bollinger, error) {
	if err := config.validate("Bollinger"); err != nil {
		return nil, err
	}
	if config.StdDevMultiplier == 0 {
		config.StdDevMultiplier = 2
	}
	if config.StdDevMultiplier < 0 {
		return nil, fmt.Errorf("Bollinger: %w: multiplier %.2f", ErrInvalidConfig, config.StdDevMultiplier)
	}
	b := &Bollinger{config: config, win: newWindow(config.Period)}
	name := fmt.Sprintf("BB(%d,%.1f)", config.Period, config.StdDevMultiplier)
	b.engine = newEngine(name, config.Period, config.Retention, b.step)
	return b, nil
}

func (b *Bollinger) step(c domain.Candle) (BollingerValue, bool) {
	price := b.config.Source.of(c)
	b.win.push(price)
	if !b.win.full() {
		return BollingerValue{}, false
	}
	mean, std := b.win.meanStdDev()
	v := BollingerValue{
		Middle: mean,
		Upper:  mean + b.config.StdDevMultiplier*std,
		Lower:  mean - b.config.StdDevMultiplier*std,
	}
	if width := v.Upper - v.Lower; width > 0 {
		v.PercentB = (price - v.Lower) / width
	} else {
		v.PercentB = 0.5
	}
	if mean != 0 {
		v.Bandwidth = (v.Upper - v.Lower) / mean
	}
	return v, true
}

// Reset implements Indicator.
func (b *Bollinger) Reset() {
	b.resetEngine()
	b.win.reset()
}
