package indicators

import (
	"fmt"
	"math"

	"cryptoSignalBot/internal/domain"
)

// ADXValue is one Average Directional Index sample.
type ADXValue struct {
	ADX     float64
	PlusDI  float64
	MinusDI float64
}

// ADX implements Wilder's Average Directional Index. True range and directional
// movement need a previous candle, DI is available after Period+1 candles and the
// first ADX (mean of Period DX values) after 2*Period candles.
//
// Zero-denominator policy: a zero smoothed true range gives DI values of 0, and
// +DI + -DI == 0 gives a DX of 0.
type ADX struct {
	engine[ADXValue]
	config  IndicatorConfig
	tr      *wilder
	plusDM  *wilder
	minusDM *wilder
	dx      *wilder
	prev    domain.Candle
	hasPrev bool
}

// NewADX creates a new ADX indicator instance
func NewADX(config IndicatorConfig) (*ADX, error) {
	if err := config.validate("ADX"); err != nil {
		return nil, err
	}
	a := &ADX{
		config:  config,
		tr:      newWilder(config.Period),
		plusDM:  newWilder(config.Period),
		minusDM: newWilder(config.Period),
		dx:      newWilder(config.Period),
	}
	a.engine = newEngine(fmt.Sprintf("ADX(%d)", config.Period), 2*config.Period, config.Retention, a.step)
	return a, nil
}

func (a *ADX) step(c domain.Candle) (ADXValue, bool) {
	if !a.hasPrev {
		a.prev, a.hasPrev = c, true
		return ADXValue{}, false
	}
	up := c.High - a.prev.High
	down := a.prev.Low - c.Low
	var plus, minus float64
	if up > down && up > 0 {
		plus = up
	}
	if down > up && down > 0 {
		minus = down
	}
	tr := trueRange(c, a.prev.Close)
	a.prev = c

	smTR, ok := a.tr.add(tr)
	smPlus, _ := a.plusDM.add(plus)
	smMinus, _ := a.minusDM.add(minus)
	if !ok {
		return ADXValue{}, false
	}

	var plusDI, minusDI float64
	if smTR > 0 {
		plusDI = 100 * smPlus / smTR
		minusDI = 100 * smMinus / smTR
	}
	var dx float64
	if sum := plusDI + minusDI; sum > 0 {
		dx = 100 * math.Abs(plusDI-minusDI) / sum
	}
	adx, ok := a.dx.add(dx)
	if !ok {
		return ADXValue{}, false
	}
	return ADXValue{ADX: adx, PlusDI: plusDI, MinusDI: minusDI}, true
}

// Reset implements Indicator.
func (a *ADX) Reset() {
	a.resetEngine()
	a.tr.reset()
	a.plusDM.reset()
	a.minusDM.reset()
	a.dx.reset()
	a.prev, a.hasPrev = domain.Candle{}, false
}
