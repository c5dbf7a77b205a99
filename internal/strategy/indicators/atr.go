package indicators

import (
	"fmt"
	"math"

	"cryptoSignalBot/internal/domain"
)

// ATR implements the Average True Range indicator with Wilder smoothing.
// True range needs the previous close, so the first value needs Period+1 candles.
type ATR struct {
	engine[float64]
	config    IndicatorConfig
	avg       *wilder
	prevClose float64
	hasPrev   bool
}

// NewATR creates a new ATR indicator instance
func NewATR(config IndicatorConfig) (*ATR, error) {
	if err := config.validate("ATR"); err != nil {
		return nil, err
	}
	a := &ATR{config: config, avg: newWilder(config.Period)}
	a.engine = newEngine(fmt.Sprintf("ATR(%d)", config.Period), config.Period+1, config.Retention, a.step)
	return a, nil
}

func (a *ATR) step(c domain.Candle) (float64, bool) {
	if !a.hasPrev {
		a.prevClose, a.hasPrev = c.Close, true
		return 0, false
	}
	tr := trueRange(c, a.prevClose)
	a.prevClose = c.Close
	return a.avg.add(tr)
}

// Reset implements Indicator.
func (a *ATR) Reset() {
	a.resetEngine()
	a.avg.reset()
	a.prevClose, a.hasPrev = 0, false
}

// trueRange is the greatest of high-low, |high-prevClose| and |low-prevClose|.
func trueRange(c domain.Candle, prevClose float64) float64 {
	highLow := c.High - c.Low
	highClose := math.Abs(c.High - prevClose)
	lowClose := math.Abs(c.Low - prevClose)
	return math.Max(highLow, math.Max(highClose, lowClose))
}
