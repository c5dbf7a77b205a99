package indicators

import "cryptoSignalBot/internal/domain"

// OBV implements On-Balance Volume. The first value is the first candle's volume.
type OBV struct {
	engine[float64]
	config    IndicatorConfig
	value     float64
	prevClose float64
	hasPrev   bool
}

// NewOBV creates a new OBV indicator instance. Period is ignored.
func NewOBV(config IndicatorConfig) *OBV {
	o := &OBV{config: config}
	o.engine = newEngine("OBV", 1, config.Retention, o.step)
	return o
}

func (o *OBV) step(c domain.Candle) (float64, bool) {
	switch {
	case !o.hasPrev:
		o.value, o.hasPrev = c.Volume, true
	case c.Close > o.prevClose:
		o.value += c.Volume
	case c.Close < o.prevClose:
		o.value -= c.Volume
	}
	o.prevClose = c.Close
	return o.value, true
}

// Reset implements Indicator.
func (o *OBV) Reset() {
	o.resetEngine()
	o.value, o.prevClose, o.hasPrev = 0, 0, false
}
