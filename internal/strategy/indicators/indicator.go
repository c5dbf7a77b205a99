package indicators

import (
	"errors"
	"fmt"
	"time"

	"cryptoSignalBot/internal/domain"
)

// DefaultRetention is the number of values a series keeps before pruning from the front.
const DefaultRetention = 500

var (
	// ErrInvalidCandleCount is returned when newCount is negative or exceeds the history length.
	ErrInvalidCandleCount = errors.New("new candle count out of range")
	// ErrStaleCandle is returned when a candle that is not newer than the last consumed one is fed.
	ErrStaleCandle = errors.New("candle is not newer than the last consumed candle")
	// ErrInvalidConfig is returned for non-positive periods or inconsistent parameters.
	ErrInvalidConfig = errors.New("invalid indicator configuration")
)

// Indicator is a stateful calculator that extends its output series incrementally.
type Indicator interface {
	// Name returns the name of the indicator, including its parameters.
	Name() string

	// Warmup returns the number of candles consumed before the first value is emitted.
	Warmup() int

	// Calculate consumes the newCount newest candles of history. On the first call every
	// candle in history is consumed, which seeds the indicator.
	Calculate(history []domain.Candle, newCount int) error

	// Ready reports whether at least one value has been emitted.
	Ready() bool

	// Reset discards all state and output.
	Reset()
}

// PriceSource selects the candle price an indicator reads.
type PriceSource int

const (
	SourceClose PriceSource = iota
	SourceOpen
	SourceHL2
	SourceHLC3
)

func (p PriceSource) of(c domain.Candle) float64 {
	switch p {
	case SourceOpen:
		return c.Open
	case SourceHL2:
		return (c.High + c.Low) / 2
	case SourceHLC3:
		return (c.High + c.Low + c.Close) / 3
	default:
		return c.Close
	}
}

// IndicatorConfig holds common configuration for indicators
type IndicatorConfig struct {
	Period    int
	Retention int         // Values kept before pruning; 0 means DefaultRetention
	Source    PriceSource // Price read from each candle; defaults to close
}

func (c IndicatorConfig) validate(name string) error {
	if c.Period <= 0 {
		return fmt.Errorf("%s: %w: period %d", name, ErrInvalidConfig, c.Period)
	}
	if c.Retention < 0 {
		return fmt.Errorf("%s: %w: retention %d", name, ErrInvalidConfig, c.Retention)
	}
	return nil
}

// engine drives a per-candle step function over the tail of a candle history and
// appends whatever the step emits. Every indicator embeds one, so the seed and the
// incremental path run the exact same arithmetic.
type engine[T any] struct {
	name   string
	warmup int
	series *Series[T]
	step   func(c domain.Candle) (T, bool)
	seen   int
	last   time.Time
}

func newEngine[T any](name string, warmup, retention int, step func(c domain.Candle) (T, bool)) engine[T] {
	return engine[T]{
		name:   name,
		warmup: warmup,
		series: newSeries[T](retention, warmup),
		step:   step,
	}
}

// Name returns the name of the indicator.
func (e *engine[T]) Name() string { return e.name }

// Warmup returns the number of candles needed before the first value.
func (e *engine[T]) Warmup() int { return e.warmup }

// Ready reports whether at least one value has been emitted.
func (e *engine[T]) Ready() bool { return e.series.Total() > 0 }

// Values returns the output series.
func (e *engine[T]) Values() *Series[T] { return e.series }

// Seen returns the number of candles consumed so far.
func (e *engine[T]) Seen() int { return e.seen }

// Calculate implements Indicator.
func (e *engine[T]) Calculate(history []domain.Candle, newCount int) error {
	if newCount < 0 || newCount > len(history) {
		return fmt.Errorf("%s: %w: newCount %d, history %d", e.name, ErrInvalidCandleCount, newCount, len(history))
	}
	start := len(history) - newCount
	if e.seen == 0 {
		start = 0
	}
	for _, c := range history[start:] {
		if e.seen > 0 && !c.Timestamp.After(e.last) {
			return fmt.Errorf("%s: %w: %s after %s", e.name, ErrStaleCandle,
				c.Timestamp.Format(time.RFC3339), e.last.Format(time.RFC3339))
		}
		if v, ok := e.step(c); ok {
			e.series.append(v)
		}
		e.seen++
		e.last = c.Timestamp
	}
	return nil
}

func (e *engine[T]) resetEngine() {
	e.series.reset()
	e.seen = 0
	e.last = time.Time{}
}
