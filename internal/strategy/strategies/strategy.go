package strategies

import (
	"context"
	"errors"
	"fmt"
	"math"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/strategy/indicators"
)

var (
	// ErrInsufficientHistory is returned when a strategy is evaluated before its warm-up is covered.
	ErrInsufficientHistory = errors.New("insufficient candle history")
	// ErrUnknownStrategy is returned by the registry for unregistered codes.
	ErrUnknownStrategy = errors.New("unknown strategy")
	// ErrInvalidParams is returned by factories for unusable parameters.
	ErrInvalidParams = errors.New("invalid strategy parameters")
)

// Params holds named numeric strategy parameters. Missing keys fall back to defaults.
type Params map[string]float64

// Int returns the parameter as an int, or def when missing.
func (p Params) Int(key string, def int) int {
	if v, ok := p[key]; ok {
		return int(math.Round(v))
	}
	return def
}

// Retention returns the "retention" parameter, the number of values each
// indicator keeps; 0 or missing means the indicator default.
func (p Params) Retention() (int, error) {
	r := p.Int("retention", 0)
	if r < 0 {
		return 0, fmt.Errorf("%w: retention %d", ErrInvalidParams, r)
	}
	return r, nil
}

// Float returns the parameter, or def when missing.
func (p Params) Float(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// BaseStrategy provides common functionality for strategies: it owns the
// indicators, feeds them and guards evaluation against short history.
type BaseStrategy struct {
	name       string
	logger     ports.Logger
	indicators []indicators.Indicator
	warmup     int
}

// NewBaseStrategy creates a new base strategy instance. The warm-up requirement
// covers the slowest indicator plus one sample, so crossovers always have a
// previous value to compare against.
func NewBaseStrategy(name string, logger ports.Logger, inds ...indicators.Indicator) (*BaseStrategy, error) {
	if logger == nil {
		return nil, fmt.Errorf("%s: logger is required for strategy", name)
	}
	warmup := 0
	for _, ind := range inds {
		warmup = max(warmup, ind.Warmup())
	}
	return &BaseStrategy{
		name:       name,
		logger:     logger,
		indicators: inds,
		warmup:     warmup + 1,
	}, nil
}

// Name returns the registry code of the strategy.
func (b *BaseStrategy) Name() string { return b.name }

// WarmupRequirement returns the minimum number of candles before the first evaluation.
func (b *BaseStrategy) WarmupRequirement() int { return b.warmup }

// Update feeds the newest candles to every indicator, in order.
func (b *BaseStrategy) Update(history []domain.Candle, newCount int) error {
	for _, ind := range b.indicators {
		if err := ind.Calculate(history, newCount); err != nil {
			return fmt.Errorf("%s: updating %s: %w", b.name, ind.Name(), err)
		}
	}
	return nil
}

// Reset discards the state of every indicator.
func (b *BaseStrategy) Reset() {
	for _, ind := range b.indicators {
		ind.Reset()
	}
}

func (b *BaseStrategy) checkHistory(candles []domain.Candle) error {
	if len(candles) < b.warmup {
		return fmt.Errorf("%s: %w: have %d candles, need %d", b.name, ErrInsufficientHistory, len(candles), b.warmup)
	}
	return nil
}

func (b *BaseStrategy) notReady(what string) error {
	return fmt.Errorf("%s: %w: %s has fewer than two values", b.name, ErrInsufficientHistory, what)
}

func (b *BaseStrategy) debug(ctx context.Context, msg string, fields map[string]interface{}) {
	fields["strategy"] = b.name
	b.logger.Debug(ctx, msg, fields)
}

// lastPair returns the previous and current value of a series.
func lastPair[T any](s *indicators.Series[T]) (prev, cur T, ok bool) {
	cur, ok1 := s.Back(0)
	prev, ok2 := s.Back(1)
	return prev, cur, ok1 && ok2
}

func lastClose(candles []domain.Candle) float64 {
	return candles[len(candles)-1].Close
}
