package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	// ErrDuplicateCandle is returned when a candle with an already stored timestamp is appended.
	ErrDuplicateCandle = errors.New("candle with this timestamp already exists")
	// ErrCandleOutOfOrder is returned when a candle older than the last stored one is appended.
	ErrCandleOutOfOrder = errors.New("candle is older than the last stored candle")
)

// Candle represents a single OHLCV sample for a fixed granularity.
type Candle struct {
	Timestamp time.Time // Start time of the interval
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// CandleSeries is an append-only, strictly time-ordered run of candles for one product.
// It is owned by a single agent and is not safe for concurrent use.
type CandleSeries struct {
	product     string
	granularity time.Duration
	candles     []Candle
}

// NewCandleSeries creates an empty series.
func NewCandleSeries(product string, granularity time.Duration) *CandleSeries {
	return &CandleSeries{
		product:     product,
		granularity: granularity,
		candles:     make([]Candle, 0, 64),
	}
}

// Product returns the product id the series belongs to.
func (s *CandleSeries) Product() string { return s.product }

// Granularity returns the candle interval.
func (s *CandleSeries) Granularity() time.Duration { return s.granularity }

// Append adds a candle to the end of the series. Candles that are not strictly
// newer than the last one are rejected, never overwritten.
func (s *CandleSeries) Append(c Candle) error {
	if last, ok := s.Last(); ok {
		switch {
		case c.Timestamp.Equal(last.Timestamp):
			return fmt.Errorf("%s @ %s: %w", s.product, c.Timestamp.Format(time.RFC3339), ErrDuplicateCandle)
		case c.Timestamp.Before(last.Timestamp):
			return fmt.Errorf("%s @ %s: %w", s.product, c.Timestamp.Format(time.RFC3339), ErrCandleOutOfOrder)
		}
	}
	s.candles = append(s.candles, c)
	return nil
}

// Merge appends every candle of batch that is newer than the current last candle.
// The batch may overlap the stored history and need not be sorted.
// It returns the number of candles appended.
func (s *CandleSeries) Merge(batch []Candle) int {
	sorted := slices.Clone(batch)
	slices.SortStableFunc(sorted, func(a, b Candle) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	added := 0
	for _, c := range sorted {
		if err := s.Append(c); err == nil {
			added++
		}
	}
	return added
}

// Len returns the number of stored candles.
func (s *CandleSeries) Len() int { return len(s.candles) }

// At returns the i-th stored candle (0 is the oldest retained).
func (s *CandleSeries) At(i int) Candle { return s.candles[i] }

// Last returns the most recent candle.
func (s *CandleSeries) Last() (Candle, bool) {
	if len(s.candles) == 0 {
		return Candle{}, false
	}
	return s.candles[len(s.candles)-1], true
}

// Candles returns the stored candles, oldest first. Callers must not modify the slice.
func (s *CandleSeries) Candles() []Candle { return s.candles }

// Closes returns a copy of the close prices, oldest first.
func (s *CandleSeries) Closes() []float64 {
	out := make([]float64, len(s.candles))
	for i, c := range s.candles {
		out[i] = c.Close
	}
	return out
}

// Prune drops the oldest candles so that at most keep remain. It returns the number dropped.
func (s *CandleSeries) Prune(keep int) int {
	if keep < 0 || len(s.candles) <= keep {
		return 0
	}
	drop := len(s.candles) - keep
	remaining := make([]Candle, keep, keep+64)
	copy(remaining, s.candles[drop:])
	s.candles = remaining
	return drop
}
