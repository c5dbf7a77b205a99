// Package csvfeed replays recorded candles as a ports.CandleSource.
package csvfeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/utils"
)

const defaultWindow = 300

// Feed exposes recorded candles one step at a time. Each Advance reveals the next
// candle of every product; FetchRecentCandles only returns revealed candles.
// It also reports the last revealed close as the market price.
type Feed struct {
	mu          sync.RWMutex
	granularity time.Duration
	window      int
	candles     map[string][]domain.Candle
	cursor      map[string]int
}

// New creates an empty feed. window is the number of candles returned per fetch (default 300).
func New(granularity time.Duration, window int) *Feed {
	if window <= 0 {
		window = defaultWindow
	}
	return &Feed{
		granularity: granularity,
		window:      window,
		candles:     make(map[string][]domain.Candle),
		cursor:      make(map[string]int),
	}
}

// Load registers candles for product, replacing any previous recording.
func (f *Feed) Load(product string, candles []domain.Candle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candles[product] = candles
	f.cursor[product] = 0
}

// LoadFile reads a candle CSV for product.
func (f *Feed) LoadFile(product, path string) error {
	candles, err := utils.ReadCandlesFromCSV(path)
	if err != nil {
		return fmt.Errorf("loading %s for %s: %w", path, product, err)
	}
	f.Load(product, candles)
	return nil
}

// Advance reveals the next candle of every product. It returns false once every
// recording is exhausted.
func (f *Feed) Advance() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	moved := false
	for product, candles := range f.candles {
		if f.cursor[product] < len(candles) {
			f.cursor[product]++
			moved = true
		}
	}
	return moved
}

// Revealed returns the number of candles revealed so far for product.
func (f *Feed) Revealed(product string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cursor[product]
}

// Now returns the close time of the newest revealed candle across products.
func (f *Feed) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var now time.Time
	for product, candles := range f.candles {
		if c := f.cursor[product]; c > 0 {
			if t := candles[c-1].Timestamp.Add(f.granularity); t.After(now) {
				now = t
			}
		}
	}
	return now
}

// FetchRecentCandles implements ports.CandleSource.
func (f *Feed) FetchRecentCandles(ctx context.Context, product string, granularity time.Duration) ([]domain.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("FetchRecentCandles failed: %w: %w", ports.ErrContextCanceled, err)
	}
	if granularity != f.granularity {
		return nil, fmt.Errorf("FetchRecentCandles failed: %w: feed holds %s, asked %s",
			ports.ErrUnsupportedInterval, f.granularity, granularity)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	end := f.cursor[product]
	if end == 0 {
		return nil, fmt.Errorf("FetchRecentCandles failed: %w: %s", ports.ErrNoCandles, product)
	}
	start := max(0, end-f.window)
	out := make([]domain.Candle, end-start)
	copy(out, f.candles[product][start:end])
	return out, nil
}

// LastPrice returns the close of the newest revealed candle.
func (f *Feed) LastPrice(product string) (float64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	end := f.cursor[product]
	if end == 0 {
		return 0, false
	}
	return f.candles[product][end-1].Close, true
}
