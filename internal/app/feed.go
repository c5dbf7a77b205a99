package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/metrics"
	"cryptoSignalBot/internal/ports"
)

// Snapshot is one fetch result shared by every agent of a product.
// Candles must not be modified.
type Snapshot struct {
	Candles   []domain.Candle
	FetchedAt time.Time
	Stale     bool // Reused because another agent was refreshing
}

// CandleProvider hands agents the current candle snapshot of a product.
type CandleProvider interface {
	Candles(ctx context.Context, product string, granularity time.Duration) (Snapshot, error)
}

type feedKey struct {
	product     string
	granularity time.Duration
}

type feedEntry struct {
	refresh   sync.Mutex // Held for the duration of a fetch
	mu        sync.RWMutex
	candles   []domain.Candle
	fetchedAt time.Time
}

func (e *feedEntry) snapshot(stale bool) Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Snapshot{Candles: e.candles, FetchedAt: e.fetchedAt, Stale: stale}
}

// CandleFeed caches the last fetch per product and granularity. Only one agent
// refreshes a product at a time; the others proceed with the previous snapshot
// instead of waiting.
type CandleFeed struct {
	source     ports.CandleSource
	logger     ports.Logger
	metrics    *metrics.Metrics
	minRefresh time.Duration
	now        func() time.Time

	mu      sync.Mutex
	entries map[feedKey]*feedEntry
}

// FeedConfig configures a CandleFeed.
type FeedConfig struct {
	Source     ports.CandleSource
	Logger     ports.Logger
	Metrics    *metrics.Metrics // Optional
	MinRefresh time.Duration    // Snapshots younger than this are reused without fetching
	Clock      func() time.Time
}

// NewCandleFeed creates a feed over source.
func NewCandleFeed(cfg FeedConfig) (*CandleFeed, error) {
	if cfg.Source == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("%w: candle feed needs a source and a logger", ports.ErrConfigurationError)
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &CandleFeed{
		source:     cfg.Source,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		minRefresh: cfg.MinRefresh,
		now:        now,
		entries:    make(map[feedKey]*feedEntry),
	}, nil
}

func (f *CandleFeed) entry(product string, granularity time.Duration) *feedEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := feedKey{product, granularity}
	e, ok := f.entries[key]
	if !ok {
		e = &feedEntry{}
		f.entries[key] = e
	}
	return e
}

// Candles implements CandleProvider. A failed fetch returns the error and leaves
// the cached snapshot untouched.
func (f *CandleFeed) Candles(ctx context.Context, product string, granularity time.Duration) (Snapshot, error) {
	e := f.entry(product, granularity)

	if cached := e.snapshot(false); len(cached.Candles) > 0 && f.now().Sub(cached.FetchedAt) < f.minRefresh {
		return cached, nil
	}

	if !e.refresh.TryLock() {
		cached := e.snapshot(true)
		if len(cached.Candles) == 0 {
			return Snapshot{}, fmt.Errorf("%w: %s refresh in progress", ports.ErrNoCandles, product)
		}
		f.metrics.StaleReused(product)
		f.logger.Debug(ctx, "Reusing stale candles during concurrent refresh", map[string]interface{}{"product": product})
		return cached, nil
	}
	defer e.refresh.Unlock()

	candles, err := f.source.FetchRecentCandles(ctx, product, granularity)
	if err != nil {
		f.metrics.FetchFailed(product)
		return Snapshot{}, fmt.Errorf("fetching %s candles: %w", product, err)
	}
	if len(candles) == 0 {
		f.metrics.FetchFailed(product)
		return Snapshot{}, fmt.Errorf("fetching %s candles: %w", product, ports.ErrNoCandles)
	}

	e.mu.Lock()
	e.candles = candles
	e.fetchedAt = f.now()
	e.mu.Unlock()
	return e.snapshot(false), nil
}

// LastPrice returns the newest cached close of product across granularities.
func (f *CandleFeed) LastPrice(product string) (float64, bool) {
	f.mu.Lock()
	var matches []*feedEntry
	for key, e := range f.entries {
		if key.product == product {
			matches = append(matches, e)
		}
	}
	f.mu.Unlock()

	var (
		price  float64
		newest time.Time
		found  bool
	)
	for _, e := range matches {
		s := e.snapshot(false)
		if len(s.Candles) == 0 {
			continue
		}
		last := s.Candles[len(s.Candles)-1]
		if !found || last.Timestamp.After(newest) {
			price, newest, found = last.Close, last.Timestamp, true
		}
	}
	return price, found
}
