package strategies

import (
	"context"
	"math"
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// MockLogger implements ports.Logger for testing
type MockLogger struct{}

func (m *MockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *MockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *MockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *MockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

var testBase = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

// flat builds candles whose open/high/low equal the close.
func flat(closes ...float64) []domain.Candle {
	candles := make([]domain.Candle, len(closes))
	for i, c := range closes {
		candles[i] = domain.Candle{
			Timestamp: testBase.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    10,
		}
	}
	return candles
}

// ranged builds candles with a one-unit high-low range around the close.
func ranged(closes ...float64) []domain.Candle {
	candles := flat(closes...)
	for i := range candles {
		candles[i].High += 0.5
		candles[i].Low -= 0.5
	}
	return candles
}

func randomWalk(n int, seed int64) []domain.Candle {
	rng := rand.New(rand.NewSource(seed))
	closes := make([]float64, n)
	price := 100.0
	for i := range closes {
		price = math.Max(1, price+(rng.Float64()-0.5)*4)
		closes[i] = price
	}
	return ranged(closes...)
}

func build(t *testing.T, code string, params Params) ports.Strategy {
	t.Helper()
	s, err := DefaultRegistry().Build(code, params, &MockLogger{})
	require.NoError(t, err)
	return s
}

// replay feeds candles one at a time and evaluates after each once warm.
// eval returns the signal for the candles seen so far.
func replay(t *testing.T, s ports.Strategy, candles []domain.Candle, eval func(seen []domain.Candle) domain.Signal) map[int]domain.Signal {
	t.Helper()
	fired := make(map[int]domain.Signal)
	for i := 1; i <= len(candles); i++ {
		seen := candles[:i]
		require.NoError(t, s.Update(seen, 1))
		if i < s.WarmupRequirement() {
			continue
		}
		if sig := eval(seen); sig.Direction != domain.DirectionNone {
			fired[i] = sig
		}
	}
	return fired
}

func buys(t *testing.T, s ports.Strategy, candles []domain.Candle) map[int]domain.Signal {
	return replay(t, s, candles, func(seen []domain.Candle) domain.Signal {
		sig, err := s.EvaluateBuy(context.Background(), seen)
		require.NoError(t, err)
		return sig
	})
}

func sells(t *testing.T, s ports.Strategy, candles []domain.Candle, pos domain.PositionView) map[int]domain.Signal {
	return replay(t, s, candles, func(seen []domain.Candle) domain.Signal {
		sig, err := s.EvaluateSell(context.Background(), seen, pos)
		require.NoError(t, err)
		return sig
	})
}

// keys returns the candle counts at which a signal fired, ascending.
func keys(m map[int]domain.Signal) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
