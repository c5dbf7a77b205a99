package indicators

import (
	"math"
	"math/rand"
	"time"

	"cryptoSignalBot/internal/domain"
)

const tolerance = 1e-9

var testBase = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// randomWalk builds n deterministic candles with realistic OHLCV relationships.
func randomWalk(n int, seed int64) []domain.Candle {
	rng := rand.New(rand.NewSource(seed))
	candles := make([]domain.Candle, n)
	price := 100.0
	for i := 0; i < n; i++ {
		open := price
		price = math.Max(1, price+(rng.Float64()-0.5)*4)
		high := math.Max(open, price) + rng.Float64()
		low := math.Min(open, price) - rng.Float64()
		candles[i] = domain.Candle{
			Timestamp: testBase.Add(time.Duration(i) * time.Minute),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     price,
			Volume:    100 + rng.Float64()*50,
		}
	}
	return candles
}

// fromCloses builds candles whose open/high/low equal the close.
func fromCloses(closes ...float64) []domain.Candle {
	candles := make([]domain.Candle, len(closes))
	for i, c := range closes {
		candles[i] = domain.Candle{
			Timestamp: testBase.Add(time.Duration(i) * time.Minute),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    10,
		}
	}
	return candles
}

func closesOf(candles []domain.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// flatten returns every output component of an indicator, value by value.
func flatten(ind Indicator) []float64 {
	switch v := ind.(type) {
	case *MACD:
		var out []float64
		for _, m := range v.Values().Values() {
			out = append(out, m.MACD, m.Signal, m.Histogram)
		}
		return out
	case *Bollinger:
		var out []float64
		for _, b := range v.Values().Values() {
			out = append(out, b.Upper, b.Middle, b.Lower, b.PercentB, b.Bandwidth)
		}
		return out
	case *Stochastic:
		var out []float64
		for _, s := range v.Values().Values() {
			out = append(out, s.K, s.D)
		}
		return out
	case *ADX:
		var out []float64
		for _, a := range v.Values().Values() {
			out = append(out, a.ADX, a.PlusDI, a.MinusDI)
		}
		return out
	case interface{ Values() *Series[float64] }:
		return v.Values().Values()
	default:
		panic("unhandled indicator type")
	}
}

func totalOf(ind Indicator) int {
	switch v := ind.(type) {
	case *MACD:
		return v.Values().Total()
	case *Bollinger:
		return v.Values().Total()
	case *Stochastic:
		return v.Values().Total()
	case *ADX:
		return v.Values().Total()
	case interface{ Values() *Series[float64] }:
		return v.Values().Total()
	default:
		panic("unhandled indicator type")
	}
}
