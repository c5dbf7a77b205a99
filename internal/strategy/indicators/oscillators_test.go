package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStochastic(t *testing.T) {
	t.Run("close at the top of the range", func(t *testing.T) {
		stoch, err := NewStochastic(StochasticConfig{KPeriod: 3, DPeriod: 1})
		require.NoError(t, err)
		candles := fromCloses(1, 2, 3)
		require.NoError(t, stoch.Calculate(candles, len(candles)))
		last, ok := stoch.Values().Last()
		require.True(t, ok)
		assert.InDelta(t, 100, last.K, tolerance)
		assert.True(t, stoch.IsOverbought(last.K))
	})

	t.Run("zero range is neutral", func(t *testing.T) {
		stoch, err := NewStochastic(StochasticConfig{KPeriod: 5, DPeriod: 3})
		require.NoError(t, err)
		candles := fromCloses(7, 7, 7, 7, 7, 7, 7, 7)
		require.NoError(t, stoch.Calculate(candles, len(candles)))
		for _, v := range stoch.Values().Values() {
			assert.Equal(t, StochasticValue{K: 50, D: 50}, v)
		}
		assert.Equal(t, 8-7+1, stoch.Values().Total())
	})

	t.Run("%D is the mean of %K", func(t *testing.T) {
		stoch, err := NewStochastic(StochasticConfig{KPeriod: 2, DPeriod: 2})
		require.NoError(t, err)
		// K: (2-1)/(2-1)=100, (1-1)/(2-1)=0
		candles := fromCloses(1, 2, 1)
		require.NoError(t, stoch.Calculate(candles, len(candles)))
		last, ok := stoch.Values().Last()
		require.True(t, ok)
		assert.InDelta(t, 0, last.K, tolerance)
		assert.InDelta(t, 50, last.D, tolerance)
		assert.True(t, stoch.IsOversold(last.K))
	})
}

func TestBollinger(t *testing.T) {
	t.Run("collapsed bands", func(t *testing.T) {
		bb, err := NewBollinger(BollingerConfig{IndicatorConfig: IndicatorConfig{Period: 4}})
		require.NoError(t, err)
		candles := fromCloses(5, 5, 5, 5, 5)
		require.NoError(t, bb.Calculate(candles, len(candles)))
		for _, v := range bb.Values().Values() {
			assert.Equal(t, 5.0, v.Upper)
			assert.Equal(t, 5.0, v.Lower)
			assert.Equal(t, 0.5, v.PercentB)
			assert.Equal(t, 0.0, v.Bandwidth)
		}
	})

	t.Run("flat prices at any level", func(t *testing.T) {
		for _, price := range []float64{0.1, 0.3, 1.1, 2573.37, 61234.57} {
			bb, err := NewBollinger(BollingerConfig{IndicatorConfig: IndicatorConfig{Period: 20}})
			require.NoError(t, err)
			closes := make([]float64, 25)
			for i := range closes {
				closes[i] = price
			}
			candles := fromCloses(closes...)
			require.NoError(t, bb.Calculate(candles, len(candles)))
			require.Equal(t, 6, bb.Values().Len())
			for _, v := range bb.Values().Values() {
				assert.Equal(t, price, v.Middle, "price %v", price)
				assert.Equal(t, price, v.Upper, "price %v", price)
				assert.Equal(t, price, v.Lower, "price %v", price)
				assert.Equal(t, 0.5, v.PercentB, "price %v", price)
				assert.Zero(t, v.Bandwidth, "price %v", price)
			}
		}
	})

	t.Run("population deviation", func(t *testing.T) {
		bb, err := NewBollinger(BollingerConfig{IndicatorConfig: IndicatorConfig{Period: 2}, StdDevMultiplier: 1})
		require.NoError(t, err)
		candles := fromCloses(4, 6)
		require.NoError(t, bb.Calculate(candles, len(candles)))
		v, ok := bb.Values().Last()
		require.True(t, ok)
		assert.InDelta(t, 5, v.Middle, tolerance)
		assert.InDelta(t, 6, v.Upper, tolerance)
		assert.InDelta(t, 4, v.Lower, tolerance)
		assert.InDelta(t, 1, v.PercentB, tolerance)
		assert.InDelta(t, 0.4, v.Bandwidth, tolerance)
		assert.Equal(t, "BB(2,1.0)", bb.Name())
	})
}

func TestADX(t *testing.T) {
	t.Run("flat market", func(t *testing.T) {
		adx, err := NewADX(IndicatorConfig{Period: 3})
		require.NoError(t, err)
		candles := fromCloses(10, 10, 10, 10, 10, 10, 10, 10)
		require.NoError(t, adx.Calculate(candles, len(candles)))
		require.True(t, adx.Ready())
		for _, v := range adx.Values().Values() {
			assert.Equal(t, ADXValue{}, v)
		}
	})

	t.Run("steady uptrend", func(t *testing.T) {
		adx, err := NewADX(IndicatorConfig{Period: 3})
		require.NoError(t, err)
		candles := fromCloses(1, 2, 3, 4, 5, 6, 7, 8)
		require.NoError(t, adx.Calculate(candles, len(candles)))
		v, ok := adx.Values().Last()
		require.True(t, ok)
		assert.InDelta(t, 100, v.PlusDI, tolerance)
		assert.InDelta(t, 0, v.MinusDI, tolerance)
		assert.InDelta(t, 100, v.ADX, tolerance)
	})
}

func TestMACD(t *testing.T) {
	macd, err := NewMACD(MACDConfig{FastPeriod: 3, SlowPeriod: 6, SignalPeriod: 4})
	require.NoError(t, err)
	assert.Equal(t, 9, macd.Warmup())

	candles := randomWalk(60, 21)
	require.NoError(t, macd.Calculate(candles, len(candles)))
	for _, v := range macd.Values().Values() {
		assert.InDelta(t, v.MACD-v.Signal, v.Histogram, tolerance)
	}

	// A steady rise keeps the fast average above the slow one.
	rising, err := NewMACD(MACDConfig{FastPeriod: 3, SlowPeriod: 6, SignalPeriod: 4})
	require.NoError(t, err)
	up := fromCloses(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)
	require.NoError(t, rising.Calculate(up, len(up)))
	last, ok := rising.Values().Last()
	require.True(t, ok)
	assert.Greater(t, last.MACD, 0.0)
}

func TestOBV(t *testing.T) {
	candles := fromCloses(10, 11, 11, 9, 12)
	for i := range candles {
		candles[i].Volume = float64(100 * (i + 1))
	}
	obv := NewOBV(IndicatorConfig{})
	require.NoError(t, obv.Calculate(candles, len(candles)))
	assert.Equal(t, []float64{100, 300, 300, -100, 400}, obv.Values().Values())
}
