package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovingAverages(t *testing.T) {
	candles := fromCloses(10, 11, 12, 13, 20)

	tests := []struct {
		name     string
		build    func() (Indicator, error)
		expected []float64
	}{
		{
			name:     "SMA",
			build:    func() (Indicator, error) { return NewSMA(IndicatorConfig{Period: 3}) },
			expected: []float64{11, 12, 15},
		},
		{
			name:     "EMA",
			build:    func() (Indicator, error) { return NewEMA(IndicatorConfig{Period: 3}) },
			expected: []float64{11, 12, 16},
		},
		{
			name:     "SMMA",
			build:    func() (Indicator, error) { return NewSMMA(IndicatorConfig{Period: 3}) },
			expected: []float64{11, 35.0 / 3, 130.0 / 9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ind, err := tt.build()
			require.NoError(t, err)
			require.NoError(t, ind.Calculate(candles, len(candles)))
			assert.InDeltaSlice(t, tt.expected, flatten(ind), tolerance)
			assert.Equal(t, 3, ind.Warmup())
		})
	}
}

func TestMovingAverages_NotReadyBeforePeriod(t *testing.T) {
	sma, err := NewSMA(IndicatorConfig{Period: 5})
	require.NoError(t, err)
	require.NoError(t, sma.Calculate(fromCloses(1, 2, 3, 4), 4))
	assert.False(t, sma.Ready())
	_, ok := sma.Values().Last()
	assert.False(t, ok)
}

func TestMovingAverages_PriceSource(t *testing.T) {
	candles := randomWalk(10, 1)
	sma, err := NewSMA(IndicatorConfig{Period: 2, Source: SourceHL2})
	require.NoError(t, err)
	require.NoError(t, sma.Calculate(candles, len(candles)))

	last, ok := sma.Values().Last()
	require.True(t, ok)
	a, b := candles[8], candles[9]
	assert.InDelta(t, ((a.High+a.Low)/2+(b.High+b.Low)/2)/2, last, tolerance)
	assert.Equal(t, "SMA(2)", sma.Name())
}
