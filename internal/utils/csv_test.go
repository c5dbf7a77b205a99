package utils

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoSignalBot/internal/domain"
)

func TestCandlesCSV_WriteThenRead(t *testing.T) {
	base := time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC)
	candles := []domain.Candle{
		{Timestamp: base, Open: 1.5, High: 2.25, Low: 1, Close: 2, Volume: 10},
		{Timestamp: base.Add(time.Minute), Open: 2, High: 3, Low: 1.75, Close: 2.5, Volume: 0.001},
	}
	path := filepath.Join(t.TempDir(), "data", "ETHUSDT_1m.csv")

	require.NoError(t, WriteCandlesToCSV(candles, "ETHUSDT", path))
	got, err := ReadCandlesFromCSV(path)
	require.NoError(t, err)
	assert.Equal(t, candles, got)
}

func TestReadCandles_LegacyKlineLayout(t *testing.T) {
	const data = `open_time,close_time,symbol,interval,open,high,low,close,volume
2024-01-02T03:04:00Z,2024-01-02T03:04:59Z,ETHUSDT,1m,10,11,9,10.5,100
`
	got, err := ReadCandles(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 10.5, got[0].Close)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC), got[0].Timestamp)
}

func TestReadCandles_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing column", "open_time,open,high,low,close\n"},
		{"bad timestamp", "open_time,open,high,low,close,volume\nyesterday,1,1,1,1,1\n"},
		{"bad number", "open_time,open,high,low,close,volume\n2024-01-02T03:04:00Z,1,x,1,1,1\n"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCandles(strings.NewReader(tt.data))
			assert.Error(t, err)
		})
	}

	_, err := ReadCandles(strings.NewReader("open_time,open\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}
