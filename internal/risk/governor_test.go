package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoSignalBot/internal/domain"
)

func newTestGovernor(t *testing.T, ratio float64, funds float64) *Governor {
	t.Helper()
	g, err := NewGovernor(Config{StopTradingRatio: ratio, PositionSizePercent: 0.5}, funds)
	require.NoError(t, err)
	return g
}

func TestNewGovernor_Validation(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		funds float64
	}{
		{"ratio of one", Config{StopTradingRatio: 1, PositionSizePercent: 0.5}, 100},
		{"negative ratio", Config{StopTradingRatio: -0.1, PositionSizePercent: 0.5}, 100},
		{"zero position size", Config{StopTradingRatio: 0.8}, 100},
		{"position size above one", Config{StopTradingRatio: 0.8, PositionSizePercent: 1.5}, 100},
		{"negative cap", Config{StopTradingRatio: 0.8, PositionSizePercent: 0.5, MaxPositionSize: -1}, 100},
		{"no funds", Config{StopTradingRatio: 0.8, PositionSizePercent: 0.5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGovernor(tt.cfg, tt.funds)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestGovernor_CircuitBreakerBoundary(t *testing.T) {
	tests := []struct {
		name     string
		funds    float64
		quantity float64
		want     bool
	}{
		{"exactly at ratio trips", 800, 0, true},
		{"just above ratio holds", 800.000001, 0, false},
		{"below ratio trips", 500, 0, true},
		{"held quantity defers the trip", 500, 0.1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGovernor(t, 0.8, 1000)
			g.wallet.Funds = tt.funds
			g.wallet.Quantity = tt.quantity
			assert.Equal(t, tt.want, g.Check())
			assert.Equal(t, tt.want, g.Stopped())
		})
	}
}

func TestGovernor_HighWaterMarkRises(t *testing.T) {
	g := newTestGovernor(t, 0.8, 1000)

	g.wallet.Funds = 1500
	assert.False(t, g.Check())
	assert.Equal(t, 1500.0, g.Wallet().HighWaterMark)
	assert.InDelta(t, 1200, g.Threshold(), 1e-9)

	// The threshold follows the raised mark.
	g.wallet.Funds = 1250
	assert.False(t, g.Check())
	g.wallet.Funds = 1200
	assert.True(t, g.Check())
	assert.InDelta(t, 0.2, g.Stats().MaxDrawdown, 1e-9)
}

func TestGovernor_TripIsPermanent(t *testing.T) {
	g := newTestGovernor(t, 0.9, 1000)
	g.wallet.Funds = 850
	require.True(t, g.Check())

	g.wallet.Funds = 5000
	assert.False(t, g.Check(), "reports the trip only once")
	assert.True(t, g.Stopped())
	assert.Zero(t, g.EntrySize(100, 0))
	assert.ErrorIs(t, g.ApplyBuy(domain.Fill{Price: 1, Quantity: 1}), ErrTradingStopped)
}

func TestGovernor_DisabledBreaker(t *testing.T) {
	g := newTestGovernor(t, 0, 1000)
	g.wallet.Funds = 1
	assert.False(t, g.Check())
	assert.False(t, g.Stopped())
}

func TestGovernor_WalletAccounting(t *testing.T) {
	g := newTestGovernor(t, 0.8, 1000)

	require.NoError(t, g.ApplyBuy(domain.Fill{Price: 200, Quantity: 2, Fee: 0.4}))
	w := g.Wallet()
	assert.InDelta(t, 599.6, w.Funds, 1e-9)
	assert.InDelta(t, 2, w.Quantity, 1e-12)
	assert.InDelta(t, 1039.6, w.Equity(220), 1e-9)

	// Held quantity keeps the breaker quiet even deep under water.
	assert.False(t, g.Check())

	g.ApplySell(domain.Fill{Price: 210, Quantity: 2, Fee: 0.42})
	w = g.Wallet()
	assert.InDelta(t, 1019.18, w.Funds, 1e-9)
	assert.Zero(t, w.Quantity)

	err := g.ApplyBuy(domain.Fill{Price: 2000, Quantity: 1})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestGovernor_EntrySize(t *testing.T) {
	g := newTestGovernor(t, 0.8, 1000)
	assert.Equal(t, 5.0, g.EntrySize(100, 0))
	assert.Equal(t, 4.99500499, g.EntrySize(100, 0.001))
	assert.Zero(t, g.EntrySize(0, 0.001))
	assert.Zero(t, g.EntrySize(100, -0.1))

	capped, err := NewGovernor(Config{PositionSizePercent: 1, MaxPositionSize: 2}, 1000)
	require.NoError(t, err)
	assert.Equal(t, 2.0, capped.EntrySize(100, 0.001))
}

func TestGovernor_EntrySizeAlwaysAffordable(t *testing.T) {
	for _, fee := range []float64{0, 0.0004, 0.001, 0.0075} {
		for _, funds := range []float64{1000, 987.65, 0.3} {
			g, err := NewGovernor(Config{PositionSizePercent: 1}, funds)
			require.NoError(t, err)
			for i := 0; i < 542; i++ {
				price := 100 + float64(i)*0.37
				qty := g.EntrySize(price, fee)
				require.Positive(t, qty, "funds %v price %v fee %v", funds, price, fee)
				require.True(t, g.CanAfford(price, qty, fee), "funds %v price %v fee %v qty %v", funds, price, fee, qty)
				// Truncation gives up at most one tick.
				require.InDelta(t, funds/price/(1+fee), qty, 1.01e-8)
			}
		}
	}
}

func TestGovernor_CanAfford(t *testing.T) {
	g := newTestGovernor(t, 0.8, 1000)
	assert.True(t, g.CanAfford(100, 9.9, 0.001))
	assert.False(t, g.CanAfford(100, 10, 0.001))
	assert.True(t, g.CanAfford(100, 10, 0))
	assert.False(t, g.CanAfford(100, 0, 0))
}

func TestGovernor_RecordResult(t *testing.T) {
	g := newTestGovernor(t, 0.8, 1000)
	g.RecordResult(domain.Trade{Result: domain.Some(domain.ResultWin), Profit: 12})
	g.RecordResult(domain.Trade{Result: domain.Some(domain.ResultLose), Profit: -5})
	g.RecordResult(domain.Trade{Profit: 99})

	s := g.Stats()
	assert.Equal(t, 2, s.Trades)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.InDelta(t, 7, s.RealizedPnL, 1e-12)
}
