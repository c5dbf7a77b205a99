package trade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoSignalBot/internal/domain"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestMachine(t *testing.T, cfg Config) *Machine {
	t.Helper()
	m, err := NewMachine("ema_cross", "ETHUSDT", cfg)
	require.NoError(t, err)
	return m
}

func openAt(t *testing.T, m *Machine, price float64, stop, target domain.Optional[float64]) domain.Trade {
	t.Helper()
	tr, err := m.Open(domain.Fill{Price: price, Quantity: 1, Fee: 0.1, Time: t0}, stop, target)
	require.NoError(t, err)
	return tr
}

func TestNewMachine_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero ring", Config{RingSize: 0}},
		{"stop ratio above one", Config{RingSize: 3, StopRatio: 1.2}},
		{"target ratio below one", Config{RingSize: 3, TargetRatio: 0.9}},
		{"negative attempts", Config{RingSize: 3, MaxOrderAttempts: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMachine("s", "p", tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestMachine_Open(t *testing.T) {
	m := newTestMachine(t, Config{RingSize: 3, StopRatio: 0.95, TargetRatio: 1.1})
	tr := openAt(t, m, 100, domain.None[float64](), domain.None[float64]())

	assert.Equal(t, StateOpen, m.State())
	assert.NotEmpty(t, tr.ID)
	assert.Equal(t, 100.0, tr.MinPrice)
	assert.Equal(t, 100.0, tr.MaxPrice)
	assert.InDelta(t, 95, tr.HardStop.OrElse(0), 1e-9)
	assert.InDelta(t, 110, tr.HardSell.OrElse(0), 1e-9)
	assert.Equal(t, "ema_cross", tr.Strategy)
	assert.Equal(t, "ETHUSDT", tr.Product)

	_, err := m.Open(domain.Fill{Price: 101, Quantity: 1}, domain.None[float64](), domain.None[float64]())
	assert.ErrorIs(t, err, ErrTradeAlreadyOpen)
}

func TestMachine_OpenPrefersStrategyPrices(t *testing.T) {
	m := newTestMachine(t, Config{RingSize: 3, StopRatio: 0.95, TargetRatio: 1.1})
	tr := openAt(t, m, 100, domain.Some(97.0), domain.Some(104.0))
	assert.Equal(t, domain.Some(97.0), tr.HardStop)
	assert.Equal(t, domain.Some(104.0), tr.HardSell)
}

func TestMachine_OpenWithoutRatiosLeavesStopsUnset(t *testing.T) {
	m := newTestMachine(t, Config{RingSize: 3})
	tr := openAt(t, m, 100, domain.None[float64](), domain.None[float64]())
	assert.False(t, tr.HardStop.IsSet())
	assert.False(t, tr.HardSell.IsSet())
}

func TestMachine_UpdateTracksExtremes(t *testing.T) {
	m := newTestMachine(t, Config{RingSize: 3})
	openAt(t, m, 100, domain.None[float64](), domain.None[float64]())

	for _, p := range []float64{103, 97, 101} {
		reason, err := m.Update(p, false)
		require.NoError(t, err)
		assert.False(t, reason.IsSet())
	}
	tr := m.Trade()
	assert.Equal(t, 97.0, tr.MinPrice)
	assert.Equal(t, 103.0, tr.MaxPrice)
	assert.Equal(t, []float64{103, 97, 101}, m.Ring().Prices())
}

func TestMachine_UpdatePrecedence(t *testing.T) {
	tests := []struct {
		name         string
		cfg          Config
		stop, target domain.Optional[float64]
		prices       []float64
		strategySell bool
		want         domain.SellReason
	}{
		{
			name:         "strategy sell beats everything",
			cfg:          Config{RingSize: 2, ExitOnDecline: true},
			stop:         domain.Some(200.0),
			prices:       []float64{99, 98},
			strategySell: true,
			want:         domain.SellReasonStrategy,
		},
		{
			name:   "decline beats hard stop",
			cfg:    Config{RingSize: 5, ExitOnDecline: true},
			stop:   domain.Some(90.0),
			prices: []float64{89.5, 89.4, 89.3, 89.2, 89.1},
			want:   domain.SellReasonDecline,
		},
		{
			name:   "hard sell at target",
			cfg:    Config{RingSize: 3},
			stop:   domain.Some(90.0),
			target: domain.Some(110.0),
			prices: []float64{105, 110},
			want:   domain.SellReasonHardSell,
		},
		{
			name:   "confirmed hard stop",
			cfg:    Config{RingSize: 3},
			stop:   domain.Some(90.0),
			prices: []float64{95, 90, 89, 90},
			want:   domain.SellReasonHardStop,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, tt.cfg)
			openAt(t, m, 100, tt.stop, tt.target)

			var reason domain.Optional[domain.SellReason]
			var err error
			for i, p := range tt.prices {
				last := i == len(tt.prices)-1
				reason, err = m.Update(p, tt.strategySell && last)
				require.NoError(t, err)
				if !last {
					require.False(t, reason.IsSet(), "early exit at price %v", p)
				}
			}
			require.True(t, reason.IsSet())
			assert.Equal(t, tt.want, reason.OrElse(""))
			assert.Equal(t, StateConfirmingExit, m.State())
		})
	}
}

func TestMachine_ReasonIsNeverOverridden(t *testing.T) {
	m := newTestMachine(t, Config{RingSize: 2, ExitOnDecline: true})
	openAt(t, m, 100, domain.Some(95.0), domain.Some(105.0))

	reason, err := m.Update(106, false)
	require.NoError(t, err)
	require.Equal(t, domain.Some(domain.SellReasonHardSell), reason)

	reason, err = m.Update(90, true)
	require.NoError(t, err)
	assert.Equal(t, domain.Some(domain.SellReasonHardSell), reason)
	assert.Equal(t, 90.0, m.Trade().MinPrice)

	require.NoError(t, m.ForceExit(domain.SellReasonShutdown))
	assert.Equal(t, domain.Some(domain.SellReasonHardSell), m.Trade().Reason)
}

func TestMachine_HardStopConfirmationScenario(t *testing.T) {
	m := newTestMachine(t, Config{RingSize: 5})
	openAt(t, m, 100, domain.Some(90.0), domain.None[float64]())

	for _, p := range []float64{95, 92, 91, 89, 88} {
		_, err := m.Update(p, false)
		require.NoError(t, err)
		assert.False(t, m.HasConfirmedHardStop(), "after %v", p)
	}
	for _, p := range []float64{87, 86} {
		reason, err := m.Update(p, false)
		require.NoError(t, err)
		assert.False(t, reason.IsSet())
	}
	reason, err := m.Update(85, false)
	require.NoError(t, err)
	assert.True(t, m.HasConfirmedHardStop())
	assert.Equal(t, domain.Some(domain.SellReasonHardStop), reason)
}

func TestMachine_RaiseStopIsMonotonic(t *testing.T) {
	m := newTestMachine(t, Config{RingSize: 3, StopRatio: 0.9})
	openAt(t, m, 100, domain.None[float64](), domain.None[float64]())

	stops := []float64{0}
	for _, p := range []float64{92, 91, 95, 93, 95, 99, 50} {
		m.RaiseStop(p)
		stops = append(stops, m.Trade().HardStop.OrElse(0))
	}
	for i := 1; i < len(stops); i++ {
		assert.GreaterOrEqual(t, stops[i], stops[i-1])
	}
	assert.Equal(t, 99.0, m.Trade().HardStop.OrElse(0))

	assert.False(t, m.RaiseStop(98))
	assert.True(t, m.RaiseStop(99.5))
}

func TestMachine_CloseClassification(t *testing.T) {
	tests := []struct {
		name       string
		entry      domain.Fill
		exit       domain.Fill
		want       domain.TradeResult
		wantProfit float64
	}{
		{
			name:       "gain after fees",
			entry:      domain.Fill{Price: 100, Quantity: 2, Fee: 1},
			exit:       domain.Fill{Price: 110, Quantity: 2, Fee: 1},
			want:       domain.ResultWin,
			wantProfit: 18,
		},
		{
			name:       "fees eat the gain",
			entry:      domain.Fill{Price: 100, Quantity: 1, Fee: 0.6},
			exit:       domain.Fill{Price: 101, Quantity: 1, Fee: 0.6},
			want:       domain.ResultLose,
			wantProfit: -0.2,
		},
		{
			name:       "break-even is a win",
			entry:      domain.Fill{Price: 100, Quantity: 1, Fee: 0.5},
			exit:       domain.Fill{Price: 101, Quantity: 1, Fee: 0.5},
			want:       domain.ResultWin,
			wantProfit: 0,
		},
		{
			name:       "exact decimal comparison",
			entry:      domain.Fill{Price: 0.1, Quantity: 3},
			exit:       domain.Fill{Price: 0.3, Quantity: 1},
			want:       domain.ResultWin,
			wantProfit: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, Config{RingSize: 2})
			tt.entry.Time = t0
			tt.exit.Time = t0.Add(90 * time.Minute)
			_, err := m.Open(tt.entry, domain.None[float64](), domain.None[float64]())
			require.NoError(t, err)

			_, err = m.Close(tt.exit)
			require.ErrorIs(t, err, ErrInvalidTransition, "close needs an exit reason first")

			_, err = m.Update(tt.exit.Price, true)
			require.NoError(t, err)
			tr, err := m.Close(tt.exit)
			require.NoError(t, err)

			assert.Equal(t, tt.want, tr.Result.OrElse(""))
			assert.InDelta(t, tt.wantProfit, tr.Profit, 1e-9)
			assert.Equal(t, 90*time.Minute, tr.Duration)
			assert.True(t, tr.IsClosed())
			assert.Equal(t, StateClosed, m.State())
		})
	}
}

func TestMachine_RestartClearsPosition(t *testing.T) {
	m := newTestMachine(t, Config{RingSize: 2, MaxOrderAttempts: 2})
	assert.ErrorIs(t, m.Restart(), ErrInvalidTransition)

	m.RecordBuyAttempt()
	openAt(t, m, 100, domain.Some(95.0), domain.None[float64]())
	assert.Equal(t, 1, m.Trade().BuyTries)
	_, err := m.Update(101, true)
	require.NoError(t, err)
	m.RecordSellAttempt()
	_, err = m.Close(domain.Fill{Price: 101, Quantity: 1, Time: t0.Add(time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Trade().SellTries)

	_, err = m.Open(domain.Fill{Price: 100, Quantity: 1}, domain.None[float64](), domain.None[float64]())
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, m.Restart())
	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, domain.Trade{}, m.Trade())
	assert.Equal(t, []float64{0, 0}, m.Ring().Prices())
	assert.Zero(t, m.BuyAttempts())
	assert.Zero(t, m.SellAttempts())

	_, err = m.Update(100, false)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMachine_AttemptCounters(t *testing.T) {
	m := newTestMachine(t, Config{RingSize: 2, MaxOrderAttempts: 2})

	m.RecordBuyAttempt()
	m.RecordBuyAttempt()
	assert.False(t, m.BuyAttemptsExceeded())
	assert.Equal(t, 3, m.RecordBuyAttempt())
	assert.True(t, m.BuyAttemptsExceeded())
	m.ResetBuyAttempts()
	assert.False(t, m.BuyAttemptsExceeded())

	for i := 0; i < 3; i++ {
		m.RecordSellAttempt()
	}
	assert.True(t, m.SellAttemptsExceeded())
	m.ResetSellAttempts()
	assert.Zero(t, m.SellAttempts())

	unlimited := newTestMachine(t, Config{RingSize: 2})
	for i := 0; i < 100; i++ {
		unlimited.RecordBuyAttempt()
	}
	assert.False(t, unlimited.BuyAttemptsExceeded())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "confirming_exit", StateConfirmingExit.String())
	assert.Equal(t, "state(9)", State(9).String())
}
