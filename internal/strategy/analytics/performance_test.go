package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoSignalBot/internal/domain"
)

var base = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func closedTrade(closedAt time.Time, dur time.Duration, profit float64, reason domain.SellReason) domain.Trade {
	result := domain.ResultWin
	if profit < 0 {
		result = domain.ResultLose
	}
	return domain.Trade{
		Product:  "ETHUSDT",
		Entry:    domain.Fill{Price: 100, Quantity: 10, Fee: 1},
		Exit:     domain.Some(domain.Fill{Price: 100 + profit/10, Quantity: 10, Fee: 1}),
		Reason:   domain.Some(reason),
		Result:   domain.Some(result),
		Profit:   profit,
		OpenedAt: closedAt.Add(-dur),
		ClosedAt: closedAt,
		Duration: dur,
	}
}

func TestAnalyzePerformance(t *testing.T) {
	trades := []domain.Trade{
		// Out of order on purpose.
		closedTrade(base.AddDate(0, 0, 26), 3*time.Hour, 80, domain.SellReasonStrategy),
		closedTrade(base, 2*time.Hour, 100, domain.SellReasonStrategy),
		closedTrade(base.AddDate(0, 0, 10), time.Hour, -50, domain.SellReasonHardStop),
		{Product: "ETHUSDT", Entry: domain.Fill{Price: 100, Quantity: 1}},
	}

	m := AnalyzePerformance(trades, 1000)

	assert.Equal(t, 3, m.TotalTrades)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades)
	assert.InDelta(t, 2.0/3.0, m.WinRate, 1e-9)
	assert.InDelta(t, 130.0, m.TotalProfit, 1e-9)
	assert.InDelta(t, 6.0, m.TotalFees, 1e-9)
	assert.InDelta(t, 1130.0, m.FinalBalance, 1e-9)
	assert.InDelta(t, 0.13, m.ReturnOnInvestment, 1e-9)
	assert.InDelta(t, 90.0, m.AverageWin, 1e-9)
	assert.InDelta(t, -50.0, m.AverageLoss, 1e-9)
	assert.InDelta(t, 3.6, m.ProfitFactor, 1e-9)
	assert.InDelta(t, 1.8, m.RiskRewardRatio, 1e-9)
	assert.InDelta(t, 130.0/3.0, m.Expectancy, 1e-9)
	assert.InDelta(t, 50.0/1100.0, m.MaxDrawdown, 1e-9)
	assert.InDelta(t, 2.86, m.RecoveryFactor, 1e-9)
	assert.InDelta(t, 0.5320545808955377, m.SharpeRatio, 1e-9)
	assert.Equal(t, 2*time.Hour, m.AverageTradeDuration)
	assert.Equal(t, 1, m.MaxConsecutiveWins)
	assert.Equal(t, 1, m.MaxConsecutiveLosses)

	assert.Equal(t, map[domain.SellReason]int{
		domain.SellReasonStrategy: 2,
		domain.SellReasonHardStop: 1,
	}, m.ExitReasons)

	require.Len(t, m.Drawdowns, 1)
	dd := m.Drawdowns[0]
	assert.Equal(t, 1100.0, dd.StartValue)
	assert.InDelta(t, 1130.0, dd.EndValue, 1e-9)
	assert.Equal(t, 16*24*time.Hour, dd.Duration)

	require.Len(t, m.EquityCurve, 3)
	assert.InDelta(t, 1100.0, m.EquityCurve[0].Value, 1e-9)
	assert.InDelta(t, 1050.0, m.EquityCurve[1].Value, 1e-9)
	assert.Zero(t, m.EquityCurve[2].Drawdown)

	monthly := m.GetMonthlyReturns()
	require.Len(t, monthly, 2)
	assert.Equal(t, 1, int(monthly[0].Month.Month()))
	assert.InDelta(t, 50.0, monthly[0].Return, 1e-9)
	assert.InDelta(t, 80.0, monthly[1].Return, 1e-9)

	// Input order untouched.
	assert.Equal(t, 80.0, trades[0].Profit)
}

func TestAnalyzePerformance_NoTrades(t *testing.T) {
	m := AnalyzePerformance(nil, 1000)

	assert.Zero(t, m.TotalTrades)
	assert.Equal(t, 1000.0, m.FinalBalance)
	assert.Zero(t, m.WinRate)
	assert.Empty(t, m.EquityCurve)
	assert.Empty(t, m.GetMonthlyReturns())
}

func TestAnalyzePerformance_OnlyWinners(t *testing.T) {
	trades := []domain.Trade{
		closedTrade(base, time.Hour, 10, domain.SellReasonHardSell),
		closedTrade(base.Add(time.Hour), time.Hour, 20, domain.SellReasonHardSell),
	}

	m := AnalyzePerformance(trades, 1000)

	assert.Equal(t, 2, m.MaxConsecutiveWins)
	assert.Zero(t, m.ProfitFactor, "no losses leaves the ratio undefined")
	assert.Zero(t, m.RiskRewardRatio)
	assert.Zero(t, m.MaxDrawdown)
	assert.Zero(t, m.RecoveryFactor)
	assert.Empty(t, m.Drawdowns)
}

func TestAnalyzePerformance_OpenDrawdownIsReported(t *testing.T) {
	trades := []domain.Trade{
		closedTrade(base, time.Hour, -100, domain.SellReasonHardStop),
		closedTrade(base.Add(2*time.Hour), time.Hour, -100, domain.SellReasonHardStop),
	}

	m := AnalyzePerformance(trades, 1000)

	require.Len(t, m.Drawdowns, 1)
	assert.InDelta(t, 0.2, m.Drawdowns[0].Depth, 1e-9)
	assert.InDelta(t, 800.0, m.Drawdowns[0].EndValue, 1e-9)
	assert.Equal(t, 2*time.Hour, m.Drawdowns[0].Duration)
	assert.Equal(t, 2, m.MaxConsecutiveLosses)
}
