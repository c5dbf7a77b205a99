package analytics

import (
	"math"
	"slices"
	"sort"
	"time"

	"cryptoSignalBot/internal/domain"
)

// PerformanceMetrics holds comprehensive performance metrics for a set of closed trades
type PerformanceMetrics struct {
	// Basic Metrics
	TotalTrades        int
	WinningTrades      int
	LosingTrades       int
	WinRate            float64
	TotalProfit        float64
	TotalFees          float64
	MaxDrawdown        float64
	ProfitFactor       float64 // Gross profit over gross loss; 0 without losing trades
	AverageWin         float64
	AverageLoss        float64 // Negative or zero
	SharpeRatio        float64 // Mean over standard deviation of per-trade returns
	FinalBalance       float64
	ReturnOnInvestment float64

	// Advanced Metrics
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	AverageTradeDuration time.Duration
	RecoveryFactor       float64
	Expectancy           float64
	RiskRewardRatio      float64
	ExitReasons          map[domain.SellReason]int
	MonthlyReturns       map[string]float64
	Drawdowns            []Drawdown
	EquityCurve          []EquityPoint
}

// Drawdown represents a drawdown period
type Drawdown struct {
	StartTime  time.Time
	EndTime    time.Time
	StartValue float64
	EndValue   float64
	Depth      float64
	Duration   time.Duration
}

// EquityPoint represents a point on the equity curve
type EquityPoint struct {
	Time     time.Time
	Value    float64
	Drawdown float64
}

// AnalyzePerformance calculates performance metrics from closed trades.
// Trades without a result are ignored; the input slice is not reordered.
func AnalyzePerformance(trades []domain.Trade, initialBalance float64) *PerformanceMetrics {
	metrics := &PerformanceMetrics{
		FinalBalance:   initialBalance,
		ExitReasons:    make(map[domain.SellReason]int),
		MonthlyReturns: make(map[string]float64),
		Drawdowns:      make([]Drawdown, 0),
		EquityCurve:    make([]EquityPoint, 0),
	}

	closed := make([]domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t.IsClosed() {
			closed = append(closed, t)
		}
	}
	if len(closed) == 0 {
		return metrics
	}
	slices.SortStableFunc(closed, func(a, b domain.Trade) int {
		return a.ClosedAt.Compare(b.ClosedAt)
	})

	var currentBalance = initialBalance
	var peakBalance = initialBalance
	var currentDrawdown *Drawdown
	var consecutiveWins, consecutiveLosses int
	var grossProfit, grossLoss float64
	var totalDuration time.Duration
	returns := make([]float64, 0, len(closed))

	for _, trade := range closed {
		metrics.TotalTrades++
		if trade.Result.OrElse(domain.ResultLose) == domain.ResultWin {
			metrics.WinningTrades++
			consecutiveWins++
			consecutiveLosses = 0
			grossProfit += trade.Profit
		} else {
			metrics.LosingTrades++
			consecutiveLosses++
			consecutiveWins = 0
			grossLoss += trade.Profit
		}
		metrics.MaxConsecutiveWins = max(metrics.MaxConsecutiveWins, consecutiveWins)
		metrics.MaxConsecutiveLosses = max(metrics.MaxConsecutiveLosses, consecutiveLosses)

		exit := trade.Exit.OrElse(domain.Fill{})
		metrics.TotalFees += trade.Entry.Fee + exit.Fee
		metrics.ExitReasons[trade.Reason.OrElse(domain.SellReasonUnknown)]++
		totalDuration += trade.Duration
		if cost := trade.Entry.Value(); cost > 0 {
			returns = append(returns, trade.Profit/cost)
		}

		currentBalance += trade.Profit
		metrics.TotalProfit += trade.Profit
		metrics.FinalBalance = currentBalance
		metrics.MonthlyReturns[trade.ClosedAt.Format("2006-01")] += trade.Profit

		if currentBalance > peakBalance {
			peakBalance = currentBalance
			if currentDrawdown != nil {
				currentDrawdown.EndTime = trade.ClosedAt
				currentDrawdown.EndValue = currentBalance
				currentDrawdown.Duration = currentDrawdown.EndTime.Sub(currentDrawdown.StartTime)
				metrics.Drawdowns = append(metrics.Drawdowns, *currentDrawdown)
				currentDrawdown = nil
			}
		} else if currentBalance < peakBalance {
			drawdown := (peakBalance - currentBalance) / peakBalance
			if currentDrawdown == nil {
				currentDrawdown = &Drawdown{
					StartTime:  trade.ClosedAt,
					StartValue: peakBalance,
					Depth:      drawdown,
				}
			} else {
				currentDrawdown.Depth = math.Max(currentDrawdown.Depth, drawdown)
			}
			metrics.MaxDrawdown = math.Max(metrics.MaxDrawdown, drawdown)
		}

		metrics.EquityCurve = append(metrics.EquityCurve, EquityPoint{
			Time:     trade.ClosedAt,
			Value:    currentBalance,
			Drawdown: (peakBalance - currentBalance) / peakBalance,
		})
	}

	// Close any open drawdown
	if currentDrawdown != nil {
		currentDrawdown.EndTime = closed[len(closed)-1].ClosedAt
		currentDrawdown.EndValue = currentBalance
		currentDrawdown.Duration = currentDrawdown.EndTime.Sub(currentDrawdown.StartTime)
		metrics.Drawdowns = append(metrics.Drawdowns, *currentDrawdown)
	}

	metrics.WinRate = float64(metrics.WinningTrades) / float64(metrics.TotalTrades)
	if metrics.WinningTrades > 0 {
		metrics.AverageWin = grossProfit / float64(metrics.WinningTrades)
	}
	if metrics.LosingTrades > 0 {
		metrics.AverageLoss = grossLoss / float64(metrics.LosingTrades)
	}
	if grossLoss != 0 {
		metrics.ProfitFactor = grossProfit / -grossLoss
	}
	if metrics.AverageLoss != 0 {
		metrics.RiskRewardRatio = metrics.AverageWin / -metrics.AverageLoss
	}
	if initialBalance > 0 {
		metrics.ReturnOnInvestment = (metrics.FinalBalance - initialBalance) / initialBalance
		if metrics.MaxDrawdown > 0 {
			metrics.RecoveryFactor = metrics.TotalProfit / (initialBalance * metrics.MaxDrawdown)
		}
	}
	metrics.AverageTradeDuration = totalDuration / time.Duration(metrics.TotalTrades)
	metrics.Expectancy = metrics.TotalProfit / float64(metrics.TotalTrades)
	metrics.SharpeRatio = sharpeRatio(returns)

	return metrics
}

// sharpeRatio returns mean/stddev of returns with a zero risk-free rate.
// Fewer than two returns or zero deviation yield 0.
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance)
}

// GetMonthlyReturns returns the monthly returns as a sorted slice
func (m *PerformanceMetrics) GetMonthlyReturns() []MonthlyReturn {
	returns := make([]MonthlyReturn, 0, len(m.MonthlyReturns))
	for month, profit := range m.MonthlyReturns {
		date, _ := time.Parse("2006-01", month)
		returns = append(returns, MonthlyReturn{
			Month:  date,
			Return: profit,
		})
	}
	sort.Slice(returns, func(i, j int) bool {
		return returns[i].Month.Before(returns[j].Month)
	})
	return returns
}

// MonthlyReturn represents a monthly return value
type MonthlyReturn struct {
	Month  time.Time
	Return float64
}
