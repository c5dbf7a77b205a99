package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"cryptoSignalBot/internal/domain"
)

var (
	// ErrInvalidConfig is returned by NewGovernor for unusable parameters.
	ErrInvalidConfig = errors.New("invalid risk configuration")
	// ErrInsufficientFunds is returned when a buy fill costs more than the wallet holds.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrTradingStopped is returned by operations that open exposure after the breaker tripped.
	ErrTradingStopped = errors.New("trading stopped")
)

// Config holds configuration for risk management
type Config struct {
	StopTradingRatio    float64 // Trip when funds <= ratio * high-water mark with nothing held; 0 disables
	PositionSizePercent float64 // Fraction of funds committed per entry
	MaxPositionSize     float64 // Base quantity cap per entry; 0 means no cap
}

// Stats holds risk management statistics
type Stats struct {
	Trades      int
	Wins        int
	Losses      int
	RealizedPnL float64
	MaxDrawdown float64 // Largest observed (HWM - funds) / HWM
}

// Governor owns an agent's wallet and its capital preservation circuit breaker.
// Once tripped it stays tripped.
type Governor struct {
	config  Config
	wallet  domain.Wallet
	stats   Stats
	stopped bool
}

// NewGovernor creates a governor with a wallet holding funds.
func NewGovernor(config Config, funds float64) (*Governor, error) {
	if config.StopTradingRatio < 0 || config.StopTradingRatio >= 1 {
		return nil, fmt.Errorf("%w: stop trading ratio %.4f must be in [0,1)", ErrInvalidConfig, config.StopTradingRatio)
	}
	if config.PositionSizePercent <= 0 || config.PositionSizePercent > 1 {
		return nil, fmt.Errorf("%w: position size percent %.4f must be in (0,1]", ErrInvalidConfig, config.PositionSizePercent)
	}
	if config.MaxPositionSize < 0 {
		return nil, fmt.Errorf("%w: max position size %.8f", ErrInvalidConfig, config.MaxPositionSize)
	}
	if funds <= 0 {
		return nil, fmt.Errorf("%w: initial funds %.2f", ErrInvalidConfig, funds)
	}
	return &Governor{config: config, wallet: domain.NewWallet(funds)}, nil
}

// Check raises the high-water mark and evaluates the circuit breaker. It
// reports true only on the call that trips it.
func (g *Governor) Check() bool {
	w := &g.wallet
	if w.Funds > w.HighWaterMark {
		w.HighWaterMark = w.Funds
	}
	if w.HighWaterMark > 0 {
		dd := (w.HighWaterMark - w.Funds) / w.HighWaterMark
		g.stats.MaxDrawdown = math.Max(g.stats.MaxDrawdown, dd)
	}
	if g.stopped || g.config.StopTradingRatio == 0 || w.Quantity != 0 {
		return false
	}
	threshold := decimal.NewFromFloat(g.config.StopTradingRatio).Mul(decimal.NewFromFloat(w.HighWaterMark))
	if decimal.NewFromFloat(w.Funds).GreaterThan(threshold) {
		return false
	}
	g.stopped = true
	return true
}

// Threshold returns the funds level at or below which the breaker trips.
func (g *Governor) Threshold() float64 {
	return decimal.NewFromFloat(g.config.StopTradingRatio).
		Mul(decimal.NewFromFloat(g.wallet.HighWaterMark)).
		InexactFloat64()
}

// Stopped reports whether the breaker has tripped.
func (g *Governor) Stopped() bool { return g.stopped }

// Wallet returns a copy of the wallet.
func (g *Governor) Wallet() domain.Wallet { return g.wallet }

// Stats returns a copy of the statistics.
func (g *Governor) Stats() Stats { return g.stats }

// QuantityPlaces is the precision entry sizes are truncated to.
const QuantityPlaces = 8

// EntrySize returns the base quantity to buy at price so that the notional
// plus a fee at feeRate fits the committed share of funds. The size is
// truncated to QuantityPlaces, so CanAfford holds for it.
func (g *Governor) EntrySize(price, feeRate float64) float64 {
	if price <= 0 || feeRate < 0 || g.stopped {
		return 0
	}
	budget := decimal.NewFromFloat(g.wallet.Funds).Mul(decimal.NewFromFloat(g.config.PositionSizePercent))
	unit := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(feeRate).Add(decimal.NewFromInt(1)))
	size := budget.Div(unit).Truncate(QuantityPlaces)
	if g.config.MaxPositionSize > 0 {
		size = decimal.Min(size, decimal.NewFromFloat(g.config.MaxPositionSize).Truncate(QuantityPlaces))
	}
	// Div rounds half up at DivisionPrecision; step down if that crossed a tick.
	tick := decimal.New(1, -QuantityPlaces)
	for size.IsPositive() && size.Mul(unit).GreaterThan(budget) {
		size = size.Sub(tick)
	}
	if !size.IsPositive() {
		return 0
	}
	return size.InexactFloat64()
}

// CanAfford reports whether quantity at price plus the fee fits the funds.
func (g *Governor) CanAfford(price, quantity, feeRate float64) bool {
	cost := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(quantity))
	cost = cost.Add(cost.Mul(decimal.NewFromFloat(feeRate)))
	return cost.IsPositive() && !cost.GreaterThan(decimal.NewFromFloat(g.wallet.Funds))
}

// ApplyBuy moves the cost of an entry fill from funds into the held quantity.
func (g *Governor) ApplyBuy(fill domain.Fill) error {
	if g.stopped {
		return ErrTradingStopped
	}
	cost := decimal.NewFromFloat(fill.Price).Mul(decimal.NewFromFloat(fill.Quantity)).Add(decimal.NewFromFloat(fill.Fee))
	funds := decimal.NewFromFloat(g.wallet.Funds)
	if cost.GreaterThan(funds) {
		return fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, cost.StringFixed(2), funds.StringFixed(2))
	}
	g.wallet.Funds = funds.Sub(cost).InexactFloat64()
	g.wallet.Quantity = decimal.NewFromFloat(g.wallet.Quantity).Add(decimal.NewFromFloat(fill.Quantity)).InexactFloat64()
	return nil
}

// ApplySell credits the proceeds of an exit fill, net of fees.
func (g *Governor) ApplySell(fill domain.Fill) {
	proceeds := decimal.NewFromFloat(fill.Price).Mul(decimal.NewFromFloat(fill.Quantity)).Sub(decimal.NewFromFloat(fill.Fee))
	g.wallet.Funds = decimal.NewFromFloat(g.wallet.Funds).Add(proceeds).InexactFloat64()
	qty := decimal.NewFromFloat(g.wallet.Quantity).Sub(decimal.NewFromFloat(fill.Quantity))
	if qty.IsNegative() {
		qty = decimal.Zero
	}
	g.wallet.Quantity = qty.InexactFloat64()
}

// RecordResult updates the statistics with a closed trade.
func (g *Governor) RecordResult(t domain.Trade) {
	result, ok := t.Result.Get()
	if !ok {
		return
	}
	g.stats.Trades++
	g.stats.RealizedPnL += t.Profit
	if result == domain.ResultWin {
		g.stats.Wins++
	} else {
		g.stats.Losses++
	}
}
