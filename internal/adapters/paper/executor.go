package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// PriceSource reports the last traded price of a product.
type PriceSource interface {
	LastPrice(product string) (float64, bool)
}

// Config holds the simulation parameters.
type Config struct {
	Prices      PriceSource
	Logger      ports.Logger
	SlippageBps int64   // Basis points of adverse slippage (e.g., 5 = 0.05%)
	FeeRate     float64 // Fee charged on filled notional
	Clock       func() time.Time
}

// Executor simulates limit orders against the last known market price.
// A buy fills once the market trades at or below its limit, a sell at or above;
// the fill price includes slippage but is never worse than the limit.
// It implements ports.OrderExecutor and is safe for concurrent use.
type Executor struct {
	mu       sync.Mutex
	orders   map[string]*ports.OrderHandle
	orderSeq int64

	prices   PriceSource
	logger   ports.Logger
	slippage decimal.Decimal
	feeRate  decimal.Decimal
	now      func() time.Time
}

var _ ports.OrderExecutor = (*Executor)(nil)

// New creates a paper executor.
func New(cfg Config) (*Executor, error) {
	if cfg.Prices == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("%w: paper executor needs a price source and a logger", ports.ErrConfigurationError)
	}
	if cfg.SlippageBps < 0 || cfg.FeeRate < 0 {
		return nil, fmt.Errorf("%w: negative slippage or fee rate", ports.ErrConfigurationError)
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Executor{
		orders:   make(map[string]*ports.OrderHandle),
		prices:   cfg.Prices,
		logger:   cfg.Logger,
		slippage: decimal.New(cfg.SlippageBps, -4),
		feeRate:  decimal.NewFromFloat(cfg.FeeRate),
		now:      now,
	}, nil
}

// PlaceLimitOrder records the order and fills it immediately when the market allows.
func (e *Executor) PlaceLimitOrder(ctx context.Context, side domain.OrderSide, product string, price, quantity float64) (*ports.OrderHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("PlaceLimitOrder failed: %w: %w", ports.ErrContextCanceled, err)
	}
	if side != domain.Buy && side != domain.Sell {
		return nil, fmt.Errorf("PlaceLimitOrder failed: %w: side %q", ports.ErrInvalidRequest, side)
	}
	if price <= 0 || quantity <= 0 {
		return nil, fmt.Errorf("PlaceLimitOrder failed: %w: price %v quantity %v", ports.ErrInvalidRequest, price, quantity)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.orderSeq++
	order := &ports.OrderHandle{
		ID:         fmt.Sprintf("PAPER-%d", e.orderSeq),
		Product:    product,
		Side:       side,
		LimitPrice: price,
		Quantity:   quantity,
		Status:     domain.OrderPending,
		UpdatedAt:  e.now(),
	}
	e.orders[order.ID] = order
	e.tryFill(order)

	e.logger.Debug(ctx, "Paper order placed", map[string]interface{}{
		"orderID": order.ID,
		"product": product,
		"side":    side,
		"limit":   price,
		"qty":     quantity,
		"status":  order.Status,
	})
	snapshot := *order
	return &snapshot, nil
}

// GetOrder re-checks a pending order against the current market price.
func (e *Executor) GetOrder(ctx context.Context, order *ports.OrderHandle) (*ports.OrderHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stored, ok := e.orders[order.ID]
	if !ok {
		return nil, fmt.Errorf("GetOrder failed: %w: %s", ports.ErrOrderNotFound, order.ID)
	}
	if stored.Status == domain.OrderPending {
		e.tryFill(stored)
	}
	snapshot := *stored
	return &snapshot, nil
}

// CancelOrder cancels a pending order. Terminal orders are returned unchanged.
func (e *Executor) CancelOrder(ctx context.Context, order *ports.OrderHandle) (*ports.OrderHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stored, ok := e.orders[order.ID]
	if !ok {
		return nil, fmt.Errorf("CancelOrder failed: %w: %s", ports.ErrOrderNotFound, order.ID)
	}
	if stored.Status == domain.OrderPending {
		stored.Status = domain.OrderCancelled
		stored.UpdatedAt = e.now()
		e.logger.Debug(ctx, "Paper order cancelled", map[string]interface{}{"orderID": stored.ID})
	}
	snapshot := *stored
	return &snapshot, nil
}

// Orders returns a snapshot of every order placed so far.
func (e *Executor) Orders() []ports.OrderHandle {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]ports.OrderHandle, 0, len(e.orders))
	for i := int64(1); i <= e.orderSeq; i++ {
		if o, ok := e.orders[fmt.Sprintf("PAPER-%d", i)]; ok {
			out = append(out, *o)
		}
	}
	return out
}

// tryFill fills order in full when the last price crosses its limit. Caller holds e.mu.
func (e *Executor) tryFill(order *ports.OrderHandle) {
	last, ok := e.prices.LastPrice(order.Product)
	if !ok || last <= 0 {
		return
	}

	market := decimal.NewFromFloat(last)
	limit := decimal.NewFromFloat(order.LimitPrice)
	one := decimal.NewFromInt(1)

	var fill decimal.Decimal
	switch order.Side {
	case domain.Buy:
		if market.GreaterThan(limit) {
			return
		}
		fill = decimal.Min(market.Mul(one.Add(e.slippage)), limit)
	case domain.Sell:
		if market.LessThan(limit) {
			return
		}
		fill = decimal.Max(market.Mul(one.Sub(e.slippage)), limit)
	}

	qty := decimal.NewFromFloat(order.Quantity)
	order.Status = domain.OrderFilled
	order.FilledSize = order.Quantity
	order.Price = fill.InexactFloat64()
	order.Fees = fill.Mul(qty).Mul(e.feeRate).InexactFloat64()
	order.UpdatedAt = e.now()
}
