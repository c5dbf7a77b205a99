package ports

import (
	"context"
	"time"

	"cryptoSignalBot/internal/domain"
)

// OrderHandle represents the essential details of a limit order as last reported by an executor.
type OrderHandle struct {
	ID         string             // Executor's order ID
	Product    string             // Product the order is for
	Side       domain.OrderSide   // BUY or SELL
	LimitPrice float64            // Requested limit price
	Quantity   float64            // Requested quantity
	Status     domain.OrderStatus // pending, filled, done, rejected, cancelled
	FilledSize float64            // Quantity filled so far
	Price      float64            // Average fill price (0 until something filled)
	Fees       float64            // Fees paid in quote currency
	UpdatedAt  time.Time          // Time of the last status update
}

// IsFilled reports whether the order reached a terminal state with a fill.
func (h *OrderHandle) IsFilled() bool {
	switch h.Status {
	case domain.OrderFilled:
		return true
	case domain.OrderDone:
		return h.FilledSize > 0
	default:
		return false
	}
}

// Fill converts the filled part of the order into a domain fill.
func (h *OrderHandle) Fill() domain.Fill {
	return domain.Fill{
		Price:    h.Price,
		Quantity: h.FilledSize,
		Fee:      h.Fees,
		Time:     h.UpdatedAt,
	}
}

// CandleSource supplies recent candles for a product.
type CandleSource interface {
	// FetchRecentCandles returns the most recent candles for product at the given
	// granularity, ordered oldest first.
	FetchRecentCandles(ctx context.Context, product string, granularity time.Duration) ([]domain.Candle, error)
}

// OrderExecutor places and tracks limit orders. Agents only read the returned handles;
// cancellation after too many unfilled cycles is also requested through this interface.
type OrderExecutor interface {
	// PlaceLimitOrder places a limit order and returns its initial handle.
	PlaceLimitOrder(ctx context.Context, side domain.OrderSide, product string, price, quantity float64) (*OrderHandle, error)

	// GetOrder refreshes the state of a previously placed order.
	GetOrder(ctx context.Context, order *OrderHandle) (*OrderHandle, error)

	// CancelOrder cancels an open order and returns its final state.
	CancelOrder(ctx context.Context, order *OrderHandle) (*OrderHandle, error)
}
