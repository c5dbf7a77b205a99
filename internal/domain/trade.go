package domain

import "time"

// Fill describes the executed part of an order.
type Fill struct {
	Price    float64   // Average fill price
	Quantity float64   // Filled size
	Fee      float64   // Fees paid in quote currency
	Time     time.Time // Time the fill was observed
}

// Value returns price * quantity.
func (f Fill) Value() float64 {
	return f.Price * f.Quantity
}

// Trade represents one open-to-closed position of an agent.
type Trade struct {
	ID        string // Unique identifier (uuid), empty until opened
	Strategy  string // Strategy code that opened the trade
	Product   string // Product id (e.g., "ETHUSDT")
	Entry     Fill
	Exit      Optional[Fill]
	MinPrice  float64 // Lowest observed price while open
	MaxPrice  float64 // Highest observed price while open
	HardStop  Optional[float64]
	HardSell  Optional[float64]
	Reason    Optional[SellReason]
	Result    Optional[TradeResult]
	Profit    float64 // Net of fees, set on close
	OpenedAt  time.Time
	ClosedAt  time.Time
	Duration  time.Duration
	BuyTries  int // Cycles the entry order stayed unfilled
	SellTries int // Cycles the exit order stayed unfilled
}

// IsClosed reports whether the trade has an exit fill and a result.
func (t Trade) IsClosed() bool {
	return t.Result.IsSet()
}

// PositionView is the read-only slice of an open trade a strategy may look at.
type PositionView struct {
	Product    string
	EntryPrice float64
	Quantity   float64
	MinPrice   float64
	MaxPrice   float64
	HardStop   Optional[float64]
	OpenedAt   time.Time
}
