package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// OrderStatus is the lifecycle status of a limit order as reported by an executor.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderFilled    OrderStatus = "filled"
	OrderDone      OrderStatus = "done" // Terminal; filled when FilledSize > 0
	OrderRejected  OrderStatus = "rejected"
	OrderCancelled OrderStatus = "cancelled"
)

// IsTerminal reports whether no further fills can happen for the order.
func (s OrderStatus) IsTerminal() bool {
	return s != OrderPending
}

// Direction is the action a strategy signal asks for.
type Direction string

const (
	DirectionNone Direction = "none"
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// SellReason indicates why an open trade is being exited.
type SellReason string

const (
	SellReasonStrategy SellReason = "STRATEGY"
	SellReasonDecline  SellReason = "CONFIRMED_DECLINE"
	SellReasonHardSell SellReason = "HARD_SELL"
	SellReasonHardStop SellReason = "HARD_STOP"
	SellReasonShutdown SellReason = "SHUTDOWN"
	SellReasonUnknown  SellReason = "UNKNOWN"
)

// TradeResult classifies a closed trade.
type TradeResult string

const (
	ResultWin  TradeResult = "WIN"
	ResultLose TradeResult = "LOSE"
)
