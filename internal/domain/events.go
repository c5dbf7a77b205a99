package domain

import "time"

// EventKind identifies the type of an agent event.
type EventKind string

const (
	EventSignal         EventKind = "signal"
	EventTradeOpened    EventKind = "trade_opened"
	EventTradeClosed    EventKind = "trade_closed"
	EventStopTrading    EventKind = "stop_trading"
	EventOrderAbandoned EventKind = "order_abandoned"
)

// Event is plain data emitted by an agent for delivery by a collaborator.
type Event interface {
	Kind() EventKind
	Source() EventSource
}

// EventSource identifies the emitting agent.
type EventSource struct {
	AgentID  string
	Strategy string
	Product  string
	Time     time.Time
}

// SignalEvent is emitted when a strategy or the trade machine fires a buy or sell.
type SignalEvent struct {
	EventSource
	Signal Signal
	Price  float64
}

func (e SignalEvent) Kind() EventKind { return EventSignal }
func (e SignalEvent) Source() EventSource { return e.EventSource }

// TradeOpenedEvent is emitted after an entry order fills.
type TradeOpenedEvent struct {
	EventSource
	Trade  Trade
	Wallet Wallet
}

func (e TradeOpenedEvent) Kind() EventKind { return EventTradeOpened }
func (e TradeOpenedEvent) Source() EventSource { return e.EventSource }

// TradeClosedEvent carries the full financial summary of a closed trade.
type TradeClosedEvent struct {
	EventSource
	Trade  Trade
	Wallet Wallet
}

func (e TradeClosedEvent) Kind() EventKind { return EventTradeClosed }
func (e TradeClosedEvent) Source() EventSource { return e.EventSource }

// StopTradingEvent is emitted once when the circuit breaker trips.
type StopTradingEvent struct {
	EventSource
	Wallet    Wallet
	Threshold float64
}

func (e StopTradingEvent) Kind() EventKind { return EventStopTrading }
func (e StopTradingEvent) Source() EventSource { return e.EventSource }

// OrderAbandonedEvent is emitted when an order exceeded its attempt limit and was cancelled.
type OrderAbandonedEvent struct {
	EventSource
	OrderID  string
	Side     OrderSide
	Attempts int
}

func (e OrderAbandonedEvent) Kind() EventKind { return EventOrderAbandoned }
func (e OrderAbandonedEvent) Source() EventSource { return e.EventSource }
