package app

import (
	"context"
	"errors"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// LogSink delivers events to the structured logger.
type LogSink struct {
	logger ports.Logger
}

// NewLogSink creates a sink writing to logger.
func NewLogSink(logger ports.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Publish implements ports.EventSink.
func (s *LogSink) Publish(ctx context.Context, event domain.Event) error {
	src := event.Source()
	fields := map[string]interface{}{
		"event":    string(event.Kind()),
		"agent":    src.AgentID,
		"strategy": src.Strategy,
		"product":  src.Product,
		"time":     src.Time,
	}

	switch e := event.(type) {
	case domain.SignalEvent:
		fields["direction"] = e.Signal.Direction
		fields["reason"] = e.Signal.Reason
		fields["price"] = e.Price
		fields["stop"] = e.Signal.StopPrice.String()
		fields["target"] = e.Signal.TargetPrice.String()
	case domain.TradeOpenedEvent:
		fields["tradeID"] = e.Trade.ID
		fields["entryPrice"] = e.Trade.Entry.Price
		fields["quantity"] = e.Trade.Entry.Quantity
		fields["fee"] = e.Trade.Entry.Fee
		fields["hardStop"] = e.Trade.HardStop.String()
		fields["hardSell"] = e.Trade.HardSell.String()
		fields["funds"] = e.Wallet.Funds
	case domain.TradeClosedEvent:
		exit, _ := e.Trade.Exit.Get()
		fields["tradeID"] = e.Trade.ID
		fields["entryPrice"] = e.Trade.Entry.Price
		fields["exitPrice"] = exit.Price
		fields["quantity"] = e.Trade.Entry.Quantity
		fields["fees"] = e.Trade.Entry.Fee + exit.Fee
		fields["profit"] = e.Trade.Profit
		fields["result"] = e.Trade.Result.String()
		fields["reason"] = e.Trade.Reason.String()
		fields["minPrice"] = e.Trade.MinPrice
		fields["maxPrice"] = e.Trade.MaxPrice
		fields["duration"] = e.Trade.Duration.String()
		fields["buyTries"] = e.Trade.BuyTries
		fields["sellTries"] = e.Trade.SellTries
		fields["funds"] = e.Wallet.Funds
	case domain.StopTradingEvent:
		fields["funds"] = e.Wallet.Funds
		fields["highWaterMark"] = e.Wallet.HighWaterMark
		fields["threshold"] = e.Threshold
		s.logger.Warn(ctx, "Agent event", fields)
		return nil
	case domain.OrderAbandonedEvent:
		fields["orderID"] = e.OrderID
		fields["side"] = e.Side
		fields["attempts"] = e.Attempts
		s.logger.Warn(ctx, "Agent event", fields)
		return nil
	}

	s.logger.Info(ctx, "Agent event", fields)
	return nil
}

// MultiSink fans an event out to several sinks. Every sink is tried; the
// errors are joined.
type MultiSink []ports.EventSink

// Publish implements ports.EventSink.
func (m MultiSink) Publish(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
