package ports

import (
	"context"

	"cryptoSignalBot/internal/domain"
)

// EventSink receives structured agent events for delivery (log, journal, notification).
type EventSink interface {
	// Publish delivers one event. Implementations must not retain the event after returning.
	Publish(ctx context.Context, event domain.Event) error
}

// TradeJournal provides read access to persisted closed trades.
type TradeJournal interface {
	// FindClosedTrades retrieves the most recent closed trades for a product, newest first.
	// An empty product matches every product.
	FindClosedTrades(ctx context.Context, product string, limit int) ([]domain.Trade, error)
	// CountStopEvents counts circuit-breaker trips recorded for an agent.
	CountStopEvents(ctx context.Context, agentID string) (int, error)
}
