package ports

import (
	"context"

	"cryptoSignalBot/internal/domain"
)

// Strategy defines the interface for trading strategies.
type Strategy interface {
	// Name returns the registry code of the strategy.
	Name() string

	// WarmupRequirement returns the minimum number of candles before the first evaluation.
	WarmupRequirement() int

	// Update feeds the newCount newest candles of history to the strategy's indicators.
	Update(history []domain.Candle, newCount int) error

	// Reset discards all indicator state; the next Update must pass the full history.
	Reset()

	// EvaluateBuy decides whether to open a position. Only called with no position open.
	EvaluateBuy(ctx context.Context, candles []domain.Candle) (domain.Signal, error)

	// EvaluateSell decides whether to close the open position, or proposes a higher stop.
	// Only called with a position open.
	EvaluateSell(ctx context.Context, candles []domain.Candle, pos domain.PositionView) (domain.Signal, error)
}
