package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"cryptoSignalBot/internal/adapters/logger"
	"cryptoSignalBot/internal/domain"
)

func TestLogSink_Publish(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewLogSink(logger.New(zap.New(core)))
	ctx := context.Background()
	src := domain.EventSource{AgentID: "a1", Strategy: "EMA_CROSS", Product: "ETHUSDT", Time: testBase}

	require.NoError(t, sink.Publish(ctx, domain.SignalEvent{
		EventSource: src,
		Signal:      domain.BuySignal("cross").WithStop(95),
		Price:       100,
	}))
	require.NoError(t, sink.Publish(ctx, domain.TradeClosedEvent{
		EventSource: src,
		Trade: domain.Trade{
			ID:     "t1",
			Entry:  domain.Fill{Price: 100, Quantity: 1, Fee: 0.1},
			Exit:   domain.Some(domain.Fill{Price: 110, Quantity: 1, Fee: 0.11}),
			Result: domain.Some(domain.ResultWin),
			Profit: 9.79,
		},
	}))
	require.NoError(t, sink.Publish(ctx, domain.StopTradingEvent{
		EventSource: src,
		Wallet:      domain.Wallet{Funds: 850, HighWaterMark: 1000},
		Threshold:   900,
	}))

	entries := logs.All()
	require.Len(t, entries, 3)

	signal := entries[0].ContextMap()
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "signal", signal["event"])
	assert.Equal(t, "a1", signal["agent"])
	assert.Equal(t, "cross", signal["reason"])
	assert.Equal(t, 100.0, signal["price"])

	closed := entries[1].ContextMap()
	assert.Equal(t, "trade_closed", closed["event"])
	assert.Equal(t, 110.0, closed["exitPrice"])
	assert.InDelta(t, 0.21, closed["fees"], 1e-9)

	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, 900.0, entries[2].ContextMap()["threshold"])
}

func TestMultiSink_DeliversToAllAndJoinsErrors(t *testing.T) {
	first := &recordingSink{err: errBoom}
	second := &recordingSink{}
	multi := MultiSink{first, second}

	event := domain.OrderAbandonedEvent{OrderID: "O-1", Side: domain.Buy, Attempts: 3}
	err := multi.Publish(context.Background(), event)

	assert.ErrorIs(t, err, errBoom)
	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 1)

	assert.NoError(t, MultiSink{second}.Publish(context.Background(), event))
}
