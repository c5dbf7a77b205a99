package backtesting

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cryptoSignalBot/internal/adapters/csvfeed"
	"cryptoSignalBot/internal/adapters/paper"
	"cryptoSignalBot/internal/app"
	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/risk"
	"cryptoSignalBot/internal/strategy/analytics"
)

// BacktestConfig holds configuration for backtesting
type BacktestConfig struct {
	Agent       app.AgentConfig
	SlippageBps int64           // Paper fill slippage
	Window      int             // Candles handed to the agent per cycle; 0 means the feed default
	Sink        ports.EventSink // Optional extra destination for the agent's events
	Liquidate   bool            // Close a position still open when the data runs out
}

// BacktestResult holds the results of a backtest
type BacktestResult struct {
	AgentID   string
	Strategy  string
	Product   string
	Candles   int // Candles replayed
	Signals   int
	Abandoned int // Orders cancelled after the attempt limit
	Stopped   bool
	Trades    []domain.Trade
	Wallet    domain.Wallet
	Stats     risk.Stats
	Metrics   *analytics.PerformanceMetrics
}

// recorder keeps the events a backtest needs for its result.
type recorder struct {
	mu        sync.Mutex
	trades    []domain.Trade
	signals   int
	abandoned int
}

func (r *recorder) Publish(ctx context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch e := event.(type) {
	case domain.SignalEvent:
		r.signals++
	case domain.TradeClosedEvent:
		r.trades = append(r.trades, e.Trade)
	case domain.OrderAbandonedEvent:
		r.abandoned++
	}
	return nil
}

// Backtest replays candles through a live agent wired to a paper executor.
// Each candle is one agent cycle; the simulated clock is the close time of the
// newest replayed candle.
func Backtest(ctx context.Context, strategy ports.Strategy, candles []domain.Candle, config BacktestConfig, logger ports.Logger) (*BacktestResult, error) {
	if len(candles) < strategy.WarmupRequirement() {
		return nil, fmt.Errorf("%w: %d candles, strategy %s needs %d",
			ports.ErrNoCandles, len(candles), strategy.Name(), strategy.WarmupRequirement())
	}
	cfg := config.Agent
	if cfg.Interval <= 0 {
		cfg.Interval = cfg.Granularity
	}

	replay := csvfeed.New(cfg.Granularity, config.Window)
	replay.Load(cfg.Product, candles)

	feed, err := app.NewCandleFeed(app.FeedConfig{
		Source: replay,
		Logger: logger,
		Clock:  replay.Now,
	})
	if err != nil {
		return nil, err
	}
	executor, err := paper.New(paper.Config{
		Prices:      replay,
		Logger:      logger,
		SlippageBps: config.SlippageBps,
		FeeRate:     cfg.FeeRate,
		Clock:       replay.Now,
	})
	if err != nil {
		return nil, err
	}

	rec := &recorder{}
	var sink ports.EventSink = rec
	if config.Sink != nil {
		sink = app.MultiSink{rec, config.Sink}
	}

	agent, err := app.NewAgent(cfg, app.AgentDeps{
		Strategy: strategy,
		Feed:     feed,
		Executor: executor,
		Sink:     sink,
		Logger:   logger,
		Clock:    replay.Now,
	})
	if err != nil {
		return nil, err
	}

	replayed := 0
	for replay.Advance() {
		replayed++
		if err := agent.RunCycle(ctx); err != nil {
			if errors.Is(err, app.ErrAgentStopped) {
				break
			}
			return nil, fmt.Errorf("backtest %s at candle %d: %w", cfg.ID, replayed, err)
		}
		if agent.Stopped() {
			break
		}
	}

	if config.Liquidate && !agent.Stopped() {
		if err := agent.Liquidate(ctx); err != nil {
			return nil, fmt.Errorf("backtest %s: liquidating: %w", cfg.ID, err)
		}
	}

	result := &BacktestResult{
		AgentID:   cfg.ID,
		Strategy:  strategy.Name(),
		Product:   cfg.Product,
		Candles:   replayed,
		Signals:   rec.signals,
		Abandoned: rec.abandoned,
		Stopped:   agent.Stopped(),
		Trades:    rec.trades,
		Wallet:    agent.Wallet(),
		Stats:     agent.Stats(),
	}
	result.Metrics = analytics.AnalyzePerformance(result.Trades, cfg.InitialFunds)
	return result, nil
}
