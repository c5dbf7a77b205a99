package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/metrics"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/risk"
	"cryptoSignalBot/internal/trade"
)

const (
	defaultHistorySize = 1000
	liquidateTimeout   = 10 * time.Second
)

// ErrAgentStopped is returned by RunCycle once the circuit breaker has tripped.
var ErrAgentStopped = errors.New("agent stopped trading")

// AgentConfig holds the named parameters of one agent.
type AgentConfig struct {
	ID                  string
	Product             string
	Granularity         time.Duration // Candle interval
	Interval            time.Duration // Time between cycles
	HistorySize         int           // Candles kept in the series; never below the strategy warm-up
	InitialFunds        float64
	FeeRate             float64 // Expected fee rate, used to size entries
	LiquidateOnShutdown bool
	Trade               trade.Config
	Risk                risk.Config
}

// AgentDeps are the collaborators of an agent.
type AgentDeps struct {
	Strategy ports.Strategy
	Feed     CandleProvider
	Executor ports.OrderExecutor
	Sink     ports.EventSink
	Logger   ports.Logger
	Metrics  *metrics.Metrics // Optional
	Clock    func() time.Time
}

type pendingOrder struct {
	handle *ports.OrderHandle
	stop   domain.Optional[float64]
	target domain.Optional[float64]
}

// Agent runs one strategy on one product. Each cycle merges new candles,
// updates indicators, reconciles the working order, evaluates the strategy,
// advances the trade and checks the circuit breaker, in that order.
// An agent is sequential; it must not be shared between goroutines.
type Agent struct {
	cfg      AgentConfig
	strategy ports.Strategy
	feed     CandleProvider
	executor ports.OrderExecutor
	sink     ports.EventSink
	logger   ports.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	series   *domain.CandleSeries
	machine  *trade.Machine
	governor *risk.Governor
	pending  *pendingOrder
	history  int
	reseed   bool // Indicators were reset and need the full history
}

// NewAgent validates the configuration and builds an idle agent.
func NewAgent(cfg AgentConfig, deps AgentDeps) (*Agent, error) {
	if cfg.ID == "" || cfg.Product == "" {
		return nil, fmt.Errorf("%w: agent id and product are required", ports.ErrConfigurationError)
	}
	if cfg.Granularity <= 0 || cfg.Interval <= 0 {
		return nil, fmt.Errorf("%w: agent %s: granularity and interval must be positive", ports.ErrConfigurationError, cfg.ID)
	}
	if cfg.FeeRate < 0 {
		return nil, fmt.Errorf("%w: agent %s: negative fee rate", ports.ErrConfigurationError, cfg.ID)
	}
	if deps.Strategy == nil || deps.Feed == nil || deps.Executor == nil || deps.Sink == nil || deps.Logger == nil {
		return nil, fmt.Errorf("%w: agent %s: missing required dependencies", ports.ErrConfigurationError, cfg.ID)
	}

	machine, err := trade.NewMachine(deps.Strategy.Name(), cfg.Product, cfg.Trade)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", cfg.ID, err)
	}
	governor, err := risk.NewGovernor(cfg.Risk, cfg.InitialFunds)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", cfg.ID, err)
	}

	history := cfg.HistorySize
	if history <= 0 {
		history = defaultHistorySize
	}
	history = max(history, deps.Strategy.WarmupRequirement())

	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &Agent{
		cfg:      cfg,
		strategy: deps.Strategy,
		feed:     deps.Feed,
		executor: deps.Executor,
		sink:     deps.Sink,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		now:      now,
		series:   domain.NewCandleSeries(cfg.Product, cfg.Granularity),
		machine:  machine,
		governor: governor,
		history:  history,
	}, nil
}

// ID returns the agent id.
func (a *Agent) ID() string { return a.cfg.ID }

// State returns the trade state.
func (a *Agent) State() trade.State { return a.machine.State() }

// Trade returns the current trade.
func (a *Agent) Trade() domain.Trade { return a.machine.Trade() }

// Wallet returns the agent's wallet.
func (a *Agent) Wallet() domain.Wallet { return a.governor.Wallet() }

// Stats returns the risk statistics.
func (a *Agent) Stats() risk.Stats { return a.governor.Stats() }

// Stopped reports whether the circuit breaker tripped.
func (a *Agent) Stopped() bool { return a.governor.Stopped() }

// PendingOrder returns the order being worked, if any.
func (a *Agent) PendingOrder() domain.Optional[ports.OrderHandle] {
	if a.pending == nil {
		return domain.None[ports.OrderHandle]()
	}
	return domain.Some(*a.pending.handle)
}

// Run executes cycles every Interval until ctx is cancelled or the circuit
// breaker trips. Cycle errors are logged and never end the loop.
func (a *Agent) Run(ctx context.Context) error {
	fields := a.fields(nil)
	a.logger.Info(ctx, "Agent started", fields)

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := a.RunCycle(ctx); err != nil && ctx.Err() == nil && !errors.Is(err, ErrAgentStopped) {
			a.logger.Error(ctx, err, "Agent cycle failed", fields)
		}
		if a.governor.Stopped() {
			a.logger.Info(ctx, "Agent stopped by circuit breaker", fields)
			return nil
		}

		select {
		case <-ctx.Done():
			if a.cfg.LiquidateOnShutdown {
				lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), liquidateTimeout)
				if err := a.Liquidate(lctx); err != nil {
					a.logger.Error(lctx, err, "Liquidation on shutdown failed", fields)
				}
				cancel()
			}
			a.logger.Info(ctx, "Agent shut down", fields)
			return nil
		case <-ticker.C:
		}
	}
}

// RunCycle executes one cycle. Transient I/O failures are logged and end the
// cycle without error; invariant violations are returned.
func (a *Agent) RunCycle(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { a.metrics.ObserveCycle(a.cfg.ID, time.Since(start), err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if a.governor.Stopped() {
		return ErrAgentStopped
	}

	snap, err := a.feed.Candles(ctx, a.cfg.Product, a.cfg.Granularity)
	if err != nil {
		a.logger.Warn(ctx, "Candle fetch failed, skipping cycle", a.fields(map[string]interface{}{"error": err.Error()}))
		return nil
	}

	added := a.series.Merge(snap.Candles)
	if added > 0 || a.reseed {
		if err := a.updateIndicators(ctx, added); err != nil {
			return err
		}
		a.series.Prune(a.history)
	}
	if a.series.Len() < a.strategy.WarmupRequirement() {
		a.logger.Debug(ctx, "Warming up", a.fields(map[string]interface{}{
			"candles": a.series.Len(),
			"needed":  a.strategy.WarmupRequirement(),
		}))
		return nil
	}
	last, _ := a.series.Last()

	if a.pending != nil {
		if err := a.reconcile(ctx); err != nil {
			return err
		}
	}
	// Signals and the trade machine advance once per new candle.
	if added > 0 {
		if a.pending != nil {
			if a.machine.HasPosition() {
				if _, err := a.machine.Update(last.Close, false); err != nil {
					return err
				}
			}
		} else if err := a.step(ctx, last.Close); err != nil {
			return err
		}
	}

	a.checkRisk(ctx)
	return nil
}

// updateIndicators feeds the added candles to the strategy. A failed update
// may leave some indicators ahead of others, so the strategy is reset and
// rebuilt from the whole series on the next cycle.
func (a *Agent) updateIndicators(ctx context.Context, added int) error {
	candles := a.series.Candles()
	n := added
	if a.reseed {
		n = len(candles)
		a.logger.Info(ctx, "Reseeding indicators", a.fields(map[string]interface{}{"candles": n}))
	}
	if err := a.strategy.Update(candles, n); err != nil {
		a.strategy.Reset()
		a.reseed = true
		return fmt.Errorf("agent %s: updating indicators: %w", a.cfg.ID, err)
	}
	a.reseed = false
	return nil
}

func (a *Agent) step(ctx context.Context, price float64) error {
	switch a.machine.State() {
	case trade.StateIdle:
		return a.evaluateBuy(ctx, price)
	case trade.StateOpen:
		return a.evaluateSell(ctx, price)
	case trade.StateConfirmingExit:
		// The previous exit order was abandoned or rejected.
		if _, err := a.machine.Update(price, false); err != nil {
			return err
		}
		return a.placeExit(ctx, price)
	default:
		return fmt.Errorf("agent %s: %w: step in %s", a.cfg.ID, trade.ErrInvalidTransition, a.machine.State())
	}
}

func (a *Agent) evaluateBuy(ctx context.Context, price float64) error {
	sig, err := a.strategy.EvaluateBuy(ctx, a.series.Candles())
	if err != nil {
		return fmt.Errorf("agent %s: evaluating buy: %w", a.cfg.ID, err)
	}
	if !sig.IsBuy() {
		a.logger.Debug(ctx, "No entry", a.fields(map[string]interface{}{"reason": sig.Reason}))
		return nil
	}
	a.publishSignal(ctx, sig, price)

	qty := a.governor.EntrySize(price, a.cfg.FeeRate)
	if qty <= 0 || !a.governor.CanAfford(price, qty, a.cfg.FeeRate) {
		a.logger.Warn(ctx, "Buy signal skipped, funds too low", a.fields(map[string]interface{}{
			"price": price,
			"funds": a.governor.Wallet().Funds,
		}))
		return nil
	}

	h, err := a.executor.PlaceLimitOrder(ctx, domain.Buy, a.cfg.Product, price, qty)
	if err != nil {
		a.logger.Error(ctx, err, "Entry order placement failed", a.fields(nil))
		return nil
	}
	a.logger.Info(ctx, "Entry order placed", a.fields(map[string]interface{}{"orderID": h.ID, "price": price, "quantity": qty}))
	a.pending = &pendingOrder{handle: h, stop: sig.StopPrice, target: sig.TargetPrice}
	return a.resolveIfTerminal(ctx)
}

func (a *Agent) evaluateSell(ctx context.Context, price float64) error {
	sig, err := a.strategy.EvaluateSell(ctx, a.series.Candles(), a.machine.View())
	if err != nil {
		// Hard stop and target still apply without a strategy opinion.
		a.logger.Error(ctx, err, "Sell evaluation failed", a.fields(nil))
		sig = domain.NoSignal("evaluation failed")
	}
	if stop, ok := sig.StopPrice.Get(); ok && a.machine.RaiseStop(stop) {
		a.logger.Debug(ctx, "Hard stop raised", a.fields(map[string]interface{}{"stop": stop}))
	}

	reason, err := a.machine.Update(price, sig.IsSell())
	if err != nil {
		return fmt.Errorf("agent %s: %w", a.cfg.ID, err)
	}
	r, ok := reason.Get()
	if !ok {
		return nil
	}
	if r == domain.SellReasonStrategy {
		a.publishSignal(ctx, sig, price)
	} else {
		a.publishSignal(ctx, domain.SellSignal(string(r)), price)
	}
	return a.placeExit(ctx, price)
}

func (a *Agent) placeExit(ctx context.Context, price float64) error {
	qty := a.governor.Wallet().Quantity
	if qty <= 0 {
		qty = a.machine.Trade().Entry.Quantity
	}
	h, err := a.executor.PlaceLimitOrder(ctx, domain.Sell, a.cfg.Product, price, qty)
	if err != nil {
		a.logger.Error(ctx, err, "Exit order placement failed, retrying next candle", a.fields(nil))
		return nil
	}
	a.logger.Info(ctx, "Exit order placed", a.fields(map[string]interface{}{
		"orderID":  h.ID,
		"price":    price,
		"quantity": qty,
		"reason":   a.machine.Trade().Reason.String(),
	}))
	a.pending = &pendingOrder{handle: h}
	return a.resolveIfTerminal(ctx)
}

// resolveIfTerminal settles an order that was already final when placed.
func (a *Agent) resolveIfTerminal(ctx context.Context) error {
	h := a.pending.handle
	switch {
	case h.IsFilled():
		return a.settle(ctx, h)
	case h.Status.IsTerminal():
		a.logger.Warn(ctx, "Order ended without fill", a.fields(map[string]interface{}{"orderID": h.ID, "status": h.Status}))
		a.pending = nil
	}
	return nil
}

// reconcile refreshes the working order, settles fills and abandons orders
// that stayed unfilled for more cycles than allowed.
func (a *Agent) reconcile(ctx context.Context) error {
	h, err := a.executor.GetOrder(ctx, a.pending.handle)
	if err != nil {
		a.logger.Warn(ctx, "Order status fetch failed", a.fields(map[string]interface{}{
			"orderID": a.pending.handle.ID,
			"error":   err.Error(),
		}))
		return nil
	}
	a.pending.handle = h
	if h.Status.IsTerminal() {
		if !h.IsFilled() {
			a.resetAttempts(h.Side)
		}
		return a.resolveIfTerminal(ctx)
	}

	var attempts int
	var exceeded bool
	if h.Side == domain.Buy {
		attempts = a.machine.RecordBuyAttempt()
		exceeded = a.machine.BuyAttemptsExceeded()
	} else {
		attempts = a.machine.RecordSellAttempt()
		exceeded = a.machine.SellAttemptsExceeded()
	}
	if !exceeded {
		return nil
	}

	final, err := a.executor.CancelOrder(ctx, h)
	if err != nil {
		a.logger.Warn(ctx, "Cancel of stale order failed, retrying next cycle", a.fields(map[string]interface{}{
			"orderID": h.ID,
			"error":   err.Error(),
		}))
		return nil
	}
	if final.IsFilled() {
		a.pending.handle = final
		return a.settle(ctx, final)
	}

	a.pending = nil
	a.resetAttempts(h.Side)
	a.logger.Warn(ctx, "Order abandoned after attempt limit", a.fields(map[string]interface{}{
		"orderID":  h.ID,
		"side":     h.Side,
		"attempts": attempts,
	}))
	a.metrics.OrderAbandoned(a.cfg.ID, string(h.Side))
	a.publish(ctx, domain.OrderAbandonedEvent{
		EventSource: a.source(),
		OrderID:     h.ID,
		Side:        h.Side,
		Attempts:    attempts,
	})
	return nil
}

func (a *Agent) resetAttempts(side domain.OrderSide) {
	if side == domain.Buy {
		a.machine.ResetBuyAttempts()
	} else {
		a.machine.ResetSellAttempts()
	}
}

// settle applies a filled order to the wallet and the trade machine.
func (a *Agent) settle(ctx context.Context, h *ports.OrderHandle) error {
	p := a.pending
	a.pending = nil

	fill := h.Fill()
	if fill.Time.IsZero() {
		fill.Time = a.now()
	}

	if h.Side == domain.Buy {
		walletErr := a.governor.ApplyBuy(fill)
		t, err := a.machine.Open(fill, p.stop, p.target)
		if err != nil {
			return errors.Join(walletErr, fmt.Errorf("agent %s: %w", a.cfg.ID, err))
		}
		a.logger.Info(ctx, "Trade opened", a.fields(map[string]interface{}{
			"tradeID":  t.ID,
			"price":    fill.Price,
			"quantity": fill.Quantity,
			"hardStop": t.HardStop.String(),
			"hardSell": t.HardSell.String(),
		}))
		a.publish(ctx, domain.TradeOpenedEvent{EventSource: a.source(), Trade: t, Wallet: a.governor.Wallet()})
		if walletErr != nil {
			return fmt.Errorf("agent %s: entry filled but wallet rejected it: %w", a.cfg.ID, walletErr)
		}
		return nil
	}

	a.governor.ApplySell(fill)
	t, err := a.machine.Close(fill)
	if err != nil {
		return fmt.Errorf("agent %s: %w", a.cfg.ID, err)
	}
	a.governor.RecordResult(t)
	if err := a.machine.Restart(); err != nil {
		return fmt.Errorf("agent %s: %w", a.cfg.ID, err)
	}

	result := t.Result.OrElse("")
	a.logger.Info(ctx, "Trade closed", a.fields(map[string]interface{}{
		"tradeID":  t.ID,
		"result":   result,
		"reason":   t.Reason.String(),
		"profit":   t.Profit,
		"duration": t.Duration.String(),
		"funds":    a.governor.Wallet().Funds,
	}))
	a.metrics.TradeClosed(a.cfg.ID, string(result))
	a.publish(ctx, domain.TradeClosedEvent{EventSource: a.source(), Trade: t, Wallet: a.governor.Wallet()})
	return nil
}

func (a *Agent) checkRisk(ctx context.Context) {
	tripped := a.governor.Check()
	w := a.governor.Wallet()
	a.metrics.SetFunds(a.cfg.ID, w.Funds)
	if !tripped {
		return
	}

	a.logger.Warn(ctx, "Circuit breaker tripped, agent stops trading", a.fields(map[string]interface{}{
		"funds":         w.Funds,
		"highWaterMark": w.HighWaterMark,
		"threshold":     a.governor.Threshold(),
	}))
	a.metrics.StopTrading(a.cfg.ID)
	a.publish(ctx, domain.StopTradingEvent{EventSource: a.source(), Wallet: w, Threshold: a.governor.Threshold()})

	if a.pending != nil && a.pending.handle.Side == domain.Buy {
		if _, err := a.executor.CancelOrder(ctx, a.pending.handle); err != nil {
			a.logger.Error(ctx, err, "Cancel of entry order after stop failed", a.fields(nil))
		}
		a.pending = nil
	}
}

// Liquidate cancels a working entry order and exits the open position with
// reason SHUTDOWN. The exit order is placed at the last close.
func (a *Agent) Liquidate(ctx context.Context) error {
	if a.pending != nil && a.pending.handle.Side == domain.Buy {
		final, err := a.executor.CancelOrder(ctx, a.pending.handle)
		if err != nil {
			return fmt.Errorf("agent %s: cancelling entry: %w", a.cfg.ID, err)
		}
		if final.IsFilled() {
			if err := a.settle(ctx, final); err != nil {
				return err
			}
		} else {
			a.pending = nil
		}
	}
	if !a.machine.HasPosition() || a.pending != nil {
		return nil
	}

	last, ok := a.series.Last()
	if !ok {
		return fmt.Errorf("agent %s: %w", a.cfg.ID, ports.ErrNoMarketPrice)
	}
	if err := a.machine.ForceExit(domain.SellReasonShutdown); err != nil {
		return fmt.Errorf("agent %s: %w", a.cfg.ID, err)
	}
	return a.placeExit(ctx, last.Close)
}

func (a *Agent) publishSignal(ctx context.Context, sig domain.Signal, price float64) {
	a.logger.Info(ctx, "Signal fired", a.fields(map[string]interface{}{
		"direction": sig.Direction,
		"reason":    sig.Reason,
		"price":     price,
	}))
	a.metrics.Signal(a.cfg.ID, string(sig.Direction))
	a.publish(ctx, domain.SignalEvent{EventSource: a.source(), Signal: sig, Price: price})
}

func (a *Agent) publish(ctx context.Context, event domain.Event) {
	if err := a.sink.Publish(ctx, event); err != nil {
		a.metrics.PublishFailed()
		a.logger.Error(ctx, err, "Event delivery failed", a.fields(map[string]interface{}{"kind": event.Kind()}))
	}
}

func (a *Agent) source() domain.EventSource {
	return domain.EventSource{
		AgentID:  a.cfg.ID,
		Strategy: a.strategy.Name(),
		Product:  a.cfg.Product,
		Time:     a.now(),
	}
}

func (a *Agent) fields(extra map[string]interface{}) map[string]interface{} {
	f := map[string]interface{}{
		"agent":    a.cfg.ID,
		"strategy": a.strategy.Name(),
		"product":  a.cfg.Product,
	}
	for k, v := range extra {
		f[k] = v
	}
	return f
}
