package strategies

import (
	"context"
	"fmt"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/strategy/indicators"
)

// CodeEMACross is the registry code of the EMA crossover strategy.
const CodeEMACross = "ema_cross"

// EMACrossConfig holds configuration for the EMA crossover strategy
type EMACrossConfig struct {
	FastPeriod          int     // Fast EMA period (e.g., 9)
	SlowPeriod          int     // Slow EMA period (e.g., 21)
	RSIPeriod           int     // RSI filter period (e.g., 14)
	RSIMax              float64 // No entries at or above this RSI (e.g., 70)
	ATRPeriod           int     // ATR period for stops (e.g., 14)
	ATRMultiplier       float64 // Stop distance in ATRs (e.g., 2.5)
	BreakEvenActivation float64 // Profit fraction at which the stop moves to entry (e.g., 0.01); 0 disables
	Retention           int     // Values each indicator keeps; 0 means the indicator default
}

// EMACross buys when the fast EMA crosses above the slow EMA with RSI below
// its ceiling and sells on the opposite cross. While a position is open the
// stop trails the close by ATRMultiplier ATRs.
type EMACross struct {
	*BaseStrategy
	config EMACrossConfig
	fast   *indicators.EMA
	slow   *indicators.EMA
	rsi    *indicators.RSI
	atr    *indicators.ATR
}

// NewEMACross is the registry factory for CodeEMACross.
func NewEMACross(params Params, logger ports.Logger) (ports.Strategy, error) {
	retention, err := params.Retention()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", CodeEMACross, err)
	}
	return NewEMACrossStrategy(EMACrossConfig{
		FastPeriod:          params.Int("fast_period", 9),
		SlowPeriod:          params.Int("slow_period", 21),
		RSIPeriod:           params.Int("rsi_period", 14),
		RSIMax:              params.Float("rsi_max", 70),
		ATRPeriod:           params.Int("atr_period", 14),
		ATRMultiplier:       params.Float("atr_multiplier", 2.5),
		BreakEvenActivation: params.Float("break_even_activation", 0.01),
		Retention:           retention,
	}, logger)
}

// NewEMACrossStrategy creates a new EMA crossover strategy instance
func NewEMACrossStrategy(config EMACrossConfig, logger ports.Logger) (*EMACross, error) {
	if config.FastPeriod >= config.SlowPeriod {
		return nil, fmt.Errorf("%s: %w: fast period %d must be below slow period %d", CodeEMACross, ErrInvalidParams, config.FastPeriod, config.SlowPeriod)
	}
	if config.ATRMultiplier <= 0 {
		return nil, fmt.Errorf("%s: %w: ATR multiplier must be positive", CodeEMACross, ErrInvalidParams)
	}
	if config.RSIMax <= 0 || config.RSIMax > 100 {
		return nil, fmt.Errorf("%s: %w: RSI ceiling %.2f", CodeEMACross, ErrInvalidParams, config.RSIMax)
	}

	fast, err := indicators.NewEMA(indicators.IndicatorConfig{Period: config.FastPeriod, Retention: config.Retention})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", CodeEMACross, ErrInvalidParams, err)
	}
	slow, err := indicators.NewEMA(indicators.IndicatorConfig{Period: config.SlowPeriod, Retention: config.Retention})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", CodeEMACross, ErrInvalidParams, err)
	}
	rsi, err := indicators.NewRSI(indicators.RSIConfig{IndicatorConfig: indicators.IndicatorConfig{Period: config.RSIPeriod, Retention: config.Retention}})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", CodeEMACross, ErrInvalidParams, err)
	}
	atr, err := indicators.NewATR(indicators.IndicatorConfig{Period: config.ATRPeriod, Retention: config.Retention})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", CodeEMACross, ErrInvalidParams, err)
	}

	base, err := NewBaseStrategy(CodeEMACross, logger, fast, slow, rsi, atr)
	if err != nil {
		return nil, err
	}
	return &EMACross{BaseStrategy: base, config: config, fast: fast, slow: slow, rsi: rsi, atr: atr}, nil
}

// EvaluateBuy implements ports.Strategy.
func (s *EMACross) EvaluateBuy(ctx context.Context, candles []domain.Candle) (domain.Signal, error) {
	if err := s.checkHistory(candles); err != nil {
		return domain.Signal{}, err
	}
	if !indicators.SeriesCrossedAbove(s.fast.Values(), s.slow.Values()) {
		return domain.NoSignal("no bullish EMA cross"), nil
	}
	rsi, ok := s.rsi.Values().Last()
	if !ok {
		return domain.Signal{}, s.notReady(s.rsi.Name())
	}
	if rsi >= s.config.RSIMax {
		return domain.NoSignal(fmt.Sprintf("bullish EMA cross filtered, RSI %.2f >= %.2f", rsi, s.config.RSIMax)), nil
	}
	atr, ok := s.atr.Values().Last()
	if !ok {
		return domain.Signal{}, s.notReady(s.atr.Name())
	}

	price := lastClose(candles)
	stop := price - atr*s.config.ATRMultiplier
	s.debug(ctx, "EMA cross entry", map[string]interface{}{
		"price": price,
		"rsi":   rsi,
		"atr":   atr,
		"stop":  stop,
	})
	sig := domain.BuySignal(fmt.Sprintf("%s crossed above %s, RSI %.2f", s.fast.Name(), s.slow.Name(), rsi))
	if stop > 0 {
		sig = sig.WithStop(stop)
	}
	return sig, nil
}

// EvaluateSell implements ports.Strategy.
func (s *EMACross) EvaluateSell(ctx context.Context, candles []domain.Candle, pos domain.PositionView) (domain.Signal, error) {
	if err := s.checkHistory(candles); err != nil {
		return domain.Signal{}, err
	}
	if indicators.SeriesCrossedBelow(s.fast.Values(), s.slow.Values()) {
		return domain.SellSignal(fmt.Sprintf("%s crossed below %s", s.fast.Name(), s.slow.Name())), nil
	}
	atr, ok := s.atr.Values().Last()
	if !ok {
		return domain.Signal{}, s.notReady(s.atr.Name())
	}

	price := lastClose(candles)
	trail := price - atr*s.config.ATRMultiplier
	if s.config.BreakEvenActivation > 0 && pos.EntryPrice > 0 &&
		(price-pos.EntryPrice)/pos.EntryPrice >= s.config.BreakEvenActivation {
		trail = max(trail, pos.EntryPrice)
	}
	if cur, ok := pos.HardStop.Get(); trail <= 0 || (ok && trail <= cur) {
		return domain.NoSignal("holding"), nil
	}
	s.debug(ctx, "Trailing stop proposed", map[string]interface{}{
		"price": price,
		"trail": trail,
		"atr":   atr,
	})
	return domain.NoSignal("trailing stop raised").WithStop(trail), nil
}
