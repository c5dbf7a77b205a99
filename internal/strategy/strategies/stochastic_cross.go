package strategies

import (
	"context"
	"fmt"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/strategy/indicators"
)

// CodeStochasticCross is the registry code of the stochastic crossover strategy.
const CodeStochasticCross = "stochastic_cross"

// StochasticCross buys when %K crosses above %D inside the oversold zone and
// sells when %K crosses below %D inside the overbought zone.
type StochasticCross struct {
	*BaseStrategy
	stoch *indicators.Stochastic
}

// NewStochasticCross is the registry factory for CodeStochasticCross.
func NewStochasticCross(params Params, logger ports.Logger) (ports.Strategy, error) {
	retention, err := params.Retention()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", CodeStochasticCross, err)
	}
	cfg := indicators.StochasticConfig{
		KPeriod:    params.Int("k_period", 14),
		DPeriod:    params.Int("d_period", 3),
		Overbought: params.Float("overbought", 80),
		Oversold:   params.Float("oversold", 20),
		Retention:  retention,
	}
	if cfg.Oversold >= cfg.Overbought {
		return nil, fmt.Errorf("%s: %w: oversold %.2f must be below overbought %.2f", CodeStochasticCross, ErrInvalidParams, cfg.Oversold, cfg.Overbought)
	}
	stoch, err := indicators.NewStochastic(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", CodeStochasticCross, ErrInvalidParams, err)
	}
	base, err := NewBaseStrategy(CodeStochasticCross, logger, stoch)
	if err != nil {
		return nil, err
	}
	return &StochasticCross{BaseStrategy: base, stoch: stoch}, nil
}

// EvaluateBuy implements ports.Strategy.
func (s *StochasticCross) EvaluateBuy(ctx context.Context, candles []domain.Candle) (domain.Signal, error) {
	if err := s.checkHistory(candles); err != nil {
		return domain.Signal{}, err
	}
	prev, cur, ok := lastPair(s.stoch.Values())
	if !ok {
		return domain.Signal{}, s.notReady(s.stoch.Name())
	}
	if s.stoch.IsOversold(prev.K) && indicators.CrossedAbove(prev.K, prev.D, cur.K, cur.D) {
		s.debug(ctx, "Stochastic entry", map[string]interface{}{"k": cur.K, "d": cur.D})
		return domain.BuySignal(fmt.Sprintf("%%K %.2f crossed above %%D %.2f from oversold", cur.K, cur.D)), nil
	}
	return domain.NoSignal(fmt.Sprintf("%%K %.2f %%D %.2f", cur.K, cur.D)), nil
}

// EvaluateSell implements ports.Strategy.
func (s *StochasticCross) EvaluateSell(ctx context.Context, candles []domain.Candle, _ domain.PositionView) (domain.Signal, error) {
	if err := s.checkHistory(candles); err != nil {
		return domain.Signal{}, err
	}
	prev, cur, ok := lastPair(s.stoch.Values())
	if !ok {
		return domain.Signal{}, s.notReady(s.stoch.Name())
	}
	if s.stoch.IsOverbought(prev.K) && indicators.CrossedBelow(prev.K, prev.D, cur.K, cur.D) {
		return domain.SellSignal(fmt.Sprintf("%%K %.2f crossed below %%D %.2f from overbought", cur.K, cur.D)), nil
	}
	return domain.NoSignal(fmt.Sprintf("%%K %.2f %%D %.2f", cur.K, cur.D)), nil
}
