package strategies

import (
	"context"
	"fmt"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/strategy/indicators"
)

// CodeRSIReversion is the registry code of the RSI mean reversion strategy.
const CodeRSIReversion = "rsi_reversion"

// RSIReversion buys when RSI climbs back out of the oversold zone after a
// confirmed fall into it, and sells once RSI reaches the overbought zone.
type RSIReversion struct {
	*BaseStrategy
	rsi        *indicators.RSI
	confirm    int
	oversold   float64
	overbought float64
}

// NewRSIReversion is the registry factory for CodeRSIReversion.
func NewRSIReversion(params Params, logger ports.Logger) (ports.Strategy, error) {
	retention, err := params.Retention()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", CodeRSIReversion, err)
	}
	cfg := indicators.RSIConfig{
		IndicatorConfig: indicators.IndicatorConfig{Period: params.Int("period", 14), Retention: retention},
		Overbought:      params.Float("overbought", 70),
		Oversold:        params.Float("oversold", 30),
	}
	if cfg.Overbought == 0 && cfg.Oversold == 0 {
		cfg.Overbought, cfg.Oversold = 70, 30
	}
	rsi, err := indicators.NewRSI(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", CodeRSIReversion, ErrInvalidParams, err)
	}
	confirm := params.Int("confirm", 2)
	if confirm < 1 {
		return nil, fmt.Errorf("%s: %w: confirm %d", CodeRSIReversion, ErrInvalidParams, confirm)
	}
	base, err := NewBaseStrategy(CodeRSIReversion, logger, rsi)
	if err != nil {
		return nil, err
	}
	base.warmup += confirm
	return &RSIReversion{
		BaseStrategy: base,
		rsi:          rsi,
		confirm:      confirm,
		oversold:     cfg.Oversold,
		overbought:   cfg.Overbought,
	}, nil
}

// EvaluateBuy implements ports.Strategy.
func (s *RSIReversion) EvaluateBuy(ctx context.Context, candles []domain.Candle) (domain.Signal, error) {
	if err := s.checkHistory(candles); err != nil {
		return domain.Signal{}, err
	}
	values := s.rsi.Values().Tail(s.confirm + 2)
	if values == nil {
		return domain.Signal{}, s.notReady(s.rsi.Name())
	}
	prev, cur := values[len(values)-2], values[len(values)-1]
	if !indicators.CrossedAbove(prev, s.oversold, cur, s.oversold) {
		return domain.NoSignal(fmt.Sprintf("RSI %.2f not leaving oversold", cur)), nil
	}
	// The fall into the zone must itself be confirmed.
	if !indicators.IsFalling(values[:len(values)-1], s.confirm+1) {
		return domain.NoSignal(fmt.Sprintf("RSI %.2f left oversold without a confirmed fall", cur)), nil
	}
	s.debug(ctx, "RSI reversion entry", map[string]interface{}{"rsi": cur, "prevRsi": prev})
	return domain.BuySignal(fmt.Sprintf("%s rose out of oversold: %.2f -> %.2f", s.rsi.Name(), prev, cur)), nil
}

// EvaluateSell implements ports.Strategy.
func (s *RSIReversion) EvaluateSell(ctx context.Context, candles []domain.Candle, _ domain.PositionView) (domain.Signal, error) {
	if err := s.checkHistory(candles); err != nil {
		return domain.Signal{}, err
	}
	cur, ok := s.rsi.Values().Last()
	if !ok {
		return domain.Signal{}, s.notReady(s.rsi.Name())
	}
	if s.rsi.IsOverbought(cur) {
		return domain.SellSignal(fmt.Sprintf("%s overbought at %.2f", s.rsi.Name(), cur)), nil
	}
	return domain.NoSignal(fmt.Sprintf("RSI %.2f below overbought", cur)), nil
}
