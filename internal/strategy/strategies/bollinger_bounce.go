package strategies

import (
	"context"
	"fmt"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/strategy/indicators"
)

// CodeBollingerBounce is the registry code of the Bollinger bounce strategy.
const CodeBollingerBounce = "bollinger_bounce"

// BollingerBounce buys when the close re-enters the bands from below the lower
// band, targeting the middle band with a stop under the lower band. It sells
// when %B reaches the upper band.
type BollingerBounce struct {
	*BaseStrategy
	bb         *indicators.Bollinger
	stopBuffer float64
	exitB      float64
}

// NewBollingerBounce is the registry factory for CodeBollingerBounce.
func NewBollingerBounce(params Params, logger ports.Logger) (ports.Strategy, error) {
	retention, err := params.Retention()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", CodeBollingerBounce, err)
	}
	bb, err := indicators.NewBollinger(indicators.BollingerConfig{
		IndicatorConfig:  indicators.IndicatorConfig{Period: params.Int("period", 20), Retention: retention},
		StdDevMultiplier: params.Float("multiplier", 2),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", CodeBollingerBounce, ErrInvalidParams, err)
	}
	stopBuffer := params.Float("stop_buffer", 0.005)
	if stopBuffer < 0 || stopBuffer >= 1 {
		return nil, fmt.Errorf("%s: %w: stop buffer %.4f", CodeBollingerBounce, ErrInvalidParams, stopBuffer)
	}
	base, err := NewBaseStrategy(CodeBollingerBounce, logger, bb)
	if err != nil {
		return nil, err
	}
	return &BollingerBounce{
		BaseStrategy: base,
		bb:           bb,
		stopBuffer:   stopBuffer,
		exitB:        params.Float("exit_percent_b", 1),
	}, nil
}

// EvaluateBuy implements ports.Strategy.
func (s *BollingerBounce) EvaluateBuy(ctx context.Context, candles []domain.Candle) (domain.Signal, error) {
	if err := s.checkHistory(candles); err != nil {
		return domain.Signal{}, err
	}
	prev, cur, ok := lastPair(s.bb.Values())
	if !ok {
		return domain.Signal{}, s.notReady(s.bb.Name())
	}
	prevClose := candles[len(candles)-2].Close
	price := lastClose(candles)
	if !indicators.CrossedAbove(prevClose, prev.Lower, price, cur.Lower) {
		return domain.NoSignal(fmt.Sprintf("%%B %.2f, no lower band re-entry", cur.PercentB)), nil
	}
	stop := cur.Lower * (1 - s.stopBuffer)
	s.debug(ctx, "Bollinger bounce entry", map[string]interface{}{
		"price":  price,
		"lower":  cur.Lower,
		"middle": cur.Middle,
		"stop":   stop,
	})
	sig := domain.BuySignal(fmt.Sprintf("close %.4f re-entered above lower band %.4f", price, cur.Lower)).WithStop(stop)
	if cur.Middle > price {
		sig = sig.WithTarget(cur.Middle)
	}
	return sig, nil
}

// EvaluateSell implements ports.Strategy.
func (s *BollingerBounce) EvaluateSell(ctx context.Context, candles []domain.Candle, _ domain.PositionView) (domain.Signal, error) {
	if err := s.checkHistory(candles); err != nil {
		return domain.Signal{}, err
	}
	cur, ok := s.bb.Values().Last()
	if !ok {
		return domain.Signal{}, s.notReady(s.bb.Name())
	}
	if cur.PercentB >= s.exitB {
		return domain.SellSignal(fmt.Sprintf("%%B %.2f reached the upper band", cur.PercentB)), nil
	}
	return domain.NoSignal(fmt.Sprintf("%%B %.2f", cur.PercentB)), nil
}
