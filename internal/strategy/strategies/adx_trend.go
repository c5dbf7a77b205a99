package strategies

import (
	"context"
	"fmt"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/strategy/indicators"
)

// CodeADXTrend is the registry code of the ADX trend strategy.
const CodeADXTrend = "adx_trend"

// ADXTrend buys a strong uptrend (ADX above its threshold, +DI above -DI)
// confirmed by rising on-balance volume. It sells when -DI crosses above +DI
// or the trend strength fades below the threshold.
type ADXTrend struct {
	*BaseStrategy
	adx       *indicators.ADX
	obv       *indicators.OBV
	threshold float64
	lookback  int
}

// NewADXTrend is the registry factory for CodeADXTrend.
func NewADXTrend(params Params, logger ports.Logger) (ports.Strategy, error) {
	retention, err := params.Retention()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", CodeADXTrend, err)
	}
	adx, err := indicators.NewADX(indicators.IndicatorConfig{Period: params.Int("period", 14), Retention: retention})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", CodeADXTrend, ErrInvalidParams, err)
	}
	threshold := params.Float("threshold", 25)
	if threshold <= 0 || threshold >= 100 {
		return nil, fmt.Errorf("%s: %w: threshold %.2f", CodeADXTrend, ErrInvalidParams, threshold)
	}
	lookback := params.Int("obv_lookback", 3)
	if lookback < 2 {
		return nil, fmt.Errorf("%s: %w: obv lookback %d", CodeADXTrend, ErrInvalidParams, lookback)
	}
	obv := indicators.NewOBV(indicators.IndicatorConfig{Retention: retention})
	base, err := NewBaseStrategy(CodeADXTrend, logger, adx, obv)
	if err != nil {
		return nil, err
	}
	base.warmup = max(base.warmup, lookback)
	return &ADXTrend{BaseStrategy: base, adx: adx, obv: obv, threshold: threshold, lookback: lookback}, nil
}

// EvaluateBuy implements ports.Strategy.
func (s *ADXTrend) EvaluateBuy(ctx context.Context, candles []domain.Candle) (domain.Signal, error) {
	if err := s.checkHistory(candles); err != nil {
		return domain.Signal{}, err
	}
	cur, ok := s.adx.Values().Last()
	if !ok {
		return domain.Signal{}, s.notReady(s.adx.Name())
	}
	obv := s.obv.Values().Tail(s.lookback)
	if obv == nil {
		return domain.Signal{}, s.notReady(s.obv.Name())
	}
	switch {
	case cur.ADX < s.threshold:
		return domain.NoSignal(fmt.Sprintf("ADX %.2f below %.2f", cur.ADX, s.threshold)), nil
	case cur.PlusDI <= cur.MinusDI:
		return domain.NoSignal(fmt.Sprintf("+DI %.2f not above -DI %.2f", cur.PlusDI, cur.MinusDI)), nil
	case !indicators.IsRising(obv, s.lookback):
		return domain.NoSignal("OBV not rising"), nil
	}
	s.debug(ctx, "ADX trend entry", map[string]interface{}{
		"adx":     cur.ADX,
		"plusDI":  cur.PlusDI,
		"minusDI": cur.MinusDI,
	})
	return domain.BuySignal(fmt.Sprintf("ADX %.2f uptrend, +DI %.2f > -DI %.2f, OBV rising", cur.ADX, cur.PlusDI, cur.MinusDI)), nil
}

// EvaluateSell implements ports.Strategy.
func (s *ADXTrend) EvaluateSell(ctx context.Context, candles []domain.Candle, _ domain.PositionView) (domain.Signal, error) {
	if err := s.checkHistory(candles); err != nil {
		return domain.Signal{}, err
	}
	prev, cur, ok := lastPair(s.adx.Values())
	if !ok {
		return domain.Signal{}, s.notReady(s.adx.Name())
	}
	if indicators.CrossedAbove(prev.MinusDI, prev.PlusDI, cur.MinusDI, cur.PlusDI) {
		return domain.SellSignal(fmt.Sprintf("-DI %.2f crossed above +DI %.2f", cur.MinusDI, cur.PlusDI)), nil
	}
	if prev.ADX >= s.threshold && cur.ADX < s.threshold {
		return domain.SellSignal(fmt.Sprintf("trend faded, ADX %.2f", cur.ADX)), nil
	}
	return domain.NoSignal("trend intact"), nil
}
