package strategies

import (
	"context"
	"fmt"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/strategy/indicators"
)

// CodeMACDDivergence is the registry code of the MACD divergence strategy.
const CodeMACDDivergence = "macd_divergence"

// MACDDivergence buys on a bullish divergence between close and MACD histogram,
// or on a MACD/signal cross below zero. It sells on the bearish mirror of either.
type MACDDivergence struct {
	*BaseStrategy
	macd     *indicators.MACD
	lookback int
}

// NewMACDDivergence is the registry factory for CodeMACDDivergence.
func NewMACDDivergence(params Params, logger ports.Logger) (ports.Strategy, error) {
	retention, err := params.Retention()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", CodeMACDDivergence, err)
	}
	macd, err := indicators.NewMACD(indicators.MACDConfig{
		FastPeriod:   params.Int("fast_period", 12),
		SlowPeriod:   params.Int("slow_period", 26),
		SignalPeriod: params.Int("signal_period", 9),
		Retention:    retention,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", CodeMACDDivergence, ErrInvalidParams, err)
	}
	lookback := params.Int("lookback", 4)
	if lookback < 2 {
		return nil, fmt.Errorf("%s: %w: lookback %d", CodeMACDDivergence, ErrInvalidParams, lookback)
	}
	base, err := NewBaseStrategy(CodeMACDDivergence, logger, macd)
	if err != nil {
		return nil, err
	}
	base.warmup += lookback - 2
	return &MACDDivergence{BaseStrategy: base, macd: macd, lookback: lookback}, nil
}

func (s *MACDDivergence) window(candles []domain.Candle) (closes, hist []float64, prev, cur indicators.MACDValue, err error) {
	values := s.macd.Values().Tail(s.lookback)
	if values == nil {
		return nil, nil, prev, cur, s.notReady(s.macd.Name())
	}
	closes = make([]float64, s.lookback)
	for i, c := range candles[len(candles)-s.lookback:] {
		closes[i] = c.Close
	}
	hist = indicators.Map(values, func(v indicators.MACDValue) float64 { return v.Histogram })
	return closes, hist, values[len(values)-2], values[len(values)-1], nil
}

// EvaluateBuy implements ports.Strategy.
func (s *MACDDivergence) EvaluateBuy(ctx context.Context, candles []domain.Candle) (domain.Signal, error) {
	if err := s.checkHistory(candles); err != nil {
		return domain.Signal{}, err
	}
	closes, hist, prev, cur, err := s.window(candles)
	if err != nil {
		return domain.Signal{}, err
	}
	if indicators.BullishDivergence(closes, hist, s.lookback) {
		s.debug(ctx, "MACD bullish divergence", map[string]interface{}{"histogram": cur.Histogram})
		return domain.BuySignal(fmt.Sprintf("bullish divergence over %d candles, histogram %.4f", s.lookback, cur.Histogram)), nil
	}
	if cur.MACD < 0 && indicators.CrossedAbove(prev.MACD, prev.Signal, cur.MACD, cur.Signal) {
		return domain.BuySignal(fmt.Sprintf("MACD %.4f crossed above signal below zero", cur.MACD)), nil
	}
	return domain.NoSignal("no bullish MACD setup"), nil
}

// EvaluateSell implements ports.Strategy.
func (s *MACDDivergence) EvaluateSell(ctx context.Context, candles []domain.Candle, _ domain.PositionView) (domain.Signal, error) {
	if err := s.checkHistory(candles); err != nil {
		return domain.Signal{}, err
	}
	closes, hist, prev, cur, err := s.window(candles)
	if err != nil {
		return domain.Signal{}, err
	}
	if indicators.BearishDivergence(closes, hist, s.lookback) {
		return domain.SellSignal(fmt.Sprintf("bearish divergence over %d candles", s.lookback)), nil
	}
	if indicators.CrossedBelow(prev.MACD, prev.Signal, cur.MACD, cur.Signal) {
		return domain.SellSignal(fmt.Sprintf("MACD %.4f crossed below signal", cur.MACD)), nil
	}
	return domain.NoSignal("no bearish MACD setup"), nil
}
