package optimization

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/strategy/analytics"
	"cryptoSignalBot/internal/strategy/backtesting"
	"cryptoSignalBot/internal/strategy/strategies"
)

// ParameterRange defines a range for a parameter to optimize
type ParameterRange struct {
	Name  string
	Min   float64
	Max   float64
	Step  float64
	IsInt bool
}

// ParseParameterRange parses "name=min:max:step", with an optional ":int"
// suffix for integer parameters.
func ParseParameterRange(s string) (ParameterRange, error) {
	name, spec, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return ParameterRange{}, fmt.Errorf("%w: range %q, want name=min:max:step", ports.ErrInvalidRequest, s)
	}
	parts := strings.Split(spec, ":")
	r := ParameterRange{Name: strings.TrimSpace(name)}
	if len(parts) == 4 && parts[3] == "int" {
		r.IsInt = true
		parts = parts[:3]
	}
	if len(parts) != 3 {
		return ParameterRange{}, fmt.Errorf("%w: range %q, want name=min:max:step", ports.ErrInvalidRequest, s)
	}
	bounds := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return ParameterRange{}, fmt.Errorf("%w: range %q: %w", ports.ErrInvalidRequest, s, err)
		}
		bounds[i] = v
	}
	r.Min, r.Max, r.Step = bounds[0], bounds[1], bounds[2]
	if r.Max < r.Min || r.Step < 0 {
		return ParameterRange{}, fmt.Errorf("%w: range %q is empty", ports.ErrInvalidRequest, s)
	}
	return r, nil
}

// values expands the range; a zero step yields Min only.
func (r ParameterRange) values() []float64 {
	if r.Step <= 0 || r.Max < r.Min {
		return []float64{r.round(r.Min)}
	}
	n := int(math.Floor((r.Max-r.Min)/r.Step+1e-9)) + 1
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		v := r.round(r.Min + float64(i)*r.Step)
		if len(out) > 0 && out[len(out)-1] == v {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (r ParameterRange) round(v float64) float64 {
	if r.IsInt {
		return math.Round(v)
	}
	return v
}

// OptimizationResult holds the results of a parameter optimization
type OptimizationResult struct {
	Parameters strategies.Params
	Metrics    *analytics.PerformanceMetrics
	Stopped    bool
	Score      float64
}

// OptimizerConfig holds configuration for the optimizer
type OptimizerConfig struct {
	Strategy        string // Registry code
	Registry        *strategies.Registry
	ParameterRanges []ParameterRange
	BaseParams      strategies.Params // Fixed parameters merged under every combination
	Backtest        backtesting.BacktestConfig
	ScoreFunction   func(*analytics.PerformanceMetrics) float64
	Concurrency     int // Parallel backtests; 0 means GOMAXPROCS
}

// Optimizer runs a grid search of backtests over strategy parameters.
type Optimizer struct {
	config OptimizerConfig
	logger ports.Logger
}

// NewOptimizer creates a new optimizer instance
func NewOptimizer(config OptimizerConfig, logger ports.Logger) (*Optimizer, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: optimizer needs a logger", ports.ErrConfigurationError)
	}
	if config.Registry == nil {
		config.Registry = strategies.DefaultRegistry()
	}
	if config.Strategy == "" {
		return nil, fmt.Errorf("%w: optimizer needs a strategy code", ports.ErrConfigurationError)
	}
	for _, r := range config.ParameterRanges {
		if r.Name == "" {
			return nil, fmt.Errorf("%w: parameter range without a name", ports.ErrConfigurationError)
		}
	}
	if config.ScoreFunction == nil {
		config.ScoreFunction = DefaultScoreFunction
	}
	if config.Concurrency <= 0 {
		config.Concurrency = runtime.GOMAXPROCS(0)
	}
	return &Optimizer{config: config, logger: logger}, nil
}

// Combinations returns every parameter set of the grid, merged over BaseParams.
func (o *Optimizer) Combinations() []strategies.Params {
	axes := make([][]float64, len(o.config.ParameterRanges))
	total := 1
	for i, r := range o.config.ParameterRanges {
		axes[i] = r.values()
		total *= len(axes[i])
	}

	combos := make([]strategies.Params, 0, total)
	for n := 0; n < total; n++ {
		params := maps.Clone(o.config.BaseParams)
		if params == nil {
			params = make(strategies.Params, len(axes))
		}
		// Mixed-radix decode of n, last range varying fastest.
		rest := n
		for i := len(axes) - 1; i >= 0; i-- {
			params[o.config.ParameterRanges[i].Name] = axes[i][rest%len(axes[i])]
			rest /= len(axes[i])
		}
		combos = append(combos, params)
	}
	return combos
}

// Optimize backtests every combination and returns the results ordered by
// descending score. Combinations the strategy rejects are skipped.
func (o *Optimizer) Optimize(ctx context.Context, candles []domain.Candle) ([]OptimizationResult, error) {
	combos := o.Combinations()
	o.logger.Info(ctx, "Starting optimization", map[string]interface{}{
		"strategy":     o.config.Strategy,
		"combinations": len(combos),
		"concurrency":  o.config.Concurrency,
	})

	slots := make([]*OptimizationResult, len(combos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Concurrency)

	for i, params := range combos {
		g.Go(func() error {
			strat, err := o.config.Registry.Build(o.config.Strategy, params, o.logger)
			if err != nil {
				if errors.Is(err, strategies.ErrInvalidParams) {
					o.logger.Debug(gctx, "Skipping invalid parameter set", map[string]interface{}{
						"params": params,
						"error":  err.Error(),
					})
					return nil
				}
				return err
			}

			result, err := backtesting.Backtest(gctx, strat, candles, o.config.Backtest, o.logger)
			if err != nil {
				if errors.Is(err, ports.ErrNoCandles) {
					o.logger.Debug(gctx, "Skipping parameter set, not enough candles", map[string]interface{}{"params": params})
					return nil
				}
				return fmt.Errorf("backtest with %v: %w", params, err)
			}
			slots[i] = &OptimizationResult{
				Parameters: params,
				Metrics:    result.Metrics,
				Stopped:    result.Stopped,
				Score:      o.config.ScoreFunction(result.Metrics),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("optimizing %s: %w", o.config.Strategy, err)
	}

	results := make([]OptimizationResult, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	slices.SortStableFunc(results, func(a, b OptimizationResult) int {
		return cmp.Compare(b.Score, a.Score)
	})

	o.logger.Info(ctx, "Optimization finished", map[string]interface{}{
		"strategy":  o.config.Strategy,
		"evaluated": len(results),
	})
	return results, nil
}

// DefaultScoreFunction provides a default scoring function for optimization
func DefaultScoreFunction(metrics *analytics.PerformanceMetrics) float64 {
	if metrics.TotalTrades == 0 {
		return 0
	}
	score := 0.0

	// Weight different metrics
	score += metrics.WinRate * 0.3
	score += math.Min(metrics.ProfitFactor, 5) * 0.2
	score += (1 - metrics.MaxDrawdown) * 0.2
	score += metrics.ReturnOnInvestment * 0.2
	score += math.Min(metrics.RiskRewardRatio, 5) * 0.1

	return score
}
