package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"cryptoSignalBot/internal/app"
	"cryptoSignalBot/internal/risk"
	"cryptoSignalBot/internal/strategy/strategies"
	"cryptoSignalBot/internal/trade"
)

const (
	defaultRingSize     = 3
	defaultPositionSize = 1.0
)

// AgentSpec describes one agent in the agents file. Fields left out fall back
// to the file's defaults block. ExitOnDecline is on unless set to false.
type AgentSpec struct {
	ID                  string            `mapstructure:"id"`
	Strategy            string            `mapstructure:"strategy"`
	Product             string            `mapstructure:"product"`
	Granularity         time.Duration     `mapstructure:"granularity"`
	Interval            time.Duration     `mapstructure:"interval"`
	HistorySize         int               `mapstructure:"history_size"`
	InitialFunds        float64           `mapstructure:"initial_funds"`
	LiquidateOnShutdown bool              `mapstructure:"liquidate_on_shutdown"`
	RingSize            int               `mapstructure:"ring_size"`
	StopRatio           float64           `mapstructure:"stop_ratio"`
	TargetRatio         float64           `mapstructure:"target_ratio"`
	MaxOrderAttempts    int               `mapstructure:"max_order_attempts"`
	ExitOnDecline       bool              `mapstructure:"exit_on_decline"`
	StopTradingRatio    float64           `mapstructure:"stop_trading_ratio"`
	PositionSizePercent float64           `mapstructure:"position_size_percent"`
	MaxPositionSize     float64           `mapstructure:"max_position_size"`
	Params              strategies.Params `mapstructure:"params"`
}

// LoadAgents reads the agent roster from path (YAML, JSON or TOML by
// extension). Each agent is the defaults block with the agent's own keys
// merged over it, params included.
func LoadAgents(path string) ([]AgentSpec, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading agents file %s: %w", path, err)
	}

	defaults, err := asMap(v.Get("defaults"), "defaults")
	if err != nil {
		return nil, err
	}
	rawAgents, ok := v.Get("agents").([]interface{})
	if !ok || len(rawAgents) == 0 {
		return nil, fmt.Errorf("agents file %s: no agents defined", path)
	}

	specs := make([]AgentSpec, 0, len(rawAgents))
	var errs []string
	seen := make(map[string]bool, len(rawAgents))
	for i, raw := range rawAgents {
		agent, err := asMap(raw, fmt.Sprintf("agents[%d]", i))
		if err != nil {
			return nil, err
		}

		merged := viper.New()
		merged.SetDefault("exit_on_decline", true)
		if err := merged.MergeConfigMap(defaults); err != nil {
			return nil, fmt.Errorf("agents[%d]: merging defaults: %w", i, err)
		}
		if err := merged.MergeConfigMap(agent); err != nil {
			return nil, fmt.Errorf("agents[%d]: %w", i, err)
		}

		var spec AgentSpec
		if err := merged.Unmarshal(&spec); err != nil {
			return nil, fmt.Errorf("agents[%d]: decoding: %w", i, err)
		}
		spec.applyDefaults()

		if problems := spec.validate(); len(problems) > 0 {
			errs = append(errs, fmt.Sprintf("agents[%d] %s: %s", i, spec.ID, strings.Join(problems, ", ")))
			continue
		}
		if seen[spec.ID] {
			errs = append(errs, fmt.Sprintf("agents[%d]: duplicate id %q", i, spec.ID))
			continue
		}
		seen[spec.ID] = true
		specs = append(specs, spec)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("agents validation failed: %s", strings.Join(errs, "; "))
	}
	return specs, nil
}

func asMap(raw interface{}, name string) (map[string]interface{}, error) {
	switch m := raw.(type) {
	case nil:
		return map[string]interface{}{}, nil
	case map[string]interface{}:
		return m, nil
	default:
		return nil, fmt.Errorf("agents file: %s must be a mapping, got %T", name, raw)
	}
}

func (s *AgentSpec) applyDefaults() {
	if s.ID == "" && s.Strategy != "" && s.Product != "" {
		s.ID = s.Strategy + "-" + strings.ToLower(s.Product)
	}
	s.Product = strings.ToUpper(s.Product)
	if s.Interval == 0 {
		s.Interval = s.Granularity
	}
	if s.RingSize == 0 {
		s.RingSize = defaultRingSize
	}
	if s.PositionSizePercent == 0 {
		s.PositionSizePercent = defaultPositionSize
	}
	if s.Params == nil {
		s.Params = strategies.Params{}
	}
}

func (s AgentSpec) validate() []string {
	var problems []string
	if s.Strategy == "" {
		problems = append(problems, "strategy must be set")
	}
	if s.Product == "" {
		problems = append(problems, "product must be set")
	}
	if s.Granularity <= 0 {
		problems = append(problems, "granularity must be positive")
	}
	if s.InitialFunds <= 0 {
		problems = append(problems, "initial_funds must be positive")
	}
	if s.StopTradingRatio < 0 || s.StopTradingRatio >= 1 {
		problems = append(problems, "stop_trading_ratio must be in [0, 1)")
	}
	if s.PositionSizePercent <= 0 || s.PositionSizePercent > 1 {
		problems = append(problems, "position_size_percent must be in (0, 1]")
	}
	return problems
}

// AgentConfig converts the roster entry into the agent's runtime configuration.
func (s AgentSpec) AgentConfig(feeRate float64) app.AgentConfig {
	return app.AgentConfig{
		ID:                  s.ID,
		Product:             s.Product,
		Granularity:         s.Granularity,
		Interval:            s.Interval,
		HistorySize:         s.HistorySize,
		InitialFunds:        s.InitialFunds,
		FeeRate:             feeRate,
		LiquidateOnShutdown: s.LiquidateOnShutdown,
		Trade: trade.Config{
			RingSize:         s.RingSize,
			StopRatio:        s.StopRatio,
			TargetRatio:      s.TargetRatio,
			MaxOrderAttempts: s.MaxOrderAttempts,
			ExitOnDecline:    s.ExitOnDecline,
		},
		Risk: risk.Config{
			StopTradingRatio:    s.StopTradingRatio,
			PositionSizePercent: s.PositionSizePercent,
			MaxPositionSize:     s.MaxPositionSize,
		},
	}
}
