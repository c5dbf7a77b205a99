package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"

	"cryptoSignalBot/config"
	"cryptoSignalBot/internal/adapters/logger"
	"cryptoSignalBot/internal/adapters/sqlite"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/strategy/backtesting"
	"cryptoSignalBot/internal/strategy/optimization"
	"cryptoSignalBot/internal/strategy/strategies"
	"cryptoSignalBot/internal/utils"
)

// rangeFlags collects repeated -range flags.
type rangeFlags []optimization.ParameterRange

func (r *rangeFlags) String() string { return fmt.Sprint(*r) }

func (r *rangeFlags) Set(s string) error {
	pr, err := optimization.ParseParameterRange(s)
	if err != nil {
		return err
	}
	*r = append(*r, pr)
	return nil
}

func main() {
	var ranges rangeFlags
	dataFile := flag.String("data", "", "candle CSV to replay (see cmd/fetch_klines)")
	agentsFile := flag.String("agents", "", "agents file (default AGENTS_FILE)")
	agentID := flag.String("agent", "", "only run this agent")
	journal := flag.String("journal", "", "SQLite file to journal backtest events into")
	liquidate := flag.Bool("liquidate", true, "close positions still open at the end of the data")
	top := flag.Int("top", 10, "optimization results to print")
	flag.Var(&ranges, "range", "optimize a parameter, name=min:max:step[:int] (repeatable, needs -agent)")
	flag.Parse()

	if *dataFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	if *agentsFile == "" {
		*agentsFile = cfg.AgentsFile
	}
	specs, err := config.LoadAgents(*agentsFile)
	if err != nil {
		log.Fatalf("FATAL: Failed to load agents: %v", err)
	}

	// 2. Initialize Logger
	appLogger, err := logger.NewZapLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	// 3. Load candles
	candles, err := utils.ReadCandlesFromCSV(*dataFile)
	if err != nil {
		log.Fatalf("FATAL: Failed to read candles from %s: %v", *dataFile, err)
	}
	appLogger.Info(ctx, "Loaded candles", map[string]interface{}{"file": *dataFile, "count": len(candles)})

	selected := specs[:0]
	for _, spec := range specs {
		if *agentID == "" || spec.ID == *agentID {
			selected = append(selected, spec)
		}
	}
	if len(selected) == 0 {
		log.Fatalf("FATAL: no agent %q in %s", *agentID, *agentsFile)
	}

	// 4. Optional journal
	var sink ports.EventSink
	if *journal != "" {
		repo, err := sqlite.NewRepository(sqlite.Config{DBPath: *journal, Logger: appLogger})
		if err != nil {
			log.Fatalf("FATAL: Failed to open journal: %v", err)
		}
		defer repo.Close()
		sink = repo
	}

	registry := strategies.DefaultRegistry()

	// 5. Optimization mode
	if len(ranges) > 0 {
		if len(selected) != 1 {
			log.Fatalf("FATAL: -range needs -agent to pick one agent")
		}
		spec := selected[0]
		optimizer, err := optimization.NewOptimizer(optimization.OptimizerConfig{
			Strategy:        spec.Strategy,
			Registry:        registry,
			ParameterRanges: ranges,
			BaseParams:      spec.Params,
			Backtest: backtesting.BacktestConfig{
				Agent:       spec.AgentConfig(cfg.FeeRate),
				SlippageBps: cfg.SlippageBps,
				Liquidate:   *liquidate,
			},
		}, appLogger)
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		results, err := optimizer.Optimize(ctx, candles)
		if err != nil {
			appLogger.Error(ctx, err, "Optimization failed")
			log.Fatalf("FATAL: optimization failed: %v", err)
		}
		printOptimization(results, *top)
		return
	}

	// 6. Backtest every selected agent
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Agent\tStrategy\tCandles\tTrades\tWinRate\tPnL\tFees\tMaxDD\tSharpe\tFunds\tStopped\t")
	for _, spec := range selected {
		strat, err := registry.Build(spec.Strategy, spec.Params, appLogger.With(map[string]interface{}{"agent": spec.ID}))
		if err != nil {
			appLogger.Error(ctx, err, "Failed to build strategy", map[string]interface{}{"agent": spec.ID})
			continue
		}
		result, err := backtesting.Backtest(ctx, strat, candles, backtesting.BacktestConfig{
			Agent:       spec.AgentConfig(cfg.FeeRate),
			SlippageBps: cfg.SlippageBps,
			Sink:        sink,
			Liquidate:   *liquidate,
		}, appLogger)
		if err != nil {
			appLogger.Error(ctx, err, "Backtest error", map[string]interface{}{"agent": spec.ID})
			continue
		}
		m := result.Metrics
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%t\t\n",
			result.AgentID,
			result.Strategy,
			result.Candles,
			m.TotalTrades,
			m.WinRate*100,
			m.TotalProfit,
			m.TotalFees,
			m.MaxDrawdown*100,
			m.SharpeRatio,
			result.Wallet.Funds,
			result.Stopped,
		)
	}
	w.Flush()
}

func printOptimization(results []optimization.OptimizationResult, top int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Rank\tScore\tTrades\tWinRate\tPnL\tMaxDD\tParams\t")
	for i, r := range results {
		if i >= top {
			break
		}
		fmt.Fprintf(w, "%d\t%.4f\t%d\t%.2f\t%.2f\t%.2f\t%s\t\n",
			i+1,
			r.Score,
			r.Metrics.TotalTrades,
			r.Metrics.WinRate*100,
			r.Metrics.TotalProfit,
			r.Metrics.MaxDrawdown*100,
			formatParams(r.Parameters),
		)
	}
	w.Flush()
}

func formatParams(p strategies.Params) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, p[k])
	}
	return strings.Join(parts, " ")
}
