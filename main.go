package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"cryptoSignalBot/config"
	"cryptoSignalBot/internal/adapters/binanceclient"
	"cryptoSignalBot/internal/adapters/logger"
	"cryptoSignalBot/internal/adapters/paper"
	"cryptoSignalBot/internal/adapters/sqlite"
	"cryptoSignalBot/internal/app"
	"cryptoSignalBot/internal/metrics"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/strategy/strategies"
)

func main() {
	ctx := context.Background()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	specs, err := config.LoadAgents(cfg.AgentsFile)
	if err != nil {
		log.Fatalf("FATAL: Failed to load agents: %v", err)
	}

	// 2. Initialize Logger
	appLogger, err := logger.NewZapLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "mode": cfg.Mode})

	// 3. Metrics
	appMetrics := metrics.New(prometheus.DefaultRegisterer)
	if cfg.MetricsAddr != "" {
		server := metrics.NewServer(cfg.MetricsAddr, prometheus.DefaultGatherer, appLogger)
		server.Start()
		defer func() {
			sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := server.Stop(sctx); err != nil {
				appLogger.Error(ctx, err, "Error stopping metrics server")
			}
		}()
	}

	// 4. Initialize Journal (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize trade journal")
		log.Fatalf("FATAL: Failed to initialize trade journal: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing trade journal")
		}
	}()
	sink := app.MultiSink{app.NewLogSink(appLogger), repo}

	// 5. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:            cfg.APIKey,
		SecretKey:         cfg.SecretKey,
		UseTestnet:        cfg.IsTestnet,
		Logger:            appLogger,
		CandleLimit:       cfg.CandleLimit,
		FeeRate:           cfg.FeeRate,
		PricePrecision:    cfg.PricePrecision,
		QuantityPrecision: cfg.QuantityPrecision,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	if err := binanceClient.Ping(ctx); err != nil {
		appLogger.Warn(ctx, "Binance ping failed, agents will retry each cycle", map[string]interface{}{"error": err.Error()})
	}

	// 6. Shared candle feed
	feed, err := app.NewCandleFeed(app.FeedConfig{
		Source:     binanceClient,
		Logger:     appLogger,
		Metrics:    appMetrics,
		MinRefresh: cfg.MinRefresh,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize candle feed: %v", err)
	}

	// 7. Order execution: the exchange in live mode, a simulation otherwise
	var executor ports.OrderExecutor = binanceClient
	if !cfg.IsLive() {
		executor, err = paper.New(paper.Config{
			Prices:      feed,
			Logger:      appLogger,
			SlippageBps: cfg.SlippageBps,
			FeeRate:     cfg.FeeRate,
		})
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize paper executor: %v", err)
		}
	}

	// 8. Agents
	registry := strategies.DefaultRegistry()
	runners := make([]app.Runner, 0, len(specs))
	for _, spec := range specs {
		agentLogger := appLogger.With(map[string]interface{}{"agent": spec.ID})
		strat, err := registry.Build(spec.Strategy, spec.Params, agentLogger)
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to build strategy", map[string]interface{}{"agent": spec.ID})
			log.Fatalf("FATAL: agent %s: %v", spec.ID, err)
		}
		agent, err := app.NewAgent(spec.AgentConfig(cfg.FeeRate), app.AgentDeps{
			Strategy: strat,
			Feed:     feed,
			Executor: executor,
			Sink:     sink,
			Logger:   agentLogger,
			Metrics:  appMetrics,
		})
		if err != nil {
			log.Fatalf("FATAL: agent %s: %v", spec.ID, err)
		}
		runners = append(runners, agent)
		appLogger.Info(ctx, "Agent configured", map[string]interface{}{
			"agent":       spec.ID,
			"strategy":    spec.Strategy,
			"product":     spec.Product,
			"granularity": spec.Granularity.String(),
		})
	}

	// 9. Initialize and start the service
	tradingService, err := app.NewTradingService(appLogger, runners...)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize trading service")
		log.Fatalf("FATAL: Failed to initialize trading service: %v", err)
	}
	if err := tradingService.Start(ctx); err != nil {
		appLogger.Error(ctx, err, "Trading service exited with error")
		log.Fatalf("FATAL: Trading service exited with error: %v", err)
	}

	appLogger.Info(ctx, "Application finished gracefully.")
}
