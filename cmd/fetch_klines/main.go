package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cryptoSignalBot/config"
	"cryptoSignalBot/internal/adapters/binanceclient"
	"cryptoSignalBot/internal/adapters/logger"
	"cryptoSignalBot/internal/utils"
)

func main() {
	product := flag.String("product", "ETHUSDT", "product to download")
	granularity := flag.Duration("granularity", time.Minute, "candle interval")
	days := flag.Int("days", 90, "days of history ending now")
	out := flag.String("out", "", "output CSV (default data/<product>_<interval>_<from>_to_<to>.csv)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger, err := logger.NewZapLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	interval, err := binanceclient.IntervalFor(*granularity)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	// 3. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	symbol := strings.ToUpper(*product)
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -*days)

	appLogger.Info(ctx, "Fetching candles", map[string]interface{}{
		"product":  symbol,
		"interval": interval,
		"from":     start.Format(time.RFC3339),
		"to":       end.Format(time.RFC3339),
	})
	candles, err := binanceClient.GetKlinesRange(ctx, symbol, *granularity, start, end)
	if err != nil {
		appLogger.Error(ctx, err, "Error fetching candles")
		log.Fatalf("Error fetching candles: %v", err)
	}
	appLogger.Info(ctx, "Fetched candles", map[string]interface{}{"count": len(candles)})

	filename := *out
	if filename == "" {
		filename = fmt.Sprintf("data/%s_%s_%s_to_%s.csv", symbol, interval, start.Format("20060102"), end.Format("20060102"))
	}
	if err := utils.WriteCandlesToCSV(candles, symbol, filename); err != nil {
		appLogger.Error(ctx, err, "Error writing CSV")
		log.Fatalf("Error writing CSV: %v", err)
	}
	appLogger.Info(ctx, "Saved candles", map[string]interface{}{"filename": filename})
}
