package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"cryptoSignalBot/internal/adapters/logger"
)

// Execution modes.
const (
	ModePaper = "paper"
	ModeLive  = "live"
)

// Config holds the process-wide settings read from the environment.
// Per-agent settings live in the agents file, see LoadAgents.
type Config struct {
	// Binance API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Execution
	Mode        string  // paper or live
	FeeRate     float64 // Taker fee rate used for sizing and paper fills
	SlippageBps int64   // Paper fill slippage in basis points

	// Market data
	CandleLimit       int
	MinRefresh        time.Duration // Candle snapshots younger than this are shared without refetching
	PricePrecision    int
	QuantityPrecision int

	// Agents
	AgentsFile string

	// Database
	DBPath string

	// Logging
	LogLevel zapcore.Level

	// Metrics
	MetricsAddr string // "off" disables the metrics server
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string

	cfg.Mode = strings.ToLower(getEnv("MODE", ModePaper))
	if cfg.Mode != ModePaper && cfg.Mode != ModeLive {
		errs = append(errs, fmt.Sprintf("MODE must be %q or %q, got %q", ModePaper, ModeLive, cfg.Mode))
	}

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	// Candles are public; keys only matter when orders go to the exchange.
	if cfg.Mode == ModeLive {
		if cfg.APIKey == "" {
			errs = append(errs, "BINANCE_API_KEY must be set in live mode")
		}
		if cfg.SecretKey == "" {
			errs = append(errs, "BINANCE_API_SECRET must be set in live mode")
		}
	}

	cfg.FeeRate, err = getEnvAsFloatRequired("FEE_RATE", 0.0004)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid FEE_RATE: %v", err))
	} else if cfg.FeeRate < 0 || cfg.FeeRate >= 1 {
		errs = append(errs, "FEE_RATE must be in [0, 1)")
	}

	slippage, err := getEnvAsIntRequired("SLIPPAGE_BPS", 5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SLIPPAGE_BPS: %v", err))
	} else if slippage < 0 {
		errs = append(errs, "SLIPPAGE_BPS cannot be negative")
	}
	cfg.SlippageBps = int64(slippage)

	cfg.CandleLimit, err = getEnvAsIntRequired("CANDLE_LIMIT", 300)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid CANDLE_LIMIT: %v", err))
	} else if cfg.CandleLimit <= 0 || cfg.CandleLimit > 1500 {
		errs = append(errs, "CANDLE_LIMIT must be between 1 and 1500")
	}

	minRefreshSeconds := getEnvAsInt("MIN_REFRESH_SECONDS", 5)
	if minRefreshSeconds < 0 {
		errs = append(errs, "MIN_REFRESH_SECONDS cannot be negative")
	}
	cfg.MinRefresh = time.Duration(minRefreshSeconds) * time.Second

	cfg.PricePrecision = getEnvAsInt("PRICE_PRECISION", 2)
	cfg.QuantityPrecision = getEnvAsInt("QUANTITY_PRECISION", 3)
	if cfg.PricePrecision < 0 || cfg.QuantityPrecision < 0 {
		errs = append(errs, "PRICE_PRECISION and QUANTITY_PRECISION cannot be negative")
	}

	cfg.AgentsFile = getEnv("AGENTS_FILE", "./agents.yaml")

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/signal_bot.db")

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))

	cfg.MetricsAddr = getEnv("METRICS_ADDR", ":9090")
	if strings.EqualFold(cfg.MetricsAddr, "off") {
		cfg.MetricsAddr = ""
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// IsLive reports whether orders go to the exchange.
func (c *Config) IsLive() bool { return c.Mode == ModeLive }

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
