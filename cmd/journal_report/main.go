package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"cryptoSignalBot/config"
	"cryptoSignalBot/internal/adapters/logger"
	"cryptoSignalBot/internal/adapters/sqlite"
	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/strategy/analytics"
)

func main() {
	dbPath := flag.String("db", "", "journal database (default DB_PATH)")
	product := flag.String("product", "", "only report this product")
	limit := flag.Int("limit", 0, "most recent trades to include (0 = all)")
	funds := flag.Float64("funds", 1000, "starting balance assumed per strategy")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	if *dbPath == "" {
		*dbPath = cfg.DBPath
	}
	appLogger, err := logger.NewZapLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: *dbPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to open journal: %v", err)
	}
	defer repo.Close()

	trades, err := repo.FindClosedTrades(ctx, *product, *limit)
	if err != nil {
		log.Fatalf("Error reading trades: %v", err)
	}
	if len(trades) == 0 {
		log.Println("No closed trades in the journal yet.")
		return
	}

	groups := groupByStrategy(trades)
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	slices.Sort(names)

	// Create a tabwriter for formatted output
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Strategy\tTrades\tWinRate\tAvgWin\tAvgLoss\tTotalPnL\tFees\tMaxDD\tPF\tAvgHold\t")
	for _, name := range names {
		m := analytics.AnalyzePerformance(groups[name], *funds)
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t\n",
			name,
			m.TotalTrades,
			m.WinRate*100,
			m.AverageWin,
			m.AverageLoss,
			m.TotalProfit,
			m.TotalFees,
			m.MaxDrawdown*100,
			m.ProfitFactor,
			m.AverageTradeDuration.Round(time.Second),
		)
	}
	w.Flush()

	fmt.Println("\n## Exit Reasons")
	for _, name := range names {
		printExitReasons(name, groups[name])
	}
}

func groupByStrategy(trades []domain.Trade) map[string][]domain.Trade {
	groups := make(map[string][]domain.Trade)
	for _, t := range trades {
		key := t.Strategy + " " + t.Product
		groups[key] = append(groups[key], t)
	}
	return groups
}

// printExitReasons breaks a strategy's results down by sell reason.
func printExitReasons(name string, trades []domain.Trade) {
	counts := make(map[domain.SellReason]int)
	pnl := make(map[domain.SellReason]float64)
	for _, t := range trades {
		reason := t.Reason.OrElse(domain.SellReasonUnknown)
		counts[reason]++
		pnl[reason] += t.Profit
	}

	reasons := make([]domain.SellReason, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, reason)
	}
	slices.Sort(reasons)

	fmt.Printf("\n%s\n", name)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "Reason\tCount\tTotal PnL\tAvg PnL")
	for _, reason := range reasons {
		count := counts[reason]
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\n", reason, count, pnl[reason], pnl[reason]/float64(count))
	}
	w.Flush()
}
