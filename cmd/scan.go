package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/acastellana/prediction-agent/internal/strategy"
	"github.com/acastellana/prediction-agent/internal/trading"
	"github.com/acastellana/prediction-agent/pkg/clock"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single market scan",
	Long: `Fetches active markets from the Gamma API, evaluates every registered
strategy against them, and executes risk-checked paper trades for any
opportunities found. Results are printed to stdout.`,
	RunE: runScan,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().IntP("limit", "l", 0, "Maximum number of markets to fetch (0 uses SCAN_MARKET_LIMIT)")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, logger, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		limit = cfg.ScanMarketLimit
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	audit, err := openAudit(cfg, logger)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer func() {
		_ = audit.Close()
	}()

	clk := clock.System()
	riskCfg := trading.RiskConfig{
		MaxPositionSize:       cfg.MaxPositionSize,
		MaxTotalExposure:      cfg.MaxTotalExposure,
		MaxDailyVolume:        cfg.MaxDailyVolume,
		MaxPositionsPerMarket: cfg.MaxPositionsPerMarket,
	}
	engine := trading.NewEngine(
		trading.NewRiskManager(riskCfg),
		trading.NewPositionManager(store, riskCfg, clk),
		trading.NewPaperExecutor(store, audit, clk, logger),
		true,
		logger,
	)
	scanner := trading.NewScanner(newProvider(cfg, logger), strategy.Default(), engine, limit, logger)

	fmt.Printf("Scanning up to %d active markets...\n", limit)

	result, err := scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan markets: %w", err)
	}

	fmt.Printf("\nMarkets scanned: %d\n", result.MarketsScanned)
	fmt.Printf("Opportunities:   %d\n", result.Opportunities)
	fmt.Printf("Executed:        %d\n", result.Executed)
	fmt.Printf("Denied:          %d\n", result.Denied)
	fmt.Printf("Errors:          %d\n", result.Errors)

	for _, id := range result.TradeIDs {
		fmt.Printf("  trade %s\n", id)
	}

	return nil
}
