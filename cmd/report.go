package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/acastellana/prediction-agent/internal/analysis"
	"github.com/acastellana/prediction-agent/pkg/clock"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the self-review report",
	Long: `Builds the full analytics report over the trade ledger: per-strategy
performance, entry price calibration, improvement suggestions, optimal
parameters, and lessons from recent resolutions.`,
	RunE: runReport,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, logger, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	reporter := analysis.NewReporter(store, clock.System(), logger)

	report, err := reporter.Build(ctx)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	printReport(report)
	return nil
}

func printReport(report *analysis.OverallReport) {
	fmt.Printf("Report generated at %s\n\n", report.GeneratedAt.Format(time.RFC3339))
	fmt.Printf("Trades: %d total, %d resolved, %d open\n\n",
		report.Summary.TotalTrades, report.Summary.Resolved, report.Summary.Open)

	if len(report.StrategyPerformance) > 0 {
		names := make([]string, 0, len(report.StrategyPerformance))
		for name := range report.StrategyPerformance {
			names = append(names, name)
		}
		sort.Strings(names)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "STRATEGY\tTRADES\tWINS\tWIN RATE\tPNL\tROI\tAVG CLV\n")
		for _, name := range names {
			perf := report.StrategyPerformance[name]
			fmt.Fprintf(w, "%s\t%d\t%d\t%.1f%%\t$%.2f\t%.1f%%\t%.2f\n",
				name, perf.TotalTrades, perf.Wins, perf.WinRate,
				perf.TotalPnL, perf.ROI, perf.AvgCLV)
		}
		w.Flush()
		fmt.Println()
	}

	if len(report.Calibration) > 0 {
		fmt.Println("Calibration by entry price:")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "BUCKET\tTRADES\tAVG ENTRY\tWIN RATE\tERROR\n")
		for _, point := range report.Calibration {
			fmt.Fprintf(w, "%s\t%d\t%.3f\t%.1f%%\t%+.1f\n",
				point.PriceBucket, point.TotalTrades, point.AvgEntryPrice,
				point.ActualWinRate, point.CalibrationError)
		}
		w.Flush()
		fmt.Println()
	}

	if len(report.Improvements) > 0 {
		fmt.Println("Suggestions:")
		for _, suggestion := range report.Improvements {
			fmt.Printf("  - %s\n", suggestion)
		}
		fmt.Println()
	}

	if report.OptimalParameters != nil {
		fmt.Printf("Optimal parameters: %s\n", report.OptimalParameters.Status)
		if len(report.OptimalParameters.EntryPrices.BestBuckets) > 0 {
			fmt.Printf("  favor entry prices: %v\n", report.OptimalParameters.EntryPrices.BestBuckets)
		}
		if len(report.OptimalParameters.EntryPrices.AvoidBuckets) > 0 {
			fmt.Printf("  avoid entry prices: %v\n", report.OptimalParameters.EntryPrices.AvoidBuckets)
		}
		fmt.Println()
	}

	if len(report.RecentLessons) > 0 {
		fmt.Println("Recent lessons:")
		for _, lesson := range report.RecentLessons {
			fmt.Printf("  - %s\n", lesson)
		}
	}
}
