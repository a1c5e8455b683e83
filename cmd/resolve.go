package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/acastellana/prediction-agent/internal/resolver"
	"github.com/acastellana/prediction-agent/pkg/clock"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Sweep open trades for market resolutions",
	Long: `Checks every open trade in the ledger against the Gamma API and settles
the ones whose markets have resolved, recording PnL and closing line value.

Use --dry-run to see what would be settled without writing anything.`,
	RunE: runResolve,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().Bool("dry-run", false, "Report resolutions without settling trades")
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, logger, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	dryRun, _ := cmd.Flags().GetBool("dry-run")

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

	sweeper := resolver.New(store, newProvider(cfg, logger), audit, clock.System(), logger)

	if dryRun {
		fmt.Println("Dry run: no trades will be settled.")
	}

	result, err := sweeper.Sweep(ctx, dryRun)
	if err != nil {
		return fmt.Errorf("resolution sweep: %w", err)
	}

	fmt.Printf("\nOpen trades checked: %d\n", result.Checked)
	fmt.Printf("Resolved:            %d\n", result.Resolved)
	fmt.Printf("Errors:              %d\n", result.Errors)
	if !dryRun {
		fmt.Printf("Realized PnL:        $%.2f\n", result.TotalPnL)
	}

	return nil
}
