package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "prediction-agent",
	Short: "Prediction market paper-trading agent",
	Long: `Prediction market paper-trading agent that scans Polymarket for
opportunities, executes risk-checked paper trades, settles them against
market resolutions, and analyzes its own track record.

The agent polls the Polymarket Gamma API for active markets, runs each
through its strategy registry, and records every trade in the ledger
for closing-line-value and calibration analysis.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
