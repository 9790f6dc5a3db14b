package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "nadobot",
		Short: "Multi-timeframe decision engine and position manager for Nado perpetuals",
		Long: `nadobot scores each configured pair on a multi-timeframe indicator
snapshot, prices fee- and slippage-aware orders for the winning side and
manages the resulting positions until their stop-loss or take-profit fires.`,
		SilenceUsage: true,
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the evaluation and monitoring loops until interrupted",
		RunE:  runBot,
	}
	evaluateCmd = &cobra.Command{
		Use:   "evaluate [snapshot file]",
		Short: "Evaluate a snapshot once and print the decisions as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEvaluate,
	}
	actionableOnly bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	evaluateCmd.Flags().BoolVar(&actionableOnly, "actionable", false, "print only long/short decisions, ranked by certainty")

	rootCmd.AddCommand(runCmd, evaluateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
