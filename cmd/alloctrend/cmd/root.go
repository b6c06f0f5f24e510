package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "alloctrend",
	Short: "Adaptive allocation trend strategy backtester",
	Long: `Alloctrend backtests a long-only constant-allocation trend strategy
against historical bar data.

It provides tools for:
  - Replaying bar CSVs (plain, .gz or .xz) through the strategy
  - Simulating commission-adjusted fills and equity curves
  - Journaling trades and equity to CSV or SQLite
  - Summarizing return, drawdown, win rate and risk-adjusted ratio`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
