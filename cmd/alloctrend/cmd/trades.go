package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/alloctrend/journal"
)

var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "List trades recorded in a SQLite journal",
	RunE:  runTrades,
}

var (
	trDBPath string
	trSymbol string
)

func init() {
	rootCmd.AddCommand(tradesCmd)

	tradesCmd.Flags().StringVarP(&trDBPath, "db", "d", "./backtest.sqlite", "path to SQLite journal DB")
	tradesCmd.Flags().StringVarP(&trSymbol, "symbol", "s", "", "filter by symbol (default: all)")
}

func runTrades(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(trDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	recs, err := j.ListTrades(trSymbol)
	if err != nil {
		return fmt.Errorf("list trades: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSYMBOL\tSIDE\tPRICE\tSIZE\tNOTIONAL\tCOMMISSION\tREASON")
	for _, t := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.8f\t%.2f\t%.4f\t%s\n",
			t.Time.Format(time.RFC3339), t.Symbol, t.Side,
			t.Price, t.Size, t.Notional, t.Commission, t.Reason)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d trades\n", len(recs))
	return nil
}
