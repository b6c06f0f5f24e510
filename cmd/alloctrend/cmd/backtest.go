package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/alloctrend/backtest"
	"github.com/rustyeddy/alloctrend/config"
	"github.com/rustyeddy/alloctrend/journal"
	"github.com/rustyeddy/alloctrend/strategy"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay historical bars through the strategy and score the run",
	Long: `Backtest replays bar CSVs (time,symbol,close[,volume]) through the
selected strategy, simulating commission-adjusted fills.

Bars can be given per symbol as SYMBOL=path pairs; .gz and .xz files are
decompressed on the fly. Alternatively use --config to drive everything
from a YAML/JSON file.

Example:
  alloctrend backtest --bars BTC-USD=data/btc-1h.csv --cash 5000
  alloctrend backtest --config backtest.yaml`,
	RunE: runBacktest,
}

var (
	btConfigPath  string
	btBars        []string
	btCash        float64
	btCommission  float64
	btDBPath      string
	btResultsPath string
	btFrom        string
	btTo          string

	btStrategy  string
	btEMAPeriod int
	btTargetPct float64
	btMinNotion float64
	btHardStop  float64
	btTrailStop float64
	btRebalance bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "c", "", "path to YAML/JSON config (overrides most flags)")
	backtestCmd.Flags().StringSliceVar(&btBars, "bars", nil, "bar sources as SYMBOL=path (repeatable)")
	backtestCmd.Flags().Float64Var(&btCash, "cash", 10_000, "starting cash per symbol")
	backtestCmd.Flags().Float64Var(&btCommission, "commission", backtest.DefaultCommissionRate, "commission rate per fill")
	backtestCmd.Flags().StringVarP(&btDBPath, "db", "d", "", "optional SQLite journal DB path")
	backtestCmd.Flags().StringVar(&btResultsPath, "results", "", "optional JSON results output path")
	backtestCmd.Flags().StringVar(&btFrom, "from", "", "only use bars at/after this RFC3339 time")
	backtestCmd.Flags().StringVar(&btTo, "to", "", "only use bars before this RFC3339 time")

	backtestCmd.Flags().StringVarP(&btStrategy, "strategy", "s", "adaptive-allocation", "strategy name (noop, adaptive-allocation)")
	backtestCmd.Flags().IntVar(&btEMAPeriod, "ema-period", 200, "long EMA period for the trend gate")
	backtestCmd.Flags().Float64Var(&btTargetPct, "target", 0.55, "target allocation fraction (clamped to 0.55)")
	backtestCmd.Flags().Float64Var(&btMinNotion, "min-notional", 10, "minimum trade notional")
	backtestCmd.Flags().Float64Var(&btHardStop, "hard-stop", 0.45, "hard stop loss fraction from entry")
	backtestCmd.Flags().Float64Var(&btTrailStop, "trailing-stop", 0.40, "trailing stop fraction from peak")
	backtestCmd.Flags().BoolVar(&btRebalance, "monthly-rebalance", true, "enable the monthly rebalance exit")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := backtestConfig()
	if err != nil {
		return err
	}

	var from, to time.Time
	if btFrom != "" {
		if from, err = time.Parse(time.RFC3339, btFrom); err != nil {
			return fmt.Errorf("bad --from: %w", err)
		}
	}
	if btTo != "" {
		if to, err = time.Parse(time.RFC3339, btTo); err != nil {
			return fmt.Errorf("bad --to: %w", err)
		}
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	if j != nil {
		defer j.Close()
	}

	ctx := context.Background()
	var results []backtest.Result

	for _, src := range cfg.Backtest.Bars {
		strat, err := strategy.ByName(cfg.Strategy.Name, cfg.Strategy.Params())
		if err != nil {
			return fmt.Errorf("strategy: %w", err)
		}

		feed, err := backtest.NewCSVBarFeed(src.Path, from, to)
		if err != nil {
			return fmt.Errorf("open bars %s: %w", src.Path, err)
		}

		engine := backtest.NewEngine(cfg.Account.Cash, cfg.Backtest.CommissionRate)
		engine.Journal = j

		res, err := engine.Run(ctx, src.Symbol, strat, feed)
		if err != nil {
			return fmt.Errorf("run %s: %w", src.Symbol, err)
		}

		backtest.PrintResult(os.Stdout, res)
		results = append(results, res)
	}

	if len(results) > 1 {
		backtest.PrintCombined(os.Stdout, backtest.Combine(results))
	}

	if cfg.Backtest.ResultsFile != "" {
		if err := backtest.WriteResultsJSON(cfg.Backtest.ResultsFile, cfg.Strategy.Name, results, backtest.Combine(results)); err != nil {
			return err
		}
		fmt.Printf("Results saved to: %s\n", cfg.Backtest.ResultsFile)
	}

	return nil
}

// backtestConfig resolves the effective config: file if given, flags otherwise.
func backtestConfig() (*config.Config, error) {
	if btConfigPath != "" {
		return config.LoadFromFile(btConfigPath)
	}

	if len(btBars) == 0 {
		return nil, fmt.Errorf("either --config or at least one --bars SYMBOL=path is required")
	}

	cfg := config.Default()
	cfg.Account.Cash = btCash
	cfg.Strategy = config.StrategyConfig{
		Name:                btStrategy,
		EMALongPeriod:       btEMAPeriod,
		TargetAllocationPct: btTargetPct,
		MinNotional:         btMinNotion,
		HardStopLossPct:     btHardStop,
		TrailingStopPct:     btTrailStop,
		MonthlyRebalance:    btRebalance,
	}
	cfg.Backtest.CommissionRate = btCommission
	cfg.Backtest.ResultsFile = btResultsPath
	cfg.Backtest.Bars = nil
	for _, spec := range btBars {
		sym, path, ok := strings.Cut(spec, "=")
		if !ok || sym == "" || path == "" {
			return nil, fmt.Errorf("bad --bars %q, want SYMBOL=path", spec)
		}
		cfg.Backtest.Bars = append(cfg.Backtest.Bars, config.BarsSource{Symbol: sym, Path: path})
	}

	cfg.Journal = config.JournalConfig{Type: "none"}
	if btDBPath != "" {
		cfg.Journal = config.JournalConfig{Type: "sqlite", DBPath: btDBPath}
	}

	return cfg, cfg.Validate()
}

func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	case "csv":
		return journal.NewCSV(jc.TradesFile, jc.EquityFile)
	default:
		return nil, nil
	}
}
