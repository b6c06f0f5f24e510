package backtest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rustyeddy/alloctrend/journal"
)

// Result is the complete outcome of one symbol's run.
type Result struct {
	Symbol string `json:"symbol"`

	StartingCash   float64 `json:"starting_cash"`
	FinalEquity    float64 `json:"final_equity"`
	TotalPnL       float64 `json:"total_pnl"`
	ReturnPct      float64 `json:"total_return_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`

	TotalTrades   int     `json:"total_trades"`
	BuyTrades     int     `json:"buy_trades"`
	SellTrades    int     `json:"sell_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRatePct    float64 `json:"win_rate_pct"`
	SharpeRatio   float64 `json:"sharpe_ratio"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Trades      []journal.TradeRecord `json:"-"`
	EquityCurve []EquityPoint         `json:"-"`
}

func (r *Result) applyStats(st stats) {
	r.TotalPnL = st.TotalPnL
	r.ReturnPct = st.ReturnPct
	r.TotalTrades = len(r.Trades)
	r.BuyTrades = st.BuyTrades
	r.SellTrades = st.SellTrades
	r.WinningTrades = st.WinningTrades
	r.LosingTrades = st.LosingTrades
	r.WinRatePct = st.WinRatePct
	r.SharpeRatio = st.SharpeRatio
}

// Combined is the multi-symbol rollup: summed capital and P&L, the worst
// per-symbol drawdown, pooled win rate and mean sharpe.
type Combined struct {
	StartingCash   float64 `json:"starting_cash"`
	FinalEquity    float64 `json:"final_equity"`
	TotalPnL       float64 `json:"total_pnl"`
	ReturnPct      float64 `json:"total_return_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	TotalTrades    int     `json:"total_trades"`
	WinRatePct     float64 `json:"win_rate_pct"`
	AvgSharpe      float64 `json:"avg_sharpe"`
}

func Combine(results []Result) Combined {
	var c Combined
	if len(results) == 0 {
		return c
	}

	var wins, losses int
	for _, r := range results {
		c.StartingCash += r.StartingCash
		c.FinalEquity += r.FinalEquity
		c.TotalTrades += r.TotalTrades
		wins += r.WinningTrades
		losses += r.LosingTrades
		if r.MaxDrawdownPct > c.MaxDrawdownPct {
			c.MaxDrawdownPct = r.MaxDrawdownPct
		}
		c.AvgSharpe += r.SharpeRatio
	}

	c.TotalPnL = c.FinalEquity - c.StartingCash
	if c.StartingCash > 0 {
		c.ReturnPct = c.TotalPnL / c.StartingCash * 100
	}
	if wins+losses > 0 {
		c.WinRatePct = float64(wins) / float64(wins+losses) * 100
	}
	c.AvgSharpe /= float64(len(results))

	return c
}

func PrintResult(w io.Writer, r Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, " Backtest Result: %s\n", r.Symbol)
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.RFC3339))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Starting Cash: %.2f\n", r.StartingCash)
	fmt.Fprintf(w, "Final Equity:  %.2f\n", r.FinalEquity)
	fmt.Fprintf(w, "Net P/L:       %+.2f\n", r.TotalPnL)
	fmt.Fprintf(w, "Return:        %+.2f%%\n", r.ReturnPct)
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", r.MaxDrawdownPct)
	fmt.Fprintf(w, "Sharpe Ratio:  %.2f\n", r.SharpeRatio)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d (%d buys, %d sells)\n", r.TotalTrades, r.BuyTrades, r.SellTrades)
	fmt.Fprintf(w, "Wins:          %d\n", r.WinningTrades)
	fmt.Fprintf(w, "Losses:        %d\n", r.LosingTrades)
	fmt.Fprintf(w, "Win Rate:      %.1f%%\n", r.WinRatePct)
	fmt.Fprintln(w)
}

func PrintCombined(w io.Writer, c Combined) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Combined Results")
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "Starting Cash: %.2f\n", c.StartingCash)
	fmt.Fprintf(w, "Final Equity:  %.2f\n", c.FinalEquity)
	fmt.Fprintf(w, "Net P/L:       %+.2f\n", c.TotalPnL)
	fmt.Fprintf(w, "Return:        %+.2f%%\n", c.ReturnPct)
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", c.MaxDrawdownPct)
	fmt.Fprintf(w, "Total Trades:  %d\n", c.TotalTrades)
	fmt.Fprintf(w, "Win Rate:      %.1f%%\n", c.WinRatePct)
	fmt.Fprintf(w, "Avg Sharpe:    %.2f\n", c.AvgSharpe)
	fmt.Fprintln(w)
}

// resultExport is the compact on-disk form: full summary numbers with the
// heavy trade/equity arrays elided to counts.
type resultExport struct {
	Result
	Trades      string `json:"trades"`
	EquityCurve string `json:"equity_curve"`
}

type reportExport struct {
	Created  time.Time      `json:"created"`
	Strategy string         `json:"strategy"`
	Symbols  []resultExport `json:"symbols"`
	Combined Combined       `json:"combined"`
}

// WriteResultsJSON saves per-symbol summaries and the combined rollup as a
// flat JSON report suitable for archiving.
func WriteResultsJSON(path, strategyName string, results []Result, combined Combined) error {
	rep := reportExport{
		Created:  time.Now().UTC(),
		Strategy: strategyName,
		Combined: combined,
	}
	for _, r := range results {
		rep.Symbols = append(rep.Symbols, resultExport{
			Result:      r,
			Trades:      fmt.Sprintf("%d trades", len(r.Trades)),
			EquityCurve: fmt.Sprintf("%d data points", len(r.EquityCurve)),
		})
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
