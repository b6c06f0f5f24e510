package backtest

import (
	"math"

	"github.com/rustyeddy/alloctrend/journal"
)

// Trading periods per year used to annualize the risk-adjusted ratio.
const annualization = 252

type stats struct {
	TotalPnL  float64
	ReturnPct float64

	BuyTrades     int
	SellTrades    int
	WinningTrades int
	LosingTrades  int
	WinRatePct    float64

	SharpeRatio float64
}

// evaluate derives performance statistics from a completed run's trade log
// and equity curve.
func evaluate(startingCash float64, trades []journal.TradeRecord, curve []EquityPoint) stats {
	var st stats

	if n := len(curve); n > 0 {
		st.TotalPnL = curve[n-1].Equity - startingCash
	}
	if startingCash > 0 {
		st.ReturnPct = st.TotalPnL / startingCash * 100
	}

	// A sell is a win when its price beats the size-weighted average price
	// of every buy strictly preceding it. Ties count as losses. Sells with
	// no preceding buys are counted on neither side.
	for _, t := range trades {
		switch t.Side {
		case "buy":
			st.BuyTrades++
		case "sell":
			st.SellTrades++

			var buyNotional, buySize float64
			for _, b := range trades {
				if b.Side == "buy" && b.Time.Before(t.Time) {
					buyNotional += b.Price * b.Size
					buySize += b.Size
				}
			}
			if buySize > 0 {
				if t.Price > buyNotional/buySize {
					st.WinningTrades++
				} else {
					st.LosingTrades++
				}
			}
		}
	}

	if decided := st.WinningTrades + st.LosingTrades; decided > 0 {
		st.WinRatePct = float64(st.WinningTrades) / float64(decided) * 100
	}

	st.SharpeRatio = sharpe(curve)
	return st
}

// sharpe annualizes mean/stdev of consecutive per-bar equity returns.
// Defined as 0 with fewer than two returns or zero variance.
func sharpe(curve []EquityPoint) float64 {
	var returns []float64
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev > 0 {
			returns = append(returns, (curve[i].Equity-prev)/prev)
		}
	}

	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	// Sample standard deviation
	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)

	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}

	return mean / std * math.Sqrt(annualization)
}
