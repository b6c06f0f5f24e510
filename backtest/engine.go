// Package backtest replays historical bars against a strategy, simulates
// commission-adjusted fills into a portfolio ledger, and scores the result.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/alloctrend/journal"
	"github.com/rustyeddy/alloctrend/market"
	"github.com/rustyeddy/alloctrend/pkg/id"
	"github.com/rustyeddy/alloctrend/strategy"
)

const (
	// Trailing closes handed to the strategy per bar.
	lookbackWindow = 300

	DefaultCommissionRate = 0.001
)

// EquityPoint is one mark-to-market observation, appended once per bar in
// strict time order.
type EquityPoint struct {
	Time          time.Time `json:"timestamp"`
	Equity        float64   `json:"equity"`
	Cash          float64   `json:"cash"`
	PositionValue float64   `json:"position_value"`
	Price         float64   `json:"price"`
}

// Engine simulates one symbol's bar series against one strategy instance
// and one portfolio. It owns all mutable state for the duration of a run;
// runs are synchronous and single-threaded.
type Engine struct {
	StartingCash   float64
	CommissionRate float64

	// Optional. Journal failures are logged and never affect the run.
	Journal journal.Journal
}

func NewEngine(startingCash, commissionRate float64) *Engine {
	if commissionRate <= 0 {
		commissionRate = DefaultCommissionRate
	}
	return &Engine{
		StartingCash:   startingCash,
		CommissionRate: commissionRate,
	}
}

// Run executes the backtest loop: for each bar build a snapshot with a
// bounded lookback window, ask the strategy for a signal, apply the fill,
// and record an equity point. An empty bar series is fatal for the symbol.
func (e *Engine) Run(ctx context.Context, symbol string, strat strategy.Strategy, feed BarFeed) (Result, error) {
	bars, err := drain(feed)
	if err != nil {
		return Result{}, err
	}
	if len(bars) == 0 {
		return Result{}, fmt.Errorf("backtest: no bars for %s", symbol)
	}

	log.Info().Str("symbol", symbol).Int("bars", len(bars)).
		Float64("cash", e.StartingCash).Msg("starting backtest")

	portfolio := &strategy.Portfolio{Symbol: symbol, Cash: e.StartingCash}

	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	var (
		trades      []journal.TradeRecord
		equityCurve = make([]EquityPoint, 0, len(bars))
		maxEquity   = e.StartingCash
		maxDrawdown float64
	)

	for i, bar := range bars {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		lo := i + 1 - lookbackWindow
		if lo < 0 {
			lo = 0
		}

		snap := market.Snapshot{
			Symbol:  symbol,
			Time:    bar.Time,
			Price:   bar.Close,
			Prices:  closes[lo : i+1],
			Volumes: volumeWindow(closes[lo:i+1], volumes[lo:i+1]),
		}

		sig := strat.GenerateSignal(snap, portfolio)

		switch {
		case sig.Action == strategy.Buy && sig.Size > 0:
			notional := sig.Size * bar.Close
			commission := notional * e.CommissionRate

			// A buy that cannot be fully afforded is skipped, not down-sized.
			if notional+commission <= portfolio.Cash {
				portfolio.Cash -= notional + commission
				portfolio.Quantity += sig.Size

				trades = append(trades, e.record(symbol, "buy", bar, sig.Size, notional, commission, sig.Reason))
				strat.OnTrade(sig, bar.Close, sig.Size, bar.Time)
			} else {
				log.Debug().Str("symbol", symbol).Float64("cost", notional+commission).
					Float64("cash", portfolio.Cash).Msg("buy skipped, insufficient funds")
			}

		case sig.Action == strategy.Sell && sig.Size > 0 && portfolio.Quantity > 0:
			// Cap at available inventory even if the strategy asked for more.
			size := sig.Size
			if size > portfolio.Quantity {
				size = portfolio.Quantity
			}

			notional := size * bar.Close
			commission := notional * e.CommissionRate

			portfolio.Cash += notional - commission
			portfolio.Quantity -= size

			trades = append(trades, e.record(symbol, "sell", bar, size, notional, commission, sig.Reason))
			strat.OnTrade(sig, bar.Close, size, bar.Time)
		}

		equity := portfolio.Equity(bar.Close)
		pt := EquityPoint{
			Time:          bar.Time,
			Equity:        equity,
			Cash:          portfolio.Cash,
			PositionValue: portfolio.Quantity * bar.Close,
			Price:         bar.Close,
		}
		equityCurve = append(equityCurve, pt)

		if e.Journal != nil {
			err := e.Journal.RecordEquity(journal.EquityRecord{
				Time:          pt.Time,
				Symbol:        symbol,
				Equity:        pt.Equity,
				Cash:          pt.Cash,
				PositionValue: pt.PositionValue,
				Price:         pt.Price,
			})
			if err != nil {
				log.Warn().Err(err).Msg("journal equity write failed")
			}
		}

		if equity > maxEquity {
			maxEquity = equity
		}
		if maxEquity > 0 {
			if dd := (maxEquity - equity) / maxEquity; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}

	// Open positions are marked to market at the final close; no explicit
	// liquidation order is placed.
	finalPrice := bars[len(bars)-1].Close
	finalEquity := portfolio.Equity(finalPrice)

	res := Result{
		Symbol:         symbol,
		StartingCash:   e.StartingCash,
		FinalEquity:    finalEquity,
		MaxDrawdownPct: maxDrawdown * 100,
		Start:          bars[0].Time,
		End:            bars[len(bars)-1].Time,
		Trades:         trades,
		EquityCurve:    equityCurve,
	}
	res.applyStats(evaluate(e.StartingCash, trades, equityCurve))

	log.Info().Str("symbol", symbol).Float64("final_equity", finalEquity).
		Float64("return_pct", res.ReturnPct).Int("trades", len(trades)).
		Msg("backtest complete")

	return res, nil
}

func (e *Engine) record(symbol, side string, bar market.Bar, size, notional, commission float64, reason string) journal.TradeRecord {
	rec := journal.TradeRecord{
		TradeID:    id.New(),
		Symbol:     symbol,
		Side:       side,
		Time:       bar.Time,
		Price:      bar.Close,
		Size:       size,
		Notional:   notional,
		Commission: commission,
		Reason:     reason,
	}

	if e.Journal != nil {
		if err := e.Journal.RecordTrade(rec); err != nil {
			log.Warn().Err(err).Str("trade_id", rec.TradeID).Msg("journal trade write failed")
		}
	}
	return rec
}

// volumeWindow returns the feed's volumes for the window, or synthetic
// activity proxies (absolute bar-to-bar price change) when the dataset
// carries no volume at all.
func volumeWindow(prices, volumes []float64) []float64 {
	for _, v := range volumes {
		if v != 0 {
			return volumes
		}
	}

	out := make([]float64, len(prices))
	for i := range prices {
		if i == 0 {
			out[i] = 1.0
			continue
		}
		d := prices[i] - prices[i-1]
		if d < 0 {
			d = -d
		}
		out[i] = d
	}
	return out
}

func drain(feed BarFeed) ([]market.Bar, error) {
	defer feed.Close()

	var bars []market.Bar
	for {
		b, ok, err := feed.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return bars, nil
		}
		bars = append(bars, b)
	}
}
