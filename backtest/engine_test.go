package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/alloctrend/market"
	"github.com/rustyeddy/alloctrend/strategy"
)

func hourlyBars(symbol string, start time.Time, prices []float64) []market.Bar {
	bars := make([]market.Bar, len(prices))
	for i, p := range prices {
		bars[i] = market.Bar{
			Symbol: symbol,
			Time:   start.Add(time.Duration(i) * time.Hour),
			Close:  p,
		}
	}
	return bars
}

func constPrices(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

// scriptedStrategy emits a fixed signal per bar, for exercising the
// execution rules independently of the real strategy.
type scriptedStrategy struct {
	signals []strategy.Signal
	bar     int

	fills []float64 // execution sizes seen via OnTrade
}

func (s *scriptedStrategy) GenerateSignal(market.Snapshot, *strategy.Portfolio) strategy.Signal {
	if s.bar >= len(s.signals) {
		return strategy.Signal{Action: strategy.Hold}
	}
	sig := s.signals[s.bar]
	s.bar++
	return sig
}

func (s *scriptedStrategy) OnTrade(_ strategy.Signal, _ float64, execSize float64, _ time.Time) {
	s.fills = append(s.fills, execSize)
}

func TestRun_NoBarsIsFatal(t *testing.T) {
	t.Parallel()

	e := NewEngine(10_000, 0.001)
	_, err := e.Run(context.Background(), "BTC-USD", strategy.NoopStrategy{}, NewSliceBarFeed(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no bars")
}

func TestRun_FeedErrorPropagates(t *testing.T) {
	t.Parallel()

	e := NewEngine(10_000, 0.001)
	_, err := e.Run(context.Background(), "BTC-USD", strategy.NoopStrategy{}, errFeed{})
	assert.Error(t, err)
}

type errFeed struct{}

func (errFeed) Next() (market.Bar, bool, error) { return market.Bar{}, false, errors.New("mock error") }
func (errFeed) Close() error                    { return nil }

func TestRun_ConstantPriceScenario(t *testing.T) {
	t.Parallel()

	// 200 hourly bars of constant price 100 starting mid-month: the first
	// bar buys up to the 55% target, everything after holds.
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	bars := hourlyBars("BTC-USD", start, constPrices(200, 100))

	e := NewEngine(10_000, 0.001)
	strat := strategy.NewAdaptiveAllocation(strategy.DefaultConfig())

	res, err := e.Run(context.Background(), "BTC-USD", strat, NewSliceBarFeed(bars))
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	buy := res.Trades[0]
	assert.Equal(t, "buy", buy.Side)
	assert.InDelta(t, 55.0, buy.Size, 1e-9)
	assert.InDelta(t, 5500.0, buy.Notional, 1e-9)
	assert.InDelta(t, 5.5, buy.Commission, 1e-9)

	assert.Equal(t, 1, res.BuyTrades)
	assert.Equal(t, 0, res.SellTrades)

	// Flat price: the only loss is the commission.
	assert.InDelta(t, -5.5, res.TotalPnL, 1e-9)
	assert.Len(t, res.EquityCurve, 200)
}

func TestRun_MonthBoundaryRebalance(t *testing.T) {
	t.Parallel()

	// Hourly bars spanning Jan 31 into Feb 2. The Feb 1 00:00 bar forces a
	// full rebalance sell; the following bar re-enters.
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	bars := hourlyBars("BTC-USD", start, constPrices(72, 100))

	e := NewEngine(10_000, 0.001)
	strat := strategy.NewAdaptiveAllocation(strategy.DefaultConfig())

	res, err := e.Run(context.Background(), "BTC-USD", strat, NewSliceBarFeed(bars))
	require.NoError(t, err)

	var rebalance, reentry bool
	feb1 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	for _, tr := range res.Trades {
		if tr.Side == "sell" && tr.Reason == "Monthly rebalance" {
			assert.True(t, tr.Time.Equal(feb1))
			rebalance = true
		}
		if rebalance && tr.Side == "buy" && tr.Time.After(feb1) {
			reentry = true
		}
	}
	assert.True(t, rebalance, "expected a monthly rebalance sell on Feb 1 00:00")
	assert.True(t, reentry, "expected a re-entry buy after the rebalance")
}

func TestRun_CrashTriggersHardStop(t *testing.T) {
	t.Parallel()

	// Entry at 100, then an instant 46% crash: the next bar must emit a
	// full-size hard stop sell regardless of anything else.
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	bars := hourlyBars("BTC-USD", start, []float64{100, 100, 54})

	e := NewEngine(10_000, 0.001)
	strat := strategy.NewAdaptiveAllocation(strategy.DefaultConfig())

	res, err := e.Run(context.Background(), "BTC-USD", strat, NewSliceBarFeed(bars))
	require.NoError(t, err)

	require.NotEmpty(t, res.Trades)
	last := res.Trades[len(res.Trades)-1]
	assert.Equal(t, "sell", last.Side)
	assert.Contains(t, last.Reason, "Hard stop loss")

	// The exit was sized to the full held quantity.
	assert.InDelta(t, 55.0, last.Size, 1e-9)
}

func TestRun_InsufficientFundsSkipsBuy(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	bars := hourlyBars("BTC-USD", start, []float64{100})

	// Requested notional 20,000 against 10,000 cash: skipped, not down-sized.
	strat := &scriptedStrategy{signals: []strategy.Signal{
		{Action: strategy.Buy, Size: 200},
	}}

	e := NewEngine(10_000, 0.001)
	res, err := e.Run(context.Background(), "BTC-USD", strat, NewSliceBarFeed(bars))
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	assert.Empty(t, strat.fills)
	assert.InDelta(t, 10_000, res.FinalEquity, 1e-9)
}

func TestRun_SellClampedToInventory(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	bars := hourlyBars("BTC-USD", start, []float64{100, 100})

	strat := &scriptedStrategy{signals: []strategy.Signal{
		{Action: strategy.Buy, Size: 2},
		{Action: strategy.Sell, Size: 10}, // asks for more than held
	}}

	e := NewEngine(10_000, 0.001)
	res, err := e.Run(context.Background(), "BTC-USD", strat, NewSliceBarFeed(bars))
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	sell := res.Trades[1]
	assert.Equal(t, "sell", sell.Side)
	assert.InDelta(t, 2.0, sell.Size, 1e-9)

	// OnTrade saw the capped size, not the requested one.
	require.Len(t, strat.fills, 2)
	assert.InDelta(t, 2.0, strat.fills[1], 1e-9)

	// Inventory never goes negative.
	last := res.EquityCurve[len(res.EquityCurve)-1]
	assert.InDelta(t, last.Cash, last.Equity, 1e-9)
	assert.Zero(t, last.PositionValue)
}

func TestRun_SellWithNoInventoryIgnored(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	bars := hourlyBars("BTC-USD", start, []float64{100})

	strat := &scriptedStrategy{signals: []strategy.Signal{
		{Action: strategy.Sell, Size: 5},
	}}

	e := NewEngine(10_000, 0.001)
	res, err := e.Run(context.Background(), "BTC-USD", strat, NewSliceBarFeed(bars))
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	assert.Empty(t, strat.fills)
}

func TestRun_EquityCurveIdentity(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	prices := []float64{100, 110, 90, 120, 80, 130}
	bars := hourlyBars("BTC-USD", start, prices)

	e := NewEngine(10_000, 0.001)
	strat := strategy.NewAdaptiveAllocation(strategy.DefaultConfig())

	res, err := e.Run(context.Background(), "BTC-USD", strat, NewSliceBarFeed(bars))
	require.NoError(t, err)

	require.Len(t, res.EquityCurve, len(prices))
	for i, pt := range res.EquityCurve {
		assert.InDelta(t, pt.Cash+pt.PositionValue, pt.Equity, 1e-9)
		if i > 0 {
			assert.True(t, pt.Time.After(res.EquityCurve[i-1].Time), "equity curve must be time-ordered")
		}
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	bars := hourlyBars("BTC-USD", start, constPrices(10, 100))

	e := NewEngine(10_000, 0.001)
	_, err := e.Run(ctx, "BTC-USD", strategy.NoopStrategy{}, NewSliceBarFeed(bars))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVolumeWindow(t *testing.T) {
	t.Parallel()

	t.Run("real volumes pass through", func(t *testing.T) {
		t.Parallel()

		vols := volumeWindow([]float64{100, 101}, []float64{5, 7})
		assert.Equal(t, []float64{5, 7}, vols)
	})

	t.Run("synthetic when absent", func(t *testing.T) {
		t.Parallel()

		vols := volumeWindow([]float64{100, 103, 101}, []float64{0, 0, 0})
		assert.Equal(t, []float64{1, 3, 2}, vols)
	})
}
