package strategy

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/alloctrend/indicators"
	"github.com/rustyeddy/alloctrend/market"
)

const (
	// Price observations kept across restarts.
	historyCap = 1000

	// Entry is blocked only in extreme deep-bear regimes: price below 70%
	// of the long EMA. With insufficient history the gate passes.
	trendFloor = 0.7

	reasonInvalidPrice     = "Invalid price"
	reasonMonthlyRebalance = "Monthly rebalance"
	reasonHoldAllocation   = "Holding current allocation / no adjustment needed"
	reasonTargetAllocation = "Maintaining target allocation in asset under broad positive regime (constant allocation trend-following)"
)

// AdaptiveAllocation is a long-only constant-allocation trend strategy with
// catastrophic risk controls and a monthly rebalance exit.
//
// It keeps a fixed fraction of portfolio value in the asset, uses a long
// EMA only as a very loose regime filter, and exits fully on wide stops
// (from entry and from peak) or on the first bar of a new calendar month.
//
// The engine is stateful across bars: position, peak price since entry and
// the rebalance bookkeeping all live here. It is not safe for concurrent
// use; one goroutine owns it for the lifetime of a run.
type AdaptiveAllocation struct {
	cfg Config

	position *Position
	peak     float64 // highest price since entry, 0 = unset

	history []float64

	currentMonth int // 1..12, 0 = unset
	rebalanced   bool
}

// NewAdaptiveAllocation builds an engine with a flat book. Zero-valued
// config fields are filled with defaults; the target allocation is clamped.
func NewAdaptiveAllocation(cfg Config) *AdaptiveAllocation {
	cfg.normalize()

	log.Debug().
		Float64("target_alloc", cfg.TargetAllocationPct).
		Float64("hard_stop", cfg.HardStopLossPct).
		Float64("trailing_stop", cfg.TrailingStopPct).
		Int("ema_period", cfg.EMALongPeriod).
		Msg("adaptive-allocation init")

	return &AdaptiveAllocation{
		cfg:     cfg,
		history: make([]float64, 0, historyCap),
	}
}

// Config returns the normalized parameter set the engine runs with.
func (s *AdaptiveAllocation) Config() Config { return s.cfg }

// GenerateSignal decides buy/sell/hold for one bar. Exactly one signal is
// returned per call; exits win over entries. As a side effect the observed
// price is recorded into the bounded history buffer.
func (s *AdaptiveAllocation) GenerateSignal(snap market.Snapshot, portfolio *Portfolio) Signal {
	price := snap.Price
	if price <= 0 {
		log.Warn().Str("symbol", snap.Symbol).Float64("price", price).Msg("invalid price, holding")
		return hold(reasonInvalidPrice)
	}

	s.recordPrice(price)

	// Long EMA, used only as a loose trend sanity check, never for sizing.
	emaLong, haveEMA := indicators.EMA(snap.Prices, s.cfg.EMALongPeriod)

	s.updatePeak(price)

	// 1) Risk and schedule exits, only while actually long.
	if s.position != nil && portfolio.Quantity > 0 {
		if exit, reason := s.riskExit(price); exit {
			size := portfolio.Quantity
			log.Info().Str("symbol", snap.Symbol).Float64("size", size).
				Float64("price", price).Str("reason", reason).Msg("SELL (risk)")
			return Signal{Action: Sell, Size: size, Reason: reason}
		}

		if s.shouldRebalance(snap.Time) {
			size := portfolio.Quantity
			log.Info().Str("symbol", snap.Symbol).Float64("size", size).
				Float64("price", price).Time("ts", snap.Time).Msg("SELL (monthly rebalance)")
			return Signal{Action: Sell, Size: size, Reason: reasonMonthlyRebalance}
		}
	}

	// 2) Entry / top-up toward the target allocation.
	trendOK := true
	if haveEMA {
		trendOK = price >= trendFloor*emaLong
	}

	if trendOK {
		size := s.targetSize(portfolio, price)
		notional := size * price

		if size > 0 && notional >= s.cfg.MinNotional {
			log.Info().Str("symbol", snap.Symbol).Float64("size", size).
				Float64("notional", notional).Float64("price", price).Msg("BUY")
			return Signal{
				Action:     Buy,
				Size:       size,
				Reason:     reasonTargetAllocation,
				EntryPrice: price,
			}
		}
	}

	// 3) Nothing to do.
	return hold(reasonHoldAllocation)
}

// OnTrade is invoked by the execution layer after a fill. It updates the
// engine's book only; it never re-derives a decision.
func (s *AdaptiveAllocation) OnTrade(sig Signal, execPrice, execSize float64, ts time.Time) {
	switch {
	case sig.Action == Buy && execSize > 0:
		s.applyBuy(execPrice, execSize, ts)

	case sig.Action == Sell && execSize > 0:
		if s.position != nil && s.position.AvgEntryPrice > 0 {
			gainPct := (execPrice - s.position.AvgEntryPrice) / s.position.AvgEntryPrice * 100
			log.Info().Float64("size", execSize).Float64("price", execPrice).
				Float64("pnl_pct", gainPct).Msg("SELL executed")
		}

		if sig.Reason == reasonMonthlyRebalance {
			s.rebalanced = true
		}

		// Exits are always sized to the full held quantity, so any sell is a
		// full close: drop the position and the trailing peak together.
		s.position = nil
		s.peak = 0
	}
}

func (s *AdaptiveAllocation) applyBuy(execPrice, execSize float64, ts time.Time) {
	if s.position == nil {
		s.position = &Position{
			AvgEntryPrice: execPrice,
			Size:          execSize,
			UpdatedAt:     ts,
			Value:         execPrice * execSize,
		}
		s.peak = execPrice
	} else {
		oldSize := s.position.Size
		oldPrice := s.position.AvgEntryPrice
		newSize := oldSize + execSize

		newPrice := execPrice
		if newSize > 0 {
			newPrice = (oldPrice*oldSize + execPrice*execSize) / newSize
		}

		s.position = &Position{
			AvgEntryPrice: newPrice,
			Size:          newSize,
			UpdatedAt:     ts,
			Value:         newSize * execPrice,
		}

		if s.peak == 0 {
			s.peak = newPrice
		}
		if execPrice > s.peak {
			s.peak = execPrice
		}
	}

	if s.currentMonth == 0 {
		s.currentMonth = int(ts.Month())
	}

	log.Info().Float64("size", execSize).Float64("price", execPrice).
		Float64("total_size", s.position.Size).
		Float64("avg_entry", s.position.AvgEntryPrice).Msg("BUY executed")
}

// targetSize returns the units to add so the position value reaches the
// target fraction of total portfolio value. Never negative: an overweight
// book yields 0, not a trim.
func (s *AdaptiveAllocation) targetSize(p *Portfolio, price float64) float64 {
	if price <= 0 {
		return 0
	}

	targetValue := p.Equity(price) * s.cfg.TargetAllocationPct
	currentValue := p.Quantity * price

	addValue := targetValue - currentValue
	if addValue <= 0 {
		return 0
	}
	return addValue / price
}

// updatePeak tracks the highest price seen since entry. Runs every bar so
// the trailing stop reference is current even when no exit fires.
func (s *AdaptiveAllocation) updatePeak(price float64) {
	if s.position == nil {
		s.peak = 0
		return
	}
	if s.peak == 0 || price > s.peak {
		s.peak = price
	}
}

// riskExit checks the catastrophic exits: hard stop from entry first, then
// trailing stop from peak.
func (s *AdaptiveAllocation) riskExit(price float64) (bool, string) {
	if s.position == nil || s.position.AvgEntryPrice <= 0 {
		return false, ""
	}

	entry := s.position.AvgEntryPrice
	gainFromEntry := (price - entry) / entry

	if gainFromEntry <= -s.cfg.HardStopLossPct {
		return true, fmt.Sprintf("Hard stop loss: %.2f%% from entry", gainFromEntry*100)
	}

	if s.peak > 0 {
		dropFromPeak := (s.peak - price) / s.peak
		if dropFromPeak >= s.cfg.TrailingStopPct {
			return true, fmt.Sprintf("Trailing stop: price off peak by %.2f%%, gain from entry %.2f%%",
				dropFromPeak*100, gainFromEntry*100)
		}
	}

	return false, ""
}

// shouldRebalance fires at most once per calendar month, on a bar landing
// exactly on day 1, hour 0 of a new month. A later bar (day > 1) rolls the
// month forward and clears the flag; a rebalance missed because no such bar
// existed is not retried that month.
func (s *AdaptiveAllocation) shouldRebalance(ts time.Time) bool {
	if !s.cfg.MonthlyRebalance || s.position == nil {
		return false
	}

	month := int(ts.Month())
	day := ts.Day()
	hour := ts.Hour()

	if s.currentMonth == 0 {
		s.currentMonth = month
		s.rebalanced = false
		return false
	}

	if month != s.currentMonth && day == 1 && hour == 0 && !s.rebalanced {
		return true
	}

	if month != s.currentMonth && day > 1 {
		s.currentMonth = month
		s.rebalanced = false
	}

	return false
}

func (s *AdaptiveAllocation) recordPrice(price float64) {
	if len(s.history) == historyCap {
		copy(s.history, s.history[1:])
		s.history = s.history[:historyCap-1]
	}
	s.history = append(s.history, price)
}
