// Package journal persists trade fills and equity points produced by a
// backtest or live run. Writes are best effort from the caller's point of
// view: a journaling failure must never change a trading decision.
package journal

import "time"

// TradeRecord is one executed fill. Records are append-only and ordered by
// execution time.
type TradeRecord struct {
	TradeID    string
	Symbol     string
	Side       string // "buy" or "sell"
	Time       time.Time
	Price      float64
	Size       float64
	Notional   float64
	Commission float64
	Reason     string
}

// EquityRecord is one mark-to-market observation, appended once per bar.
type EquityRecord struct {
	Time          time.Time
	Symbol        string
	Equity        float64
	Cash          float64
	PositionValue float64
	Price         float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquityRecord) error
	Close() error
}
