package market

import "time"

// Bar is a single historical price observation: one close per interval.
// Volume is optional; feeds that don't carry it leave it zero.
type Bar struct {
	Symbol string
	Time   time.Time
	Close  float64
	Volume float64
}

// Snapshot is the market view handed to a strategy for one bar. Prices is
// the trailing window of closes ending at (and including) Price. Snapshots
// are built fresh per bar and never mutated after construction.
type Snapshot struct {
	Symbol  string
	Time    time.Time
	Price   float64
	Prices  []float64
	Volumes []float64
}
