package strategy

import "time"

// Position is the strategy's own record of an open holding. It exists only
// while the strategy is long; a flat book is represented by a nil pointer.
// Top-ups merge into it via a size-weighted average entry price.
type Position struct {
	AvgEntryPrice float64   `json:"avg_entry_price"`
	Size          float64   `json:"size"`
	UpdatedAt     time.Time `json:"updated_at"`
	Value         float64   `json:"value"`
}
