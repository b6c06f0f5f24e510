package strategy

// Action is the decision a strategy emits for one bar.
type Action string

const (
	Buy  Action = "buy"
	Sell Action = "sell"
	Hold Action = "hold"
)

// Signal is the per-bar output of a strategy. Size is in units of the
// asset. EntryPrice is advisory and only set on buys.
type Signal struct {
	Action     Action
	Size       float64
	Reason     string
	EntryPrice float64
}

func hold(reason string) Signal {
	return Signal{Action: Hold, Reason: reason}
}

// Portfolio is a single-asset account ledger. Only the execution layer
// mutates it; strategies read it to size orders.
type Portfolio struct {
	Symbol   string
	Cash     float64
	Quantity float64
}

// Equity marks the portfolio to market at the given price.
func (p *Portfolio) Equity(price float64) float64 {
	return p.Cash + p.Quantity*price
}
