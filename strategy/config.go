package strategy

import "fmt"

// Allocation above this fraction of the portfolio is never targeted.
const maxTargetAllocation = 0.55

// Config holds the adaptive-allocation strategy parameters.
//
// Non-positive numeric fields are replaced with their defaults at
// construction, and TargetAllocationPct is clamped to maxTargetAllocation.
// The zero value of MonthlyRebalance disables the monthly exit; start from
// DefaultConfig to get the stock behavior.
type Config struct {
	EMALongPeriod       int     `json:"ema_long_period" yaml:"ema_long_period"`
	TargetAllocationPct float64 `json:"target_allocation_pct" yaml:"target_allocation_pct"`
	MinNotional         float64 `json:"min_notional" yaml:"min_notional"`
	HardStopLossPct     float64 `json:"hard_stop_loss_pct" yaml:"hard_stop_loss_pct"`
	TrailingStopPct     float64 `json:"trailing_stop_pct" yaml:"trailing_stop_pct"`
	MonthlyRebalance    bool    `json:"monthly_rebalance" yaml:"monthly_rebalance"`
}

// DefaultConfig returns the stock parameter set: 55% target allocation,
// wide catastrophic stops (45% from entry, 40% from peak) and a monthly
// rebalance exit.
func DefaultConfig() Config {
	return Config{
		EMALongPeriod:       200,
		TargetAllocationPct: 0.55,
		MinNotional:         10.0,
		HardStopLossPct:     0.45,
		TrailingStopPct:     0.40,
		MonthlyRebalance:    true,
	}
}

func (c *Config) normalize() {
	d := DefaultConfig()

	if c.EMALongPeriod <= 0 {
		c.EMALongPeriod = d.EMALongPeriod
	}
	if c.TargetAllocationPct <= 0 {
		c.TargetAllocationPct = d.TargetAllocationPct
	}
	if c.TargetAllocationPct > maxTargetAllocation {
		c.TargetAllocationPct = maxTargetAllocation
	}
	if c.MinNotional <= 0 {
		c.MinNotional = d.MinNotional
	}
	if c.HardStopLossPct <= 0 {
		c.HardStopLossPct = d.HardStopLossPct
	}
	if c.TrailingStopPct <= 0 {
		c.TrailingStopPct = d.TrailingStopPct
	}
}

// Validate rejects parameter combinations that cannot produce a sane run.
func (c Config) Validate() error {
	if c.TargetAllocationPct < 0 || c.TargetAllocationPct > 1 {
		return fmt.Errorf("target_allocation_pct must be in [0,1], got %v", c.TargetAllocationPct)
	}
	if c.HardStopLossPct < 0 || c.HardStopLossPct > 1 {
		return fmt.Errorf("hard_stop_loss_pct must be in [0,1], got %v", c.HardStopLossPct)
	}
	if c.TrailingStopPct < 0 || c.TrailingStopPct > 1 {
		return fmt.Errorf("trailing_stop_pct must be in [0,1], got %v", c.TrailingStopPct)
	}
	if c.MinNotional < 0 {
		return fmt.Errorf("min_notional must be non-negative, got %v", c.MinNotional)
	}
	return nil
}
