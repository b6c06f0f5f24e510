package strategy

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/alloctrend/market"
)

// Strategy is the per-bar decision interface the backtest and live loops
// drive. GenerateSignal is called once per bar; OnTrade is called by the
// execution layer after each fill.
type Strategy interface {
	GenerateSignal(snap market.Snapshot, portfolio *Portfolio) Signal
	OnTrade(sig Signal, execPrice, execSize float64, ts time.Time)
}

// ByName builds a strategy from an explicit factory table. No global
// registry: every runnable strategy is listed right here.
func ByName(name string, cfg Config) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "noop", "none":
		return NoopStrategy{}, nil

	case "adaptive-allocation", "adaptive_allocation", "adaptive":
		return NewAdaptiveAllocation(cfg), nil

	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: noop, adaptive-allocation)", name)
	}
}

// NoopStrategy holds forever. Useful as a baseline and in tests.
type NoopStrategy struct{}

func (NoopStrategy) GenerateSignal(market.Snapshot, *Portfolio) Signal {
	return hold("noop")
}

func (NoopStrategy) OnTrade(Signal, float64, float64, time.Time) {}
