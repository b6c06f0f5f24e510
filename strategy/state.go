package strategy

import (
	"encoding/json"
	"fmt"
	"os"
)

// State is the full persistable snapshot of an AdaptiveAllocation engine:
// everything that must survive a process restart in live operation. It
// serializes to a flat JSON record.
type State struct {
	Position               *Position `json:"position"`
	HighestPriceSinceEntry float64   `json:"highest_price_since_entry"`
	PriceHistory           []float64 `json:"price_history"`
	CurrentMonth           int       `json:"current_month"`
	RebalancedThisMonth    bool      `json:"rebalanced_this_month"`
}

// ExportState copies out the complete engine state.
func (s *AdaptiveAllocation) ExportState() State {
	st := State{
		HighestPriceSinceEntry: s.peak,
		PriceHistory:           append([]float64(nil), s.history...),
		CurrentMonth:           s.currentMonth,
		RebalancedThisMonth:    s.rebalanced,
	}
	if s.position != nil {
		pos := *s.position
		st.Position = &pos
	}
	return st
}

// ImportState fully replaces the engine state. The price history is
// re-bounded to the engine's fixed capacity, keeping the newest entries.
func (s *AdaptiveAllocation) ImportState(st State) {
	s.position = nil
	if st.Position != nil {
		pos := *st.Position
		s.position = &pos
	}

	s.peak = st.HighestPriceSinceEntry
	s.currentMonth = st.CurrentMonth
	s.rebalanced = st.RebalancedThisMonth

	hist := st.PriceHistory
	if len(hist) > historyCap {
		hist = hist[len(hist)-historyCap:]
	}
	s.history = make([]float64, 0, historyCap)
	s.history = append(s.history, hist...)
}

// SaveStateFile writes a state snapshot as JSON.
func SaveStateFile(path string, st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// LoadStateFile reads a state snapshot written by SaveStateFile.
func LoadStateFile(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, fmt.Errorf("read state file: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("parse state file: %w", err)
	}
	return st, nil
}
