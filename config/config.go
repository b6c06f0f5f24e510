package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/alloctrend/strategy"
)

// Config represents the complete run configuration
type Config struct {
	Account  AccountConfig   `json:"account" yaml:"account"`
	Strategy StrategyConfig  `json:"strategy" yaml:"strategy"`
	Backtest BacktestConfig  `json:"backtest" yaml:"backtest"`
	Journal  JournalConfig   `json:"journal" yaml:"journal"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	Cash float64 `json:"cash" yaml:"cash"`
}

// StrategyConfig selects and parameterizes the strategy
type StrategyConfig struct {
	Name                string  `json:"name" yaml:"name"`
	EMALongPeriod       int     `json:"ema_long_period" yaml:"ema_long_period"`
	TargetAllocationPct float64 `json:"target_allocation_pct" yaml:"target_allocation_pct"`
	MinNotional         float64 `json:"min_notional" yaml:"min_notional"`
	HardStopLossPct     float64 `json:"hard_stop_loss_pct" yaml:"hard_stop_loss_pct"`
	TrailingStopPct     float64 `json:"trailing_stop_pct" yaml:"trailing_stop_pct"`
	MonthlyRebalance    bool    `json:"monthly_rebalance" yaml:"monthly_rebalance"`
}

// Params converts the loaded values into the strategy's own config type.
func (sc StrategyConfig) Params() strategy.Config {
	return strategy.Config{
		EMALongPeriod:       sc.EMALongPeriod,
		TargetAllocationPct: sc.TargetAllocationPct,
		MinNotional:         sc.MinNotional,
		HardStopLossPct:     sc.HardStopLossPct,
		TrailingStopPct:     sc.TrailingStopPct,
		MonthlyRebalance:    sc.MonthlyRebalance,
	}
}

// BarsSource names one symbol's historical bar file.
type BarsSource struct {
	Symbol string `json:"symbol" yaml:"symbol"`
	Path   string `json:"path" yaml:"path"`
}

// BacktestConfig contains simulation parameters
type BacktestConfig struct {
	Bars           []BarsSource `json:"bars" yaml:"bars"`
	CommissionRate float64      `json:"commission_rate" yaml:"commission_rate"`
	ResultsFile    string       `json:"results_file,omitempty" yaml:"results_file,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on content)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Cash <= 0 {
		return fmt.Errorf("account.cash must be positive")
	}
	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	if err := c.Strategy.Params().Validate(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if len(c.Backtest.Bars) == 0 {
		return fmt.Errorf("backtest.bars must list at least one symbol")
	}
	for _, b := range c.Backtest.Bars {
		if b.Symbol == "" || b.Path == "" {
			return fmt.Errorf("backtest.bars entries need both symbol and path")
		}
	}
	if c.Backtest.CommissionRate < 0 || c.Backtest.CommissionRate >= 1 {
		return fmt.Errorf("backtest.commission_rate must be in [0,1)")
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "none", "":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	sp := strategy.DefaultConfig()
	return &Config{
		Account: AccountConfig{
			Cash: 10000,
		},
		Strategy: StrategyConfig{
			Name:                "adaptive-allocation",
			EMALongPeriod:       sp.EMALongPeriod,
			TargetAllocationPct: sp.TargetAllocationPct,
			MinNotional:         sp.MinNotional,
			HardStopLossPct:     sp.HardStopLossPct,
			TrailingStopPct:     sp.TrailingStopPct,
			MonthlyRebalance:    sp.MonthlyRebalance,
		},
		Backtest: BacktestConfig{
			Bars: []BarsSource{
				{Symbol: "BTC-USD", Path: "./data/btc-usd-1h.csv"},
			},
			CommissionRate: 0.001,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./backtest.sqlite",
		},
	}
}
