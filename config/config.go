// Package config loads and validates the bot configuration from YAML or
// JSON files, with exchange credentials taken from the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/tradebot/market"
	"github.com/rustyeddy/tradebot/risk"
	"github.com/rustyeddy/tradebot/strategies"
)

// Config is the complete bot configuration.
type Config struct {
	Trading    TradingConfig     `json:"trading" yaml:"trading"`
	Exchange   ExchangeConfig    `json:"exchange" yaml:"exchange"`
	Risk       risk.Config       `json:"risk" yaml:"risk"`
	Strategies strategies.Config `json:"strategies" yaml:"strategies"`
	Metrics    MetricsConfig     `json:"metrics" yaml:"metrics"`
}

// TradingConfig selects the instrument, the strategy and the data cadence.
type TradingConfig struct {
	Symbol       string  `json:"symbol" yaml:"symbol"`
	Strategy     string  `json:"strategy" yaml:"strategy"`
	Interval     string  `json:"interval" yaml:"interval"`
	Limit        int     `json:"limit" yaml:"limit"`
	MaxPositions int     `json:"max_positions" yaml:"max_positions"`
	PollSeconds  float64 `json:"poll_seconds" yaml:"poll_seconds"`

	// Stream switches quote acquisition from REST polling to the exchange
	// websocket feed. Live mode only.
	Stream bool `json:"stream" yaml:"stream"`
}

// PollInterval returns the polling cadence as a duration.
func (t TradingConfig) PollInterval() time.Duration {
	return time.Duration(t.PollSeconds * float64(time.Second))
}

// ExchangeConfig selects the execution backend. Credentials are never put
// in the config file; they come from the environment (OKX_API_KEY,
// OKX_SECRET_KEY, OKX_PASSPHRASE).
type ExchangeConfig struct {
	Simulated        bool    `json:"simulated" yaml:"simulated"`
	SimulatedBalance float64 `json:"simulated_balance" yaml:"simulated_balance"`
	BaseURL          string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	TimeoutSeconds   float64 `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// Timeout returns the HTTP request timeout as a duration.
func (e ExchangeConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds * float64(time.Second))
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Listen  string `json:"listen" yaml:"listen"`
}

// LoadFromFile loads configuration from a file, YAML first with a JSON
// fallback, and validates it.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration, format chosen by file extension.
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

// Validate checks the configuration for values the engine cannot run with.
// It does not resolve the strategy name: an unknown strategy evaluates to
// HOLD at runtime, but a name that is plainly empty is rejected here.
func (c *Config) Validate() error {
	if c.Trading.Symbol == "" {
		return fmt.Errorf("trading.symbol is required")
	}
	if base, quote := market.SplitSymbol(c.Trading.Symbol); base == "" || quote == "" {
		return fmt.Errorf("trading.symbol %q must be BASE-QUOTE", c.Trading.Symbol)
	}
	if c.Trading.Strategy == "" {
		return fmt.Errorf("trading.strategy is required, one of: %s",
			strings.Join(strategies.Available(), ", "))
	}
	if c.Trading.Limit < 0 {
		return fmt.Errorf("trading.limit must not be negative")
	}
	if c.Trading.MaxPositions != 1 {
		return fmt.Errorf("trading.max_positions must be 1, portfolio trading is not supported")
	}
	if c.Trading.PollSeconds <= 0 {
		return fmt.Errorf("trading.poll_seconds must be positive")
	}
	if c.Trading.Stream && c.Exchange.Simulated {
		return fmt.Errorf("trading.stream requires a live exchange, the simulator has no websocket feed")
	}
	if c.Risk.RiskPercent <= 0 || c.Risk.RiskPercent > 100 {
		return fmt.Errorf("risk.risk_percent must be in (0, 100]")
	}
	if c.Risk.StopLoss.Enabled && c.Risk.StopLoss.Percent <= 0 {
		return fmt.Errorf("risk.stop_loss.percent must be positive when enabled")
	}
	if c.Risk.TakeProfit.Enabled && c.Risk.TakeProfit.Percent <= 0 {
		return fmt.Errorf("risk.take_profit.percent must be positive when enabled")
	}
	if c.Exchange.Simulated && c.Exchange.SimulatedBalance <= 0 {
		return fmt.Errorf("exchange.simulated_balance must be positive in simulated mode")
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen is required when metrics are enabled")
	}
	return nil
}

// Default returns a configuration that runs the simulator out of the box.
func Default() *Config {
	return &Config{
		Trading: TradingConfig{
			Symbol:       "BTC-USDT",
			Strategy:     "combined_strategy",
			Interval:     "1m",
			Limit:        500,
			MaxPositions: 1,
			PollSeconds:  30,
		},
		Exchange: ExchangeConfig{
			Simulated:        true,
			SimulatedBalance: 10000,
			TimeoutSeconds:   10,
		},
		Risk: risk.Config{
			RiskPercent: 2,
			StopLoss:    risk.Guard{Enabled: true, Percent: 2},
			TakeProfit:  risk.Guard{Enabled: true, Percent: 5},
		},
		Strategies: strategies.Defaults(),
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9090",
		},
	}
}
