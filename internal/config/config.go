// Package config provides configuration management for the options desk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all desk configuration. It is supplied at construction
// and treated as read-only afterwards.
type Config struct {
	Market     MarketConfig     `mapstructure:"market"`
	Volatility VolatilityConfig `mapstructure:"volatility"`
	Pricing    PricingConfig    `mapstructure:"pricing"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Risk       RiskConfig       `mapstructure:"risk"`
	Desk       DeskConfig       `mapstructure:"desk"`
	Journal    JournalConfig    `mapstructure:"journal"`
}

// ExpiryConfig describes one tradeable expiry and its strike ladder.
type ExpiryConfig struct {
	Minutes int     `mapstructure:"minutes"`
	Label   string  `mapstructure:"label"`
	NumITM  int     `mapstructure:"num_itm"`
	NumOTM  int     `mapstructure:"num_otm"`
	StepPct float64 `mapstructure:"step_pct"`
}

// MarketConfig holds instrument parameters.
type MarketConfig struct {
	Symbol         string         `mapstructure:"symbol"`
	Expiries       []ExpiryConfig `mapstructure:"expiries"`
	StrikeRounding float64        `mapstructure:"strike_rounding"`
}

// VolatilityConfig holds estimator parameters.
type VolatilityConfig struct {
	DefaultVol          float64 `mapstructure:"default_vol"`
	MinVol              float64 `mapstructure:"min_vol"`
	MaxVol              float64 `mapstructure:"max_vol"`
	EWMAAlpha           float64 `mapstructure:"ewma_alpha"`
	TickIntervalSeconds float64 `mapstructure:"tick_interval_seconds"`
	HistoryCapacity     int     `mapstructure:"history_capacity"`
}

// PricingConfig holds option pricing parameters.
type PricingConfig struct {
	ContractSizeBTC     float64 `mapstructure:"contract_size_btc"`
	RiskFreeRate        float64 `mapstructure:"risk_free_rate"`
	ATMBandPct          float64 `mapstructure:"atm_band_pct"`
	ITMDeltaFloor       float64 `mapstructure:"itm_delta_floor"`
	AlphaEnabled        bool    `mapstructure:"alpha_enabled"`
	AlphaBaseAdjustment float64 `mapstructure:"alpha_base_adjustment"`
}

// LedgerConfig holds execution and mark-to-market parameters.
type LedgerConfig struct {
	InitialBalanceBTC    float64 `mapstructure:"initial_balance_btc"`
	NakedSellMarginRate  float64 `mapstructure:"naked_sell_margin_rate"`
	TimeValueRate        float64 `mapstructure:"time_value_rate"`
	GreeksRefreshSeconds float64 `mapstructure:"greeks_refresh_seconds"`
}

// RiskConfig holds portfolio risk thresholds.
type RiskConfig struct {
	MaxPortfolioDelta     float64 `mapstructure:"max_portfolio_delta"`
	MaintenanceMarginRate float64 `mapstructure:"maintenance_margin_rate"`
}

// DeskConfig holds orchestration timing.
type DeskConfig struct {
	CycleIntervalSeconds  float64 `mapstructure:"cycle_interval_seconds"`
	FirstPriceWaitSeconds float64 `mapstructure:"first_price_wait_seconds"`
}

// JournalConfig holds the optional trade journal settings.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Default returns the desk's default configuration.
func Default() *Config {
	return &Config{
		Market: MarketConfig{
			Symbol: "BTC-USD",
			Expiries: []ExpiryConfig{
				{Minutes: 120, Label: "2H", NumITM: 7, NumOTM: 7, StepPct: 0.015},
				{Minutes: 240, Label: "4H", NumITM: 5, NumOTM: 5, StepPct: 0.02},
				{Minutes: 480, Label: "8H", NumITM: 5, NumOTM: 5, StepPct: 0.03},
				{Minutes: 720, Label: "12H", NumITM: 4, NumOTM: 4, StepPct: 0.04},
			},
			StrikeRounding: 10,
		},
		Volatility: VolatilityConfig{
			DefaultVol:          0.70,
			MinVol:              0.10,
			MaxVol:              3.00,
			EWMAAlpha:           0.06,
			TickIntervalSeconds: 2,
			HistoryCapacity:     1000,
		},
		Pricing: PricingConfig{
			ContractSizeBTC:     0.01,
			RiskFreeRate:        0.05,
			ATMBandPct:          0.005,
			ITMDeltaFloor:       0.7,
			AlphaEnabled:        true,
			AlphaBaseAdjustment: 0.05,
		},
		Ledger: LedgerConfig{
			InitialBalanceBTC:    0.01,
			NakedSellMarginRate:  0.10,
			TimeValueRate:        0.1,
			GreeksRefreshSeconds: 5,
		},
		Risk: RiskConfig{
			MaxPortfolioDelta:     0.2,
			MaintenanceMarginRate: 0.005,
		},
		Desk: DeskConfig{
			CycleIntervalSeconds:  1,
			FirstPriceWaitSeconds: 10,
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    filepath.Join(DefaultConfigDir(), "journal.db"),
		},
	}
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/atticus"
	}
	return filepath.Join(home, ".config", "atticus")
}

// Load loads configuration from the specified directory, layering file
// values over defaults. If configDir is empty, uses the default
// directory; a missing config file is not an error.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
	} else if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ATTICUS_SYMBOL"); v != "" {
		cfg.Market.Symbol = v
	}
	if v := os.Getenv("ATTICUS_JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
		cfg.Journal.Enabled = true
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Market.Expiries) == 0 {
		return fmt.Errorf("at least one expiry must be configured")
	}
	for _, e := range c.Market.Expiries {
		if e.Minutes <= 0 {
			return fmt.Errorf("expiry minutes must be positive, got %d", e.Minutes)
		}
		if e.StepPct <= 0 {
			return fmt.Errorf("strike step_pct must be positive for expiry %d", e.Minutes)
		}
	}
	if c.Market.StrikeRounding <= 0 {
		return fmt.Errorf("strike_rounding must be positive")
	}
	if c.Volatility.MinVol <= 0 || c.Volatility.MaxVol < c.Volatility.MinVol {
		return fmt.Errorf("volatility bounds invalid: min=%.4f max=%.4f",
			c.Volatility.MinVol, c.Volatility.MaxVol)
	}
	if c.Volatility.DefaultVol < c.Volatility.MinVol || c.Volatility.DefaultVol > c.Volatility.MaxVol {
		return fmt.Errorf("default_vol %.4f outside [min_vol, max_vol]", c.Volatility.DefaultVol)
	}
	if c.Volatility.TickIntervalSeconds <= 0 {
		return fmt.Errorf("tick_interval_seconds must be positive")
	}
	if c.Pricing.ContractSizeBTC <= 0 {
		return fmt.Errorf("contract_size_btc must be positive")
	}
	if c.Ledger.NakedSellMarginRate <= 0 || c.Ledger.NakedSellMarginRate > 1 {
		return fmt.Errorf("naked_sell_margin_rate must be in (0,1]")
	}
	if c.Risk.MaxPortfolioDelta <= 0 {
		return fmt.Errorf("max_portfolio_delta must be positive")
	}
	return nil
}

// Expiry returns the expiry configuration for the given minutes.
func (c *Config) Expiry(minutes int) (ExpiryConfig, bool) {
	for _, e := range c.Market.Expiries {
		if e.Minutes == minutes {
			return e, true
		}
	}
	return ExpiryConfig{}, false
}

// ExpiryMinutes lists the configured expiries in minutes.
func (c *Config) ExpiryMinutes() []int {
	out := make([]int, 0, len(c.Market.Expiries))
	for _, e := range c.Market.Expiries {
		out = append(out, e.Minutes)
	}
	return out
}

// ExpiryLabel returns the display label for an expiry.
func (c *Config) ExpiryLabel(minutes int) string {
	if e, ok := c.Expiry(minutes); ok && e.Label != "" {
		return e.Label
	}
	return fmt.Sprintf("%dM", minutes)
}

// GreeksRefreshInterval returns the throttle on greeks refresh.
func (c *Config) GreeksRefreshInterval() time.Duration {
	return time.Duration(c.Ledger.GreeksRefreshSeconds * float64(time.Second))
}

// CycleInterval returns the periodic cycle interval.
func (c *Config) CycleInterval() time.Duration {
	return time.Duration(c.Desk.CycleIntervalSeconds * float64(time.Second))
}

// FirstPriceWait returns how long to wait for the first valid price.
func (c *Config) FirstPriceWait() time.Duration {
	return time.Duration(c.Desk.FirstPriceWaitSeconds * float64(time.Second))
}
