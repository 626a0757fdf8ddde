// Package config defines all configuration for the keeper daemon.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via OILP_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Oracle  OracleConfig  `mapstructure:"oracle"`
	Markets []MarketSeed  `mapstructure:"markets"`
	Keeper  KeeperConfig  `mapstructure:"keeper"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// OracleConfig configures the primary/backup feed clients and the
// fallback chain's validation thresholds.
type OracleConfig struct {
	PrimaryBaseURL    string            `mapstructure:"primary_base_url"`
	BackupBaseURL     string            `mapstructure:"backup_base_url"`
	BackupAPIKey      string            `mapstructure:"backup_api_key"`
	FeedIDs           map[string]string `mapstructure:"feed_ids"`            // commodity -> primary hex feed id
	BackupSymbols     map[string]string `mapstructure:"backup_symbols"`      // commodity -> backup symbol
	RefreshInterval   time.Duration     `mapstructure:"refresh_interval"`    // tick period, default 5s
	RequestTimeout    time.Duration     `mapstructure:"request_timeout"`     // default 10s
	MaxStalenessSecs  int64             `mapstructure:"max_staleness_secs"`  // dev 86400, prod 60
	MaxDeviationBps   uint64            `mapstructure:"max_deviation_bps"`   // default 500
	CacheValiditySecs int64             `mapstructure:"cache_validity_secs"` // how long a cached price may still be served
	SimulatedBases    map[string]uint64 `mapstructure:"simulated_bases"`     // commodity -> base price (6-dec) for unconfigured feeds
}

// MarketSeed describes a market to initialize at startup; mirrors the
// initialize_market parameter set.
type MarketSeed struct {
	Commodity            string `mapstructure:"commodity"`
	CollateralAsset      string `mapstructure:"collateral_asset"`
	MaxLeverage          uint64 `mapstructure:"max_leverage"`
	InitialMarginRatioBp uint64 `mapstructure:"initial_margin_ratio_bp"`
	MaintMarginRatioBp   uint64 `mapstructure:"maintenance_margin_ratio_bp"`
	TakerFeeBp           uint64 `mapstructure:"taker_fee_bp"`
	MakerFeeBp           uint64 `mapstructure:"maker_fee_bp"`
	LiquidationFeeBp     uint64 `mapstructure:"liquidation_fee_bp"`
	MaxOpenInterest      uint64 `mapstructure:"max_open_interest"`
	FundingIntervalSecs  int64  `mapstructure:"funding_interval_secs"`
}

// KeeperConfig tunes the funding and liquidation control loops.
//
//   - FundingTick: how often the funding keeper wakes (default 60s).
//   - LiquidationTick: how often the liquidation keeper wakes (default 10s).
//   - MaxConsecutiveErrors: error count before backing off.
//   - FundingBackoff / LiquidationBackoff: sleep duration after the
//     backoff threshold is hit; the counter resets afterward.
type KeeperConfig struct {
	FundingTick          time.Duration `mapstructure:"funding_tick"`
	LiquidationTick      time.Duration `mapstructure:"liquidation_tick"`
	MaxConsecutiveErrors int           `mapstructure:"max_consecutive_errors"`
	FundingBackoff       time.Duration `mapstructure:"funding_backoff"`
	LiquidationBackoff   time.Duration `mapstructure:"liquidation_backoff"`
}

// StoreConfig sets where records are persisted (JSON files).
type StoreConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: OILP_BACKUP_API_KEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("OILP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("OILP_BACKUP_API_KEY"); key != "" {
		cfg.Oracle.BackupAPIKey = key
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Oracle.PrimaryBaseURL == "" {
		return fmt.Errorf("oracle.primary_base_url is required")
	}
	if c.Oracle.MaxDeviationBps == 0 {
		c.Oracle.MaxDeviationBps = 500
	}
	if c.Oracle.MaxStalenessSecs == 0 {
		return fmt.Errorf("oracle.max_staleness_secs is required")
	}
	if c.Oracle.RefreshInterval == 0 {
		c.Oracle.RefreshInterval = 5 * time.Second
	}
	if c.Oracle.RequestTimeout == 0 {
		c.Oracle.RequestTimeout = 10 * time.Second
	}
	if len(c.Markets) == 0 {
		return fmt.Errorf("at least one market must be configured")
	}
	for i, m := range c.Markets {
		if m.Commodity == "" {
			return fmt.Errorf("markets[%d].commodity is required", i)
		}
		if len(m.Commodity) > 8 {
			return fmt.Errorf("markets[%d].commodity must be <= 8 bytes", i)
		}
		if m.MaxLeverage == 0 || m.MaxLeverage > 100_000 {
			return fmt.Errorf("markets[%d].max_leverage must be in (0, 100000]", i)
		}
		if m.InitialMarginRatioBp <= m.MaintMarginRatioBp || m.MaintMarginRatioBp == 0 {
			return fmt.Errorf("markets[%d]: initial_margin_ratio_bp must exceed maintenance_margin_ratio_bp > 0", i)
		}
		if m.FundingIntervalSecs <= 0 {
			return fmt.Errorf("markets[%d].funding_interval_secs must be > 0", i)
		}
	}
	if c.Keeper.FundingTick == 0 {
		c.Keeper.FundingTick = 60 * time.Second
	}
	if c.Keeper.LiquidationTick == 0 {
		c.Keeper.LiquidationTick = 10 * time.Second
	}
	if c.Keeper.MaxConsecutiveErrors == 0 {
		c.Keeper.MaxConsecutiveErrors = 5
	}
	if c.Keeper.FundingBackoff == 0 {
		c.Keeper.FundingBackoff = 300 * time.Second
	}
	if c.Keeper.LiquidationBackoff == 0 {
		c.Keeper.LiquidationBackoff = 60 * time.Second
	}
	if c.Store.DataDir == "" {
		return fmt.Errorf("store.data_dir is required")
	}
	return nil
}
