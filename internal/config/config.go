// Package config provides configuration management for the sniper application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Trading  TradingConfig  `mapstructure:"trading"`
	Capital  CapitalConfig  `mapstructure:"capital"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Scanner  ScannerConfig  `mapstructure:"scanner"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// TradingConfig holds trading-related configuration.
type TradingConfig struct {
	Mode             string  `mapstructure:"mode"` // "live", "paper"
	SlippageBps      int     `mapstructure:"slippage_bps"`
	PriorityFee      float64 `mapstructure:"priority_fee"`
	RPCURL           string  `mapstructure:"rpc_url"`
	WalletPrivateKey string  `mapstructure:"wallet_private_key" json:"-"` // base58, usually via env
}

// CapitalConfig seeds the capital ledger.
type CapitalConfig struct {
	TotalCapital        float64 `mapstructure:"total_capital"` // SOL
	MaxPositionFraction float64 `mapstructure:"max_position_fraction"`
	RiskBudget          float64 `mapstructure:"risk_budget"`
	MaxActivePositions  int     `mapstructure:"max_active_positions"`
}

// EngineConfig holds the adaptive decision engine's tuning parameters.
// Defaults are the values the pipeline was tuned with; every one of them
// is a knob, not a constant.
type EngineConfig struct {
	DefaultThreshold int     `mapstructure:"default_threshold"`
	ThresholdFloor   int     `mapstructure:"threshold_floor"`
	ThresholdCeiling int     `mapstructure:"threshold_ceiling"`
	MinConfidence    int     `mapstructure:"min_confidence"`
	RiskCeiling      int     `mapstructure:"risk_ceiling"`
	AdjustStep       int     `mapstructure:"adjust_step"`
	HistorySize      int     `mapstructure:"history_size"`
	WindowSize       int     `mapstructure:"window_size"`
	MinHistory       int     `mapstructure:"min_history"`
	BuyRatioUpper    float64 `mapstructure:"buy_ratio_upper"`
	BuyRatioLower    float64 `mapstructure:"buy_ratio_lower"`
}

// QueueConfig holds dedup and priority queue configuration.
type QueueConfig struct {
	HighDelay          time.Duration `mapstructure:"high_delay"`
	MediumDelay        time.Duration `mapstructure:"medium_delay"`
	LowDelay           time.Duration `mapstructure:"low_delay"`
	BatchSize          int           `mapstructure:"batch_size"`
	Retention          time.Duration `mapstructure:"retention"`
	DiscoveryRetention time.Duration `mapstructure:"discovery_retention"`
}

// ExecutorConfig holds execution coordinator configuration.
type ExecutorConfig struct {
	MaxAttemptsPerVenue int           `mapstructure:"max_attempts_per_venue"`
	BackoffBase         time.Duration `mapstructure:"backoff_base"`
	BackoffMax          time.Duration `mapstructure:"backoff_max"`
	MinOutputFraction   float64       `mapstructure:"min_output_fraction"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	ConfirmTimeout      time.Duration `mapstructure:"confirm_timeout"`
}

// ScannerConfig holds discovery scanner configuration.
type ScannerConfig struct {
	HuntInterval    time.Duration `mapstructure:"hunt_interval"`
	DrainInterval   time.Duration `mapstructure:"drain_interval"`
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	DexScreenerURL  string        `mapstructure:"dexscreener_url"`
	PumpFunWSURL    string        `mapstructure:"pumpfun_ws_url"`
	BirdeyeAPIKey   string        `mapstructure:"birdeye_api_key"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/alpha-sniper"
	}
	return filepath.Join(home, ".config", "alpha-sniper")
}

// Default returns a configuration populated with the pipeline's defaults.
func Default() *Config {
	return &Config{
		Trading: TradingConfig{
			Mode:        "paper",
			SlippageBps: 250,
			PriorityFee: 0.0001,
			RPCURL:      "https://api.mainnet-beta.solana.com",
		},
		Capital: CapitalConfig{
			TotalCapital:        10,
			MaxPositionFraction: 0.15,
			RiskBudget:          0.5,
			MaxActivePositions:  5,
		},
		Engine: EngineConfig{
			DefaultThreshold: 75,
			ThresholdFloor:   65,
			ThresholdCeiling: 85,
			MinConfidence:    50,
			RiskCeiling:      80,
			AdjustStep:       2,
			HistorySize:      100,
			WindowSize:       20,
			MinHistory:       10,
			BuyRatioUpper:    0.8,
			BuyRatioLower:    0.6,
		},
		Queue: QueueConfig{
			HighDelay:          30 * time.Second,
			MediumDelay:        60 * time.Second,
			LowDelay:           120 * time.Second,
			BatchSize:          3,
			Retention:          time.Hour,
			DiscoveryRetention: 4 * time.Hour,
		},
		Executor: ExecutorConfig{
			MaxAttemptsPerVenue: 3,
			BackoffBase:         500 * time.Millisecond,
			BackoffMax:          10 * time.Second,
			MinOutputFraction:   0.9,
			RequestTimeout:      10 * time.Second,
			ConfirmTimeout:      60 * time.Second,
		},
		Scanner: ScannerConfig{
			HuntInterval:    30 * time.Second,
			DrainInterval:   10 * time.Second,
			MonitorInterval: 15 * time.Second,
			CleanupInterval: 5 * time.Minute,
			DexScreenerURL:  "https://api.dexscreener.com",
			PumpFunWSURL:    "wss://pumpportal.fun/api/data",
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: ":9187",
		},
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config file yields the defaults.
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
			return nil, fmt.Errorf("loading config.toml: %w", err)
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
	if v := os.Getenv("BIRDEYE_API_KEY"); v != "" {
		cfg.Scanner.BirdeyeAPIKey = v
	}
	if v := os.Getenv("TRADING_MODE"); v != "" {
		cfg.Trading.Mode = v
	}
	if v := os.Getenv("SOLANA_RPC_URL"); v != "" {
		cfg.Trading.RPCURL = v
	}
	if v := os.Getenv("WALLET_PRIVATE_KEY"); v != "" {
		cfg.Trading.WalletPrivateKey = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Trading.Mode != "" && c.Trading.Mode != "live" && c.Trading.Mode != "paper" {
		return fmt.Errorf("invalid trading mode: %s (must be 'live' or 'paper')", c.Trading.Mode)
	}
	if c.Capital.TotalCapital <= 0 {
		return fmt.Errorf("total_capital must be positive")
	}
	if c.Capital.MaxPositionFraction <= 0 || c.Capital.MaxPositionFraction > 1 {
		return fmt.Errorf("max_position_fraction must be in (0, 1]")
	}
	if c.Capital.MaxActivePositions <= 0 {
		return fmt.Errorf("max_active_positions must be positive")
	}
	if c.Engine.ThresholdFloor > c.Engine.ThresholdCeiling {
		return fmt.Errorf("threshold_floor %d above threshold_ceiling %d",
			c.Engine.ThresholdFloor, c.Engine.ThresholdCeiling)
	}
	if c.Engine.DefaultThreshold < c.Engine.ThresholdFloor || c.Engine.DefaultThreshold > c.Engine.ThresholdCeiling {
		return fmt.Errorf("default_threshold %d outside [%d, %d]",
			c.Engine.DefaultThreshold, c.Engine.ThresholdFloor, c.Engine.ThresholdCeiling)
	}
	if c.Engine.BuyRatioLower >= c.Engine.BuyRatioUpper {
		return fmt.Errorf("buy_ratio_lower must be below buy_ratio_upper")
	}
	if c.Queue.BatchSize <= 0 {
		return fmt.Errorf("queue batch_size must be positive")
	}
	if c.Executor.MaxAttemptsPerVenue <= 0 {
		return fmt.Errorf("max_attempts_per_venue must be positive")
	}
	if c.Executor.MinOutputFraction <= 0 || c.Executor.MinOutputFraction > 1 {
		return fmt.Errorf("min_output_fraction must be in (0, 1]")
	}
	return nil
}

// IsPaperMode returns true if paper trading mode is enabled.
func (c *Config) IsPaperMode() bool {
	return c.Trading.Mode != "live"
}
