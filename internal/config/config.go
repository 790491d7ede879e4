package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName        string `mapstructure:"app_name"`
	Env            string `mapstructure:"app_env"`
	LogLevel       string `mapstructure:"log_level"`
	SourcesFile    string `mapstructure:"sources_file"`
	PublishersFile string `mapstructure:"publishers_file"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`

	Bankroll            float64 `mapstructure:"bankroll"`
	MinProfitPercentage float64 `mapstructure:"min_profit_percentage"`
	MaxStake            float64 `mapstructure:"max_stake"`
	MinLiquidityRatio   float64 `mapstructure:"min_liquidity_ratio"`
	KellyFraction       float64 `mapstructure:"kelly_fraction"`
	MaxExposureRatio    float64 `mapstructure:"max_exposure_ratio"`
	MinProfitRate       float64 `mapstructure:"min_profit_rate"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "odds-tracker")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("sources_file", "./configs/sources.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/opportunities.db")
	v.SetDefault("storage_ttl_seconds", int64((30*time.Minute)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64(time.Hour/time.Second))
	v.SetDefault("bankroll", 10000.0)
	v.SetDefault("min_profit_percentage", 1.0)
	v.SetDefault("max_stake", 1000.0)
	v.SetDefault("min_liquidity_ratio", 2.0)
	v.SetDefault("kelly_fraction", 0.5)
	v.SetDefault("max_exposure_ratio", 0.25)
	v.SetDefault("min_profit_rate", 0.002)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.StorageTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	if cfg.Bankroll <= 0 {
		return nil, fmt.Errorf("invalid bankroll (must be positive)")
	}
	if cfg.KellyFraction <= 0 || cfg.KellyFraction > 1 {
		return nil, fmt.Errorf("invalid kelly_fraction (must be in (0, 1])")
	}
	if cfg.MaxExposureRatio <= 0 || cfg.MaxExposureRatio > 1 {
		return nil, fmt.Errorf("invalid max_exposure_ratio (must be in (0, 1])")
	}
	if cfg.MinProfitRate < 0 {
		return nil, fmt.Errorf("invalid min_profit_rate (must not be negative)")
	}

	return &cfg, nil
}
