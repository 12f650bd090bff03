package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME}).
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand ${VAR} placeholders before parsing.
	expanded := os.ExpandEnv(string(data))

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional
// fields. A missing config file is not an error; defaults and environment
// variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("EDGE_SCANNER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "edge-scanner")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("scanner.market_types", []string{"H2H", "SPREAD", "TOTAL", "THREE_WAY"})

	v.SetDefault("execution.impact_cap", 3.0)
	v.SetDefault("execution.impact_damping", 0.5)
	v.SetDefault("execution.medium_tier_penalty", 0.995)
	v.SetDefault("execution.low_tier_penalty", 0.990)

	v.SetDefault("arbitrage.epsilon", 0.001)
	v.SetDefault("arbitrage.total_stake", 1000)
	v.SetDefault("arbitrage.execution_window", "300s")
	v.SetDefault("arbitrage.sharpe_delta", 1e-6)

	v.SetDefault("value.min_edge", 0.05)
	v.SetDefault("value.kelly_fraction", 0.25)
	v.SetDefault("value.bankroll", 1000)
	v.SetDefault("value.execution_window", "300s")
	v.SetDefault("value.sharpe_delta", 1e-6)

	v.SetDefault("validation.max_quote_age", "60s")
	v.SetDefault("validation.min_risk_adjusted_profit", 0.005)
	v.SetDefault("validation.recheck_odds_tolerance", 5)
	v.SetDefault("validation.recheck_prob_tolerance", 0.01)

	v.SetDefault("dispatch.recheck_timeout", "4s")
	v.SetDefault("dispatch.recheck_retries", 1)
	v.SetDefault("dispatch.dedup_window", "5m")
	v.SetDefault("dispatch.fail_open_high_confidence", false)
	v.SetDefault("dispatch.max_concurrent", 8)

	v.SetDefault("feed.request_timeout", "10s")
	v.SetDefault("feed.rate_limit_per_second", 5)
	v.SetDefault("feed.rate_burst", 10)
	v.SetDefault("feed.retry_max", 3)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("schedule.scan_cron", "@every 30s")
	v.SetDefault("schedule.health_port", 8080)
}
