// Package config provides configuration management for the edge scanner.
package config

import (
	"fmt"
	"time"

	"github.com/yourusername/edge-scanner/internal/arbitrage"
	"github.com/yourusername/edge-scanner/internal/book"
	"github.com/yourusername/edge-scanner/internal/execution"
	"github.com/yourusername/edge-scanner/internal/models"
	"github.com/yourusername/edge-scanner/internal/scanner"
	"github.com/yourusername/edge-scanner/internal/validator"
	"github.com/yourusername/edge-scanner/internal/value"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig              `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig         `mapstructure:"database" validate:"required"`
	Feed       FeedConfig             `mapstructure:"feed" validate:"required"`
	Books      BooksConfig            `mapstructure:"books" validate:"required"`
	Scanner    ScannerConfig          `mapstructure:"scanner" validate:"required"`
	Execution  execution.CostConfig   `mapstructure:"execution" validate:"required"`
	Arbitrage  arbitrage.Config       `mapstructure:"arbitrage" validate:"required"`
	Value      value.Config           `mapstructure:"value" validate:"required"`
	Validation validator.Config       `mapstructure:"validation" validate:"required"`
	Dispatch   scanner.DispatchConfig `mapstructure:"dispatch" validate:"required"`
	Metrics    MetricsConfig          `mapstructure:"metrics" validate:"required"`
	Schedule   ScheduleConfig         `mapstructure:"schedule" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration. Persistence
// is optional: with Enabled false the scanner logs signals instead of
// storing them.
type DatabaseConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Host               string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required_if=Enabled true"`
	User               string `mapstructure:"user" validate:"required_if=Enabled true"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"omitempty,gt=0"`
}

// FeedConfig represents the odds provider configuration
type FeedConfig struct {
	BaseURL            string        `mapstructure:"base_url" validate:"required,url"`
	APIKey             string        `mapstructure:"api_key" validate:"required"`
	StreamURL          string        `mapstructure:"stream_url"`
	CrossValidationURL string        `mapstructure:"cross_validation_url" validate:"omitempty,url"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout" validate:"required,gt=0"`
	RateLimitPerSecond float64       `mapstructure:"rate_limit_per_second" validate:"required,gt=0"`
	RateBurst          int           `mapstructure:"rate_burst" validate:"required,gt=0"`
	RetryMax           int           `mapstructure:"retry_max" validate:"gte=0"`
}

// BooksConfig represents the sportsbook profile set
type BooksConfig struct {
	Profiles []book.Profile `mapstructure:"profiles" validate:"required,min=1,dive"`
}

// ScannerConfig represents scan orchestration configuration
type ScannerConfig struct {
	Workers     int      `mapstructure:"workers" validate:"gte=0"`
	MarketTypes []string `mapstructure:"market_types" validate:"required,min=1,markettypes"`
	Games       []string `mapstructure:"games"`
}

// Pipeline converts the section into the scanner's own configuration
func (c ScannerConfig) Pipeline() scanner.Config {
	marketTypes := make([]models.MarketType, len(c.MarketTypes))
	for i, m := range c.MarketTypes {
		marketTypes[i] = models.MarketType(m)
	}
	return scanner.Config{Workers: c.Workers, MarketTypes: marketTypes}
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// ScheduleConfig represents the scan cycle schedule
type ScheduleConfig struct {
	ScanCron   string `mapstructure:"scan_cron" validate:"required"`
	HealthPort int    `mapstructure:"health_port" validate:"required,min=1,max=65535"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
