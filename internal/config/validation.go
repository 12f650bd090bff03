package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/edge-scanner/internal/models"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("liquiditytier", validateLiquidityTier)
	_ = v.RegisterValidation("markettypes", validateMarketTypes)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateLiquidityTier validates a book profile's liquidity tier
func validateLiquidityTier(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "high", "medium", "low":
		return true
	default:
		return false
	}
}

// validateMarketTypes validates the configured market type list
func validateMarketTypes(fl validator.FieldLevel) bool {
	marketTypes, ok := fl.Field().Interface().([]string)
	if !ok || len(marketTypes) == 0 {
		return false
	}

	valid := make(map[string]bool, len(models.AllMarketTypes))
	for _, m := range models.AllMarketTypes {
		valid[string(m)] = true
	}
	for _, m := range marketTypes {
		if !valid[m] {
			return false
		}
	}
	return true
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	// A quote older than the execution window could never pass validation
	// anyway; this configuration is a mistake, not a tighter gate.
	if cfg.Validation.MaxQuoteAge > cfg.Arbitrage.ExecutionWindow {
		return fmt.Errorf("validation.max_quote_age must not exceed arbitrage.execution_window")
	}

	if cfg.Dispatch.RecheckTimeout >= cfg.Arbitrage.ExecutionWindow {
		return fmt.Errorf("dispatch.recheck_timeout must be shorter than arbitrage.execution_window")
	}

	seen := make(map[string]bool)
	for _, profile := range cfg.Books.Profiles {
		name := strings.ToLower(profile.Name)
		if seen[name] {
			return fmt.Errorf("duplicate book profile: %s", profile.Name)
		}
		seen[name] = true
		if err := profile.Validate(); err != nil {
			return fmt.Errorf("book profile %s: %w", profile.Name, err)
		}
	}

	if cfg.Database.Enabled {
		if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
			return fmt.Errorf("max_idle_connections cannot exceed max_connections")
		}
	}

	if cfg.IsProduction() {
		if cfg.Database.Enabled && cfg.Database.SSLMode == "disable" {
			return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
		}
		if cfg.Dispatch.FailOpenHighConfidence {
			return fmt.Errorf("dispatch.fail_open_high_confidence must be disabled in production")
		}
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "liquiditytier":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: high, medium, low\n", field)
		case "markettypes":
			errMsg += fmt.Sprintf("- Field '%s' contains an unsupported market type\n", field)
		case "oneof":
			errMsg += fmt.Sprintf("- Field '%s' has invalid value '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}
