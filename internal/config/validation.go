package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Register custom validation functions
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("frequency", validateFrequency)
	_ = v.RegisterValidation("cron", validateCron)
	_ = v.RegisterValidation("date", validateDate)

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
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	// Additional cross-field validations
	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
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

// validateFrequency validates a trading frequency
func validateFrequency(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "intraday", "daily":
		return true
	default:
		return false
	}
}

// validateCron validates a standard five-field cron expression or descriptor
func validateCron(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())
	return err == nil
}

// validateDate validates YYYY-MM-DD date strings
func validateDate(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.Simulation.DefaultInitialCash < cfg.Simulation.MinInitialCash {
		return fmt.Errorf("default_initial_cash cannot be below min_initial_cash")
	}

	maxDays := cfg.Simulation.MaxDailyDays
	if cfg.Simulation.DefaultFrequency == "intraday" {
		maxDays = cfg.Simulation.MaxIntradayDays
	}
	if cfg.Simulation.DefaultDurationDays > maxDays {
		return fmt.Errorf("default_duration_days cannot exceed %d for %s trading", maxDays, cfg.Simulation.DefaultFrequency)
	}

	if cfg.Polling.RequestTimeoutMs > cfg.Engine.TimeoutSeconds*1000 {
		return fmt.Errorf("polling request_timeout_ms cannot exceed engine timeout_seconds")
	}

	names := make(map[string]bool, len(cfg.Schedules))
	for _, s := range cfg.Schedules {
		if names[s.Name] {
			return fmt.Errorf("duplicate schedule name %q", s.Name)
		}
		names[s.Name] = true
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			fmt.Fprintf(&errMsg, "- Field '%s' is required\n", field)
		case "url":
			fmt.Fprintf(&errMsg, "- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			fmt.Fprintf(&errMsg, "- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			fmt.Fprintf(&errMsg, "- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			fmt.Fprintf(&errMsg, "- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			fmt.Fprintf(&errMsg, "- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "frequency":
			fmt.Fprintf(&errMsg, "- Field '%s' must be one of: intraday, daily\n", field)
		case "cron":
			fmt.Fprintf(&errMsg, "- Field '%s' must be a valid cron expression, got '%v'\n", field, value)
		case "date":
			fmt.Fprintf(&errMsg, "- Field '%s' must be a YYYY-MM-DD date, got '%v'\n", field, value)
		default:
			fmt.Fprintf(&errMsg, "- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg.String())
}

// ValidateEnvironment validates environment-specific requirements
func ValidateEnvironment(cfg *Config) error {
	if cfg.IsProduction() {
		u, err := url.Parse(cfg.Engine.BaseURL)
		if err != nil {
			return fmt.Errorf("invalid engine base_url: %w", err)
		}
		// Production must not point at a local engine
		if isLocalHost(u.Hostname()) {
			return fmt.Errorf("production environment should not use a local simulation engine")
		}
		if cfg.App.LogLevel == "debug" {
			return fmt.Errorf("debug logging should be disabled in production")
		}
	}

	return nil
}

// isLocalHost checks if a host refers to the local machine
func isLocalHost(host string) bool {
	switch strings.ToLower(host) {
	case "localhost", "127.0.0.1", "::1", "0.0.0.0":
		return true
	default:
		return false
	}
}
