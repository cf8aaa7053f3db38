package simulation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/yourusername/strategy-sim/internal/models"
)

// Limits bounds a simulation config before it is submitted
type Limits struct {
	MinInitialCash  decimal.Decimal
	MaxIntradayDays int
	MaxDailyDays    int
}

// DefaultLimits returns the limits the web form enforces
func DefaultLimits() Limits {
	return Limits{
		MinInitialCash:  decimal.NewFromInt(1000),
		MaxIntradayDays: 60,
		MaxDailyDays:    365,
	}
}

// MaxDays returns the longest run allowed for a frequency
func (l Limits) MaxDays(f models.TradingFrequency) int {
	if f == models.FrequencyIntraday {
		return l.MaxIntradayDays
	}
	return l.MaxDailyDays
}

// ConfigValidator checks simulation configs against struct rules and Limits
type ConfigValidator struct {
	validator *validator.Validate
	limits    Limits
}

// NewConfigValidator creates a validator enforcing limits
func NewConfigValidator(limits Limits) *ConfigValidator {
	v := models.NewValidator()
	_ = v.RegisterValidation("frequency", validateFrequency)

	return &ConfigValidator{validator: v, limits: limits}
}

// Limits returns the limits this validator enforces
func (cv *ConfigValidator) Limits() Limits {
	return cv.limits
}

// Validate returns an error wrapping models.ErrInvalidConfig when cfg may not be submitted
func (cv *ConfigValidator) Validate(cfg models.SimulationConfig) error {
	if err := cv.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("%w: %v", models.ErrInvalidConfig, err)
	}

	return cv.validateCrossField(cfg)
}

func validateFrequency(fl validator.FieldLevel) bool {
	switch models.TradingFrequency(fl.Field().String()) {
	case models.FrequencyIntraday, models.FrequencyDaily:
		return true
	default:
		return false
	}
}

func (cv *ConfigValidator) validateCrossField(cfg models.SimulationConfig) error {
	if cfg.StartDate.IsZero() {
		return fmt.Errorf("%w: start_date is required", models.ErrInvalidConfig)
	}

	if cfg.InitialCash.LessThan(cv.limits.MinInitialCash) {
		return fmt.Errorf("%w: initial_cash must be at least %s", models.ErrInvalidConfig, cv.limits.MinInitialCash.String())
	}

	if maxDays := cv.limits.MaxDays(cfg.TradingFrequency); cfg.DurationDays > maxDays {
		return fmt.Errorf("%w: duration_days must be between 1 and %d for %s trading",
			models.ErrInvalidConfig, maxDays, cfg.TradingFrequency)
	}

	seen := make(map[string]bool, len(cfg.Holdings))
	for _, h := range cfg.Holdings {
		if seen[h.Ticker] {
			return fmt.Errorf("%w: duplicate holding %s", models.ErrInvalidConfig, h.Ticker)
		}
		seen[h.Ticker] = true
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var b strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.Namespace()
		switch fieldError.Tag() {
		case "required":
			fmt.Fprintf(&b, "- Field '%s' is required\n", field)
		case "min":
			fmt.Fprintf(&b, "- Field '%s' must have at least %s entries\n", field, fieldError.Param())
		case "gt", "gte", "lt", "lte":
			fmt.Fprintf(&b, "- Field '%s' validation failed: numeric constraint %s %s violated\n", field, fieldError.Tag(), fieldError.Param())
		case "uppercase":
			fmt.Fprintf(&b, "- Field '%s' must be upper case, got '%v'\n", field, fieldError.Value())
		case "frequency":
			fmt.Fprintf(&b, "- Field '%s' must be one of: intraday, daily\n", field)
		default:
			fmt.Fprintf(&b, "- Field '%s' failed validation: %s\n", field, fieldError.Tag())
		}
	}
	return fmt.Errorf("%w:\n%s", models.ErrInvalidConfig, b.String())
}
