// Package config provides configuration management for strategy-sim.
package config

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/strategy-sim/internal/engine"
	"github.com/yourusername/strategy-sim/internal/simulation"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Engine     EngineConfig     `mapstructure:"engine" validate:"required"`
	Polling    PollingConfig    `mapstructure:"polling" validate:"required"`
	Simulation SimulationConfig `mapstructure:"simulation" validate:"required"`
	History    HistoryConfig    `mapstructure:"history"`
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Schedules  []ScheduleConfig `mapstructure:"schedules" validate:"dive"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// EngineConfig represents the simulation engine connection
type EngineConfig struct {
	BaseURL                string  `mapstructure:"base_url" validate:"required,url"`
	TimeoutSeconds         int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	RetryAttempts          int     `mapstructure:"retry_attempts" validate:"gte=0,lte=10"`
	RateLimitPerSecond     float64 `mapstructure:"rate_limit_per_second" validate:"gte=0"`
	CircuitBreakerFailures int     `mapstructure:"circuit_breaker_failures" validate:"gte=0"`
}

// PollingConfig represents the status polling cadence
type PollingConfig struct {
	IntervalMs       int `mapstructure:"interval_ms" validate:"required,gte=50"`
	RequestTimeoutMs int `mapstructure:"request_timeout_ms" validate:"required,gt=0"`
}

// SimulationConfig represents submission limits and defaults for new runs
type SimulationConfig struct {
	MinInitialCash      float64 `mapstructure:"min_initial_cash" validate:"gte=0"`
	MaxIntradayDays     int     `mapstructure:"max_intraday_days" validate:"required,gt=0"`
	MaxDailyDays        int     `mapstructure:"max_daily_days" validate:"required,gt=0"`
	DefaultInitialCash  float64 `mapstructure:"default_initial_cash" validate:"gt=0"`
	DefaultDurationDays int     `mapstructure:"default_duration_days" validate:"required,gt=0"`
	DefaultFrequency    string  `mapstructure:"default_frequency" validate:"required,frequency"`
}

// HistoryConfig represents retention of finished job summaries
type HistoryConfig struct {
	TTLMinutes int `mapstructure:"ttl_minutes" validate:"gte=0"`
	MaxEntries int `mapstructure:"max_entries" validate:"gte=0"`
}

// ServerConfig represents the status and metrics HTTP server
type ServerConfig struct {
	Port        int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	MetricsPath string `mapstructure:"metrics_path" validate:"required,startswith=/"`
}

// HoldingConfig is an initial position for a scheduled run
type HoldingConfig struct {
	Ticker string `mapstructure:"ticker" validate:"required"`
	Shares int    `mapstructure:"shares" validate:"gt=0"`
}

// ScheduleConfig describes a simulation started on a cron schedule
type ScheduleConfig struct {
	Name         string          `mapstructure:"name" validate:"required"`
	Cron         string          `mapstructure:"cron" validate:"required,cron"`
	StrategyFile string          `mapstructure:"strategy_file" validate:"required"`
	Holdings     []HoldingConfig `mapstructure:"holdings" validate:"required,min=1,dive"`
	InitialCash  float64         `mapstructure:"initial_cash" validate:"gte=0"`
	DurationDays int             `mapstructure:"duration_days" validate:"gte=0"`
	Frequency    string          `mapstructure:"frequency" validate:"omitempty,frequency"`
	StartDate    string          `mapstructure:"start_date" validate:"omitempty,date"`
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging returns true if running in staging environment
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Limits converts the simulation section to submission limits
func (c *Config) Limits() simulation.Limits {
	return simulation.Limits{
		MinInitialCash:  decimal.NewFromFloat(c.Simulation.MinInitialCash),
		MaxIntradayDays: c.Simulation.MaxIntradayDays,
		MaxDailyDays:    c.Simulation.MaxDailyDays,
	}
}

// ClientConfig converts the polling section to a simulation client config
func (c *Config) ClientConfig() simulation.ClientConfig {
	return simulation.ClientConfig{
		PollInterval:   time.Duration(c.Polling.IntervalMs) * time.Millisecond,
		RequestTimeout: time.Duration(c.Polling.RequestTimeoutMs) * time.Millisecond,
		Limits:         c.Limits(),
	}
}

// HTTPClientConfig converts the engine section to an engine HTTP client config
func (c *Config) HTTPClientConfig() engine.HTTPClientConfig {
	cfg := engine.DefaultHTTPClientConfig()
	cfg.Timeout = time.Duration(c.Engine.TimeoutSeconds) * time.Second
	cfg.MaxRetries = c.Engine.RetryAttempts
	cfg.RateLimit = c.Engine.RateLimitPerSecond
	if c.Engine.CircuitBreakerFailures > 0 {
		cfg.CircuitBreakerMax = c.Engine.CircuitBreakerFailures
	}
	return cfg
}

// HistoryTTL returns how long finished job summaries are kept
func (c *Config) HistoryTTL() time.Duration {
	if c.History.TTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.History.TTLMinutes) * time.Minute
}
