package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// TradingFrequency selects the simulated interval length
type TradingFrequency string

const (
	FrequencyIntraday TradingFrequency = "intraday"
	FrequencyDaily    TradingFrequency = "daily"
)

// IntervalsPerDay returns how many ticks the engine simulates for one calendar day.
// Intraday runs use 30 minute bars over a 6.5 hour session.
func (f TradingFrequency) IntervalsPerDay() int {
	if f == FrequencyIntraday {
		return 13
	}
	return 1
}

// JobStatus represents the lifecycle state of a simulation job
type JobStatus string

const (
	JobStatusIdle      JobStatus = "idle"
	JobStatusStarting  JobStatus = "starting"
	JobStatusRunning   JobStatus = "running"
	JobStatusStopping  JobStatus = "stopping"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusStopped   JobStatus = "stopped"
)

// IsTerminal reports whether the job has finished, one way or another
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusStopped:
		return true
	default:
		return false
	}
}

// IsActive reports whether a job in this state blocks a new start
func (s JobStatus) IsActive() bool {
	switch s {
	case JobStatusStarting, JobStatusRunning, JobStatusStopping:
		return true
	default:
		return false
	}
}

// Holding is an initial position bought at the start of a simulation
type Holding struct {
	Ticker string `json:"ticker" validate:"required,uppercase"`
	Shares int    `json:"shares" validate:"gt=0"`
}

// SimulationConfig is the input submitted to the simulation engine
type SimulationConfig struct {
	InitialCash      decimal.Decimal  `json:"initial_cash"`
	StartDate        time.Time        `json:"start_date"`
	DurationDays     int              `json:"duration_days" validate:"gte=1"`
	TradingFrequency TradingFrequency `json:"trading_frequency" validate:"required,frequency"`
	Holdings         []Holding        `json:"holdings" validate:"required,min=1,dive"`
	Rules            []TradingRule    `json:"rules" validate:"dive"`
}

// ExpectedTicks returns the number of results a full run of this config produces
func (c SimulationConfig) ExpectedTicks() int {
	return c.DurationDays * c.TradingFrequency.IntervalsPerDay()
}

// DayResult is one simulated tick as reported by the engine.
// Prices is empty on non-trading days; Trades holds human readable descriptions.
type DayResult struct {
	Day            int                        `json:"day"`
	Date           string                     `json:"date"`
	IntervalLabel  string                     `json:"interval_label,omitempty"`
	Prices         map[string]decimal.Decimal `json:"prices"`
	Trades         []string                   `json:"trades"`
	PortfolioValue decimal.Decimal            `json:"portfolio_value"`
	PnL            decimal.Decimal            `json:"pnl"`
	Positions      map[string]int             `json:"positions,omitempty"`
	Cash           *decimal.Decimal           `json:"cash,omitempty"`
}

// MarketClosed reports whether the engine had no prices for this tick
func (d DayResult) MarketClosed() bool {
	return len(d.Prices) == 0
}

// Label returns the interval label, falling back to "Day N"
func (d DayResult) Label() string {
	if d.IntervalLabel != "" {
		return d.IntervalLabel
	}
	return "Day " + strconv.Itoa(d.Day)
}

// FinalMetrics is the terminal summary reported on natural completion.
// SharpeRatio and VolatilityPct are nil when undefined (e.g. zero variance).
type FinalMetrics struct {
	FinalValue     decimal.Decimal `json:"final_value"`
	TotalReturnPct decimal.Decimal `json:"total_return_pct"`
	TotalPnL       decimal.Decimal `json:"total_pnl"`
	SharpeRatio    *float64        `json:"sharpe_ratio,omitempty"`
	VolatilityPct  *float64        `json:"volatility_pct,omitempty"`
	TotalTrades    int             `json:"total_trades,omitempty"`
	FinalPositions map[string]int  `json:"final_positions,omitempty"`
}
