package engine

import (
	"github.com/shopspring/decimal"

	"github.com/yourusername/strategy-sim/internal/models"
)

type tickerPayload struct {
	Ticker string `json:"ticker"`
	Shares int    `json:"shares"`
}

type rulePayload struct {
	Ticker    string          `json:"ticker"`
	Action    string          `json:"action"`
	Condition string          `json:"condition"`
	Threshold decimal.Decimal `json:"threshold"`
	Shares    int             `json:"shares"`
}

// startRequest is the body of POST /start_simulation
type startRequest struct {
	InitialCash      decimal.Decimal `json:"initial_cash"`
	StartDate        string          `json:"start_date"`
	DurationDays     int             `json:"duration_days"`
	TradingFrequency string          `json:"trading_frequency"`
	Tickers          []tickerPayload `json:"tickers"`
	TradingRules     []rulePayload   `json:"trading_rules"`
}

func newStartRequest(cfg models.SimulationConfig) startRequest {
	req := startRequest{
		InitialCash:      cfg.InitialCash,
		StartDate:        cfg.StartDate.Format("2006-01-02"),
		DurationDays:     cfg.DurationDays,
		TradingFrequency: string(cfg.TradingFrequency),
		Tickers:          make([]tickerPayload, 0, len(cfg.Holdings)),
		TradingRules:     make([]rulePayload, 0, len(cfg.Rules)),
	}
	for _, h := range cfg.Holdings {
		req.Tickers = append(req.Tickers, tickerPayload{Ticker: h.Ticker, Shares: h.Shares})
	}
	for _, r := range cfg.Rules {
		req.TradingRules = append(req.TradingRules, rulePayload{
			Ticker:    r.Ticker,
			Action:    string(r.Action),
			Condition: string(r.Condition),
			Threshold: r.Threshold,
			Shares:    r.Quantity,
		})
	}
	return req
}

type errorPayload struct {
	Error string `json:"error"`
}
