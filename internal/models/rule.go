package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RuleAction is the side a trading rule trades on
type RuleAction string

const (
	RuleActionBuy  RuleAction = "buy"
	RuleActionSell RuleAction = "sell"
)

// RuleCondition is the price comparison that triggers a rule
type RuleCondition string

const (
	ConditionGreaterThan RuleCondition = "greater_than"
	ConditionLessThan    RuleCondition = "less_than"
)

// Symbol returns the comparison operator shown to users for the condition
func (c RuleCondition) Symbol() string {
	if c == ConditionGreaterThan {
		return ">"
	}
	return "<"
}

// TradingRule is a structured buy/sell trigger compiled from one line of strategy text.
type TradingRule struct {
	ID           string          `json:"id" validate:"required"`
	Ticker       string          `json:"ticker" validate:"required,uppercase"`
	Action       RuleAction      `json:"action" validate:"required,oneof=buy sell"`
	Condition    RuleCondition   `json:"condition" validate:"required,oneof=greater_than less_than"`
	Threshold    decimal.Decimal `json:"threshold" validate:"gte=0"`
	Quantity     int             `json:"quantity" validate:"gt=0"`
	OriginalCode string          `json:"original_code" validate:"required"`
}

// Validate checks that every field of the rule is populated and in range
func (r *TradingRule) Validate() error {
	if err := validate().Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return nil
}

// Describe renders the rule the way a rule card shows it, e.g. "BUY 15 NVDA when price < $180"
func (r *TradingRule) Describe() string {
	return fmt.Sprintf("%s %d %s when price %s $%s",
		strings.ToUpper(string(r.Action)), r.Quantity, r.Ticker, r.Condition.Symbol(), r.Threshold.String())
}

