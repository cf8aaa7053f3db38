// Package rules compiles free-form strategy text into structured trading rules.
package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourusername/strategy-sim/internal/models"
)

// FormatHint is the accepted surface form, shown to users when nothing parses
const FormatHint = "if TICKER price < THRESHOLD: buy QUANTITY TICKER"

// rulePattern matches lines like "if NVDA price < 180: buy 15 NVDA".
// The match is unanchored and case-insensitive; the trailing ticker is required but not captured.
var rulePattern = regexp.MustCompile(`(?i)if\s+(\w+)\s+price\s+([<>]=?)\s+(\d+(?:\.\d+)?)\s*:\s*(buy|sell)\s+(\d+)\s+\w+`)

// Diagnostic reports a line that produced no rule
type Diagnostic struct {
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s (%q)", d.Line, d.Reason, d.Text)
}

// Result holds the rules compiled from one input, in line order, plus per-line diagnostics
type Result struct {
	Rules       []models.TradingRule `json:"rules"`
	Diagnostics []Diagnostic         `json:"diagnostics"`
}

// HasDiagnostics reports whether any line was rejected
func (r Result) HasDiagnostics() bool {
	return len(r.Diagnostics) > 0
}

// Message returns the status line shown after processing input
func (r Result) Message(input string) string {
	if strings.TrimSpace(input) == "" {
		return "Please enter some text first!"
	}
	if len(r.Rules) == 0 {
		return fmt.Sprintf("No valid trading rules found. Please use format: '%s'", FormatHint)
	}
	return fmt.Sprintf("Successfully parsed %d trading rule(s)!", len(r.Rules))
}

// IDFunc produces the id for the rule at the given position among non-empty lines
type IDFunc func(index int) string

// Compiler turns strategy text into trading rules. It holds no mutable state.
type Compiler struct {
	newID IDFunc
}

// Option configures a Compiler
type Option func(*Compiler)

// WithIDFunc overrides rule id generation
func WithIDFunc(fn IDFunc) Option {
	return func(c *Compiler) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// NewCompiler creates a compiler. Rule ids default to "rule_<uuid>".
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{newID: randomID}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile parses text with a default compiler
func Compile(text string) Result {
	return NewCompiler().Compile(text)
}

// Compile evaluates every non-empty line independently. A line that fails never
// affects the others; it yields a diagnostic instead of a rule.
func (c *Compiler) Compile(text string) Result {
	result := Result{
		Rules:       []models.TradingRule{},
		Diagnostics: []Diagnostic{},
	}

	index := 0
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		rule, err := c.compileLine(line, index)
		if err != nil {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Line:   i + 1,
				Text:   line,
				Reason: err.Error(),
			})
		} else {
			result.Rules = append(result.Rules, rule)
		}
		index++
	}

	return result
}

func (c *Compiler) compileLine(line string, index int) (models.TradingRule, error) {
	m := rulePattern.FindStringSubmatch(line)
	if m == nil {
		return models.TradingRule{}, fmt.Errorf("does not match rule format '%s'", FormatHint)
	}
	ticker, operator, thresholdText, action, quantityText := m[1], m[2], m[3], m[4], m[5]

	threshold, err := decimal.NewFromString(thresholdText)
	if err != nil {
		return models.TradingRule{}, fmt.Errorf("invalid threshold %q: %w", thresholdText, err)
	}

	quantity, err := strconv.Atoi(quantityText)
	if err != nil {
		return models.TradingRule{}, fmt.Errorf("invalid quantity %q: %w", quantityText, err)
	}

	rule := models.TradingRule{
		ID:           c.newID(index),
		Ticker:       strings.ToUpper(ticker),
		Action:       models.RuleAction(strings.ToLower(action)),
		Condition:    conditionFor(operator),
		Threshold:    threshold,
		Quantity:     quantity,
		OriginalCode: line,
	}
	if err := rule.Validate(); err != nil {
		return models.TradingRule{}, err
	}

	return rule, nil
}

// conditionFor maps > and >= to greater_than, < and <= to less_than
func conditionFor(operator string) models.RuleCondition {
	if strings.HasPrefix(operator, ">") {
		return models.ConditionGreaterThan
	}
	return models.ConditionLessThan
}

func randomID(int) string {
	return "rule_" + uuid.NewString()
}
