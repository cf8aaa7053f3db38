package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/strategy-sim/internal/models"
	"github.com/yourusername/strategy-sim/internal/rules"
)

func TestParseHoldings(t *testing.T) {
	holdings, err := parseHoldings([]string{"nvda=100", " AAPL = 5 "})
	require.NoError(t, err)
	assert.Equal(t, []models.Holding{{Ticker: "NVDA", Shares: 100}, {Ticker: "AAPL", Shares: 5}}, holdings)

	_, err = parseHoldings([]string{"NVDA"})
	assert.Error(t, err)

	_, err = parseHoldings([]string{"NVDA=lots"})
	assert.Error(t, err)
}

func TestReadStrategyFromStdin(t *testing.T) {
	text, err := readStrategy("-", strings.NewReader("if NVDA price < 180: buy 15 NVDA"))
	require.NoError(t, err)
	assert.Equal(t, "if NVDA price < 180: buy 15 NVDA", text)

	_, err = readStrategy("does/not/exist.txt", nil)
	assert.Error(t, err)
}

func TestPrintCompileResult(t *testing.T) {
	text := "if NVDA price < 180: buy 15 NVDA\nbuy everything"
	var out bytes.Buffer

	printCompileResult(&out, text, rules.Compile(text))

	assert.Contains(t, out.String(), "Successfully parsed 1 trading rule(s)!")
	assert.Contains(t, out.String(), "1. BUY 15 NVDA when price < $180")
	assert.Contains(t, out.String(), "line 2:")
}

func TestDescribeTrades(t *testing.T) {
	assert.Equal(t, "(market closed)", describeTrades(models.DayResult{Day: 1}))
}
