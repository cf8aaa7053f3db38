package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/yourusername/strategy-sim/internal/engine"
	"github.com/yourusername/strategy-sim/internal/logger"
	"github.com/yourusername/strategy-sim/internal/models"
	"github.com/yourusername/strategy-sim/internal/simulation"
)

var (
	runStrategy  string
	runHoldings  []string
	runCash      float64
	runDays      int
	runFrequency string
	runStart     string
)

func init() {
	runCmd.Flags().StringVarP(&runStrategy, "strategy", "s", "", "Strategy file to compile, or - for stdin")
	runCmd.Flags().StringSliceVar(&runHoldings, "holding", nil, "Initial holding as TICKER=SHARES (repeatable)")
	runCmd.Flags().Float64Var(&runCash, "cash", 0, "Initial cash (defaults to simulation.default_initial_cash)")
	runCmd.Flags().IntVar(&runDays, "days", 0, "Duration in days (defaults to simulation.default_duration_days)")
	runCmd.Flags().StringVar(&runFrequency, "frequency", "", "Trading frequency: intraday or daily")
	runCmd.Flags().StringVar(&runStart, "start", "", "Start date YYYY-MM-DD (defaults to the duration before today)")
	_ = runCmd.MarkFlagRequired("holding")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation and stream its progress",
	Long: `Submits a simulation to the engine and prints each simulated day as it
arrives. Interrupt once to stop the simulation early.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		simCfg, err := buildSimulationConfig(cmd.InOrStdin())
		if err != nil {
			return err
		}
		return runSimulation(cmd.Context(), cmd.OutOrStdout(), simCfg)
	},
}

func buildSimulationConfig(stdin io.Reader) (models.SimulationConfig, error) {
	holdings, err := parseHoldings(runHoldings)
	if err != nil {
		return models.SimulationConfig{}, err
	}

	simCfg := models.SimulationConfig{
		InitialCash:      decimal.NewFromFloat(cfg.Simulation.DefaultInitialCash),
		DurationDays:     cfg.Simulation.DefaultDurationDays,
		TradingFrequency: models.TradingFrequency(cfg.Simulation.DefaultFrequency),
		Holdings:         holdings,
		Rules:            []models.TradingRule{},
	}
	if runCash > 0 {
		simCfg.InitialCash = decimal.NewFromFloat(runCash)
	}
	if runDays > 0 {
		simCfg.DurationDays = runDays
	}
	if runFrequency != "" {
		simCfg.TradingFrequency = models.TradingFrequency(strings.ToLower(runFrequency))
	}

	if runStart != "" {
		simCfg.StartDate, err = time.Parse("2006-01-02", runStart)
		if err != nil {
			return models.SimulationConfig{}, fmt.Errorf("invalid start date %q: %w", runStart, err)
		}
	} else {
		today := time.Now().UTC().Truncate(24 * time.Hour)
		simCfg.StartDate = today.AddDate(0, 0, -simCfg.DurationDays)
	}

	if runStrategy != "" {
		text, err := readStrategy(runStrategy, stdin)
		if err != nil {
			return models.SimulationConfig{}, err
		}
		simCfg.Rules = compileStrategy(runStrategy, text).Rules
	}

	return simCfg, nil
}

// parseHoldings parses TICKER=SHARES pairs
func parseHoldings(values []string) ([]models.Holding, error) {
	holdings := make([]models.Holding, 0, len(values))
	for _, v := range values {
		ticker, shares, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("invalid holding %q: expected TICKER=SHARES", v)
		}
		n, err := strconv.Atoi(strings.TrimSpace(shares))
		if err != nil {
			return nil, fmt.Errorf("invalid holding %q: %w", v, err)
		}
		holdings = append(holdings, models.Holding{
			Ticker: strings.ToUpper(strings.TrimSpace(ticker)),
			Shares: n,
		})
	}
	return holdings, nil
}

func runSimulation(ctx context.Context, out io.Writer, simCfg models.SimulationConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}

	engineClient := engine.NewClient(cfg.Engine.BaseURL, cfg.HTTPClientConfig(), appLogger)
	defer engineClient.Close()

	client := simulation.NewClient(engineClient,
		simulation.WithLogger(appLogger),
		simulation.WithConfig(cfg.ClientConfig()),
	)
	defer client.Close()

	printed := 0
	client.OnUpdate(func(snap simulation.Snapshot) {
		for _, day := range snap.Results[min(printed, len(snap.Results)):] {
			fmt.Fprintf(out, "%-16s value $%s  pnl $%s  %s\n",
				day.Label(), day.PortfolioValue.StringFixed(2), day.PnL.StringFixed(2), describeTrades(day))
		}
		printed = max(printed, len(snap.Results))
	})

	jobID, err := client.Start(ctx, simCfg)
	if err != nil {
		return err
	}
	logger.NewAuditLogger(appLogger).LogJobSubmitted(jobID, "cli", simCfg.InitialCash.String(), simCfg.StartDate,
		simCfg.DurationDays, string(simCfg.TradingFrequency), tickers(simCfg.Holdings))
	fmt.Fprintf(out, "Simulation %s started (%d rules)\n", jobID, len(simCfg.Rules))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	waitCtx, cancelWait := context.WithCancel(ctx)
	defer cancelWait()

	go func() {
		for range sigCh {
			fmt.Fprintln(out, "Stopping simulation...")
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ClientConfig().RequestTimeout)
			err := client.Stop(stopCtx)
			cancel()
			if err != nil && !errors.Is(err, simulation.ErrNoRunningJob) {
				// The engine may still be running the job; give up waiting on it
				fmt.Fprintf(out, "Stop failed: %v\n", err)
				cancelWait()
			}
		}
	}()

	snap, waitErr := client.Wait(waitCtx)
	printSummary(out, snap)

	if snap.Status.IsTerminal() {
		ackCtx, cancel := context.WithTimeout(context.Background(), cfg.ClientConfig().RequestTimeout)
		defer cancel()
		if err := client.Acknowledge(ackCtx); err != nil {
			appLogger.WithError(err).Debug("Cleanup after simulation failed")
		}
	}

	return waitErr
}

func describeTrades(day models.DayResult) string {
	if day.MarketClosed() {
		return "(market closed)"
	}
	if len(day.Trades) == 0 {
		return ""
	}
	return strings.Join(day.Trades, "; ")
}

func printSummary(out io.Writer, snap simulation.Snapshot) {
	fmt.Fprintf(out, "\n%s (%s, %d days)\n", snap.Progress.Label, snap.Status, len(snap.Results))
	if snap.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", snap.Error)
	}

	m := snap.FinalMetrics
	if m == nil {
		return
	}
	fmt.Fprintf(out, "Final value:   $%s\n", m.FinalValue.StringFixed(2))
	fmt.Fprintf(out, "Total return:  %s%%\n", m.TotalReturnPct.StringFixed(2))
	fmt.Fprintf(out, "Total P&L:     $%s\n", m.TotalPnL.StringFixed(2))
	if m.SharpeRatio != nil {
		fmt.Fprintf(out, "Sharpe ratio:  %.2f\n", *m.SharpeRatio)
	}
	if m.VolatilityPct != nil {
		fmt.Fprintf(out, "Volatility:    %.2f%%\n", *m.VolatilityPct)
	}
	fmt.Fprintf(out, "Trades:        %d\n", m.TotalTrades)
}

func tickers(holdings []models.Holding) []string {
	out := make([]string, 0, len(holdings))
	for _, h := range holdings {
		out = append(out, h.Ticker)
	}
	return out
}
