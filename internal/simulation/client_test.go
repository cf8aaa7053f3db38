package simulation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/strategy-sim/internal/models"
)

type statusStep struct {
	resp  *StatusResponse
	err   error
	delay time.Duration
	block chan struct{}
}

// scriptedEngine replays status steps in order, repeating the last one.
type scriptedEngine struct {
	mu sync.Mutex

	startResp  *StartResponse
	startErr   error
	startCalls int

	steps       []statusStep
	statusCalls int
	inFlight    int
	maxInFlight int

	stopResp  *StopResponse
	stopErr   error
	stopCalls int

	cleaned []string
}

func newScriptedEngine(steps ...statusStep) *scriptedEngine {
	return &scriptedEngine{
		startResp: &StartResponse{Success: true, SimulationID: "sim-1"},
		steps:     steps,
		stopResp:  &StopResponse{Success: true},
	}
}

func (e *scriptedEngine) Start(ctx context.Context, cfg models.SimulationConfig) (*StartResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startCalls++
	return e.startResp, e.startErr
}

func (e *scriptedEngine) Status(ctx context.Context, id string) (*StatusResponse, error) {
	e.mu.Lock()
	idx := e.statusCalls
	if idx >= len(e.steps) {
		idx = len(e.steps) - 1
	}
	step := e.steps[idx]
	e.statusCalls++
	e.inFlight++
	if e.inFlight > e.maxInFlight {
		e.maxInFlight = e.inFlight
	}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.inFlight--
		e.mu.Unlock()
	}()

	if step.delay > 0 {
		time.Sleep(step.delay)
	}
	if step.block != nil {
		<-step.block
	}
	return step.resp, step.err
}

func (e *scriptedEngine) Stop(ctx context.Context, id string) (*StopResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopCalls++
	return e.stopResp, e.stopErr
}

func (e *scriptedEngine) Cleanup(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cleaned = append(e.cleaned, id)
	return nil
}

func (e *scriptedEngine) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusCalls
}

func (e *scriptedEngine) setStop(resp *StopResponse, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopResp, e.stopErr = resp, err
}

func day(n int) models.DayResult {
	return models.DayResult{
		Day:            n,
		Date:           time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
		Prices:         map[string]decimal.Decimal{"NVDA": decimal.NewFromInt(int64(170 + n))},
		Trades:         []string{},
		PortfolioValue: decimal.NewFromInt(int64(100000 + n)),
		PnL:            decimal.NewFromInt(int64(n)),
	}
}

func running(progress float64, days ...int) statusStep {
	resp := &StatusResponse{Progress: progress, IsRunning: true}
	for _, d := range days {
		resp.Results = append(resp.Results, day(d))
	}
	return statusStep{resp: resp}
}

func validConfig() models.SimulationConfig {
	return models.SimulationConfig{
		InitialCash:      decimal.NewFromInt(100000),
		StartDate:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		DurationDays:     3,
		TradingFrequency: models.FrequencyDaily,
		Holdings:         []models.Holding{{Ticker: "NVDA", Shares: 10}},
	}
}

func newTestClient(t *testing.T, engine Engine, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithConfig(ClientConfig{
		PollInterval:   5 * time.Millisecond,
		RequestTimeout: time.Second,
	})}, opts...)
	client := NewClient(engine, opts...)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func dayKeys(results []models.DayResult) []int {
	keys := make([]int, len(results))
	for i, r := range results {
		keys[i] = r.Day
	}
	return keys
}

func TestClientRunsToCompletion(t *testing.T) {
	sharpe := 1.234
	final := running(1, 2, 3)
	final.resp.IsComplete = true
	final.resp.IsRunning = false
	final.resp.FinalMetrics = &models.FinalMetrics{
		FinalValue:     decimal.NewFromInt(101000),
		TotalReturnPct: decimal.NewFromFloat(1.0),
		TotalPnL:       decimal.NewFromInt(1000),
		SharpeRatio:    &sharpe,
	}

	engine := newScriptedEngine(running(1.0/3, 1), running(2.0/3, 2), final)
	history := NewHistory(time.Minute, 10)
	client := newTestClient(t, engine, WithHistory(history))

	id, err := client.Start(context.Background(), validConfig())
	require.NoError(t, err)
	assert.Equal(t, "sim-1", id)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := client.Wait(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, snap.Status)
	assert.Equal(t, []int{1, 2, 3}, dayKeys(snap.Results))
	require.NotNil(t, snap.FinalMetrics)
	assert.Equal(t, "101000", snap.FinalMetrics.FinalValue.String())
	assert.Equal(t, "Simulation Complete!", snap.Progress.Label)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 3, engine.calls(), "polling must stop after completion")

	summary, ok := history.Get("sim-1")
	require.True(t, ok)
	assert.Equal(t, models.JobStatusCompleted, summary.Status)
	assert.Equal(t, 3, summary.Days)
}

func TestClientNeverOverlapsPolls(t *testing.T) {
	slow := running(0.5, 1)
	slow.delay = 15 * time.Millisecond

	engine := newScriptedEngine(slow)
	client := newTestClient(t, engine, WithConfig(ClientConfig{PollInterval: time.Millisecond}))

	_, err := client.Start(context.Background(), validConfig())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return engine.calls() >= 4 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, client.Close())

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Equal(t, 1, engine.maxInFlight)
}

func TestClientRejectsStartWhileActive(t *testing.T) {
	engine := newScriptedEngine(running(0.1, 1))
	client := newTestClient(t, engine)

	id, err := client.Start(context.Background(), validConfig())
	require.NoError(t, err)

	_, err = client.Start(context.Background(), validConfig())
	assert.ErrorIs(t, err, ErrJobActive)

	snap := client.Snapshot()
	assert.Equal(t, id, snap.JobID)
	assert.Equal(t, models.JobStatusRunning, snap.Status)

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Equal(t, 1, engine.startCalls)
}

func TestClientStartRejected(t *testing.T) {
	engine := newScriptedEngine(running(0, 1))
	engine.startResp = &StartResponse{Success: false, Error: "unknown ticker ZZZZ"}
	client := newTestClient(t, engine)

	_, err := client.Start(context.Background(), validConfig())

	var rejected *StartRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "unknown ticker ZZZZ", rejected.Reason)
	assert.Equal(t, models.JobStatusIdle, client.Snapshot().Status)

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, engine.calls(), "no polling after a rejected start")
}

func TestClientStartTransportError(t *testing.T) {
	engine := newScriptedEngine(running(0, 1))
	engine.startResp = nil
	engine.startErr = errors.New("connection refused")
	client := newTestClient(t, engine)

	_, err := client.Start(context.Background(), validConfig())

	var rejected *StartRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.ErrorIs(t, err, engine.startErr)
	assert.Equal(t, models.JobStatusIdle, client.Snapshot().Status)
}

func TestClientRejectsInvalidConfigBeforeSubmitting(t *testing.T) {
	engine := newScriptedEngine(running(0, 1))
	client := newTestClient(t, engine)

	cfg := validConfig()
	cfg.TradingFrequency = models.FrequencyIntraday
	cfg.DurationDays = 61

	_, err := client.Start(context.Background(), cfg)
	assert.ErrorIs(t, err, models.ErrInvalidConfig)

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Zero(t, engine.startCalls)
}

func TestClientDiscardsLateResponseAfterStop(t *testing.T) {
	release := make(chan struct{})
	late := running(1, 2)
	late.resp.IsComplete = true
	late.block = release

	engine := newScriptedEngine(running(0.5, 1), late)
	client := newTestClient(t, engine)

	_, err := client.Start(context.Background(), validConfig())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return engine.calls() >= 2 }, 2*time.Second, 2*time.Millisecond)

	require.NoError(t, client.Stop(context.Background()))
	assert.Equal(t, models.JobStatusStopped, client.Snapshot().Status)

	close(release)
	require.NoError(t, client.Close())

	snap := client.Snapshot()
	assert.Equal(t, models.JobStatusStopped, snap.Status)
	assert.Equal(t, []int{1}, dayKeys(snap.Results))
	assert.Nil(t, snap.FinalMetrics)
}

func TestClientPollErrorsAreTransient(t *testing.T) {
	done := running(1, 1)
	done.resp.IsComplete = true

	engine := newScriptedEngine(
		statusStep{err: errors.New("timeout")},
		statusStep{err: errors.New("timeout")},
		done,
	)
	client := newTestClient(t, engine)

	var (
		mu        sync.Mutex
		sawError  bool
		statusErr models.JobStatus
	)
	client.OnUpdate(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if s.LastPollError != "" {
			sawError = true
			statusErr = s.Status
		}
	})

	_, err := client.Start(context.Background(), validConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := client.Wait(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, snap.Status)
	assert.Empty(t, snap.LastPollError)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, sawError)
	assert.Equal(t, models.JobStatusRunning, statusErr)
}

func TestClientCompletionWithErrorFails(t *testing.T) {
	failed := running(0.5, 1)
	failed.resp.IsComplete = true
	failed.resp.Error = "No data for NVDA"

	engine := newScriptedEngine(failed)
	client := newTestClient(t, engine)

	_, err := client.Start(context.Background(), validConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := client.Wait(ctx)

	var simErr *SimulationFailedError
	require.ErrorAs(t, err, &simErr)
	assert.Equal(t, "No data for NVDA", simErr.Message)
	assert.Equal(t, models.JobStatusFailed, snap.Status)
	assert.Equal(t, []int{1}, dayKeys(snap.Results))
	assert.Nil(t, snap.FinalMetrics)
}

func TestClientStopFailureKeepsJobRunning(t *testing.T) {
	engine := newScriptedEngine(running(0.1, 1))
	engine.setStop(nil, errors.New("engine unreachable"))
	client := newTestClient(t, engine)

	_, err := client.Start(context.Background(), validConfig())
	require.NoError(t, err)

	err = client.Stop(context.Background())
	var stopErr *StopFailedError
	require.ErrorAs(t, err, &stopErr)
	assert.Equal(t, "sim-1", stopErr.JobID)
	assert.Equal(t, models.JobStatusRunning, client.Snapshot().Status)

	engine.setStop(&StopResponse{Success: true}, nil)
	require.NoError(t, client.Stop(context.Background()))
	assert.Equal(t, models.JobStatusStopped, client.Snapshot().Status)
}

func TestClientStopWithoutJob(t *testing.T) {
	client := newTestClient(t, newScriptedEngine(running(0, 1)))

	assert.ErrorIs(t, client.Stop(context.Background()), ErrNoRunningJob)
}

func TestClientStartsAgainAfterTerminalState(t *testing.T) {
	done := running(1, 1)
	done.resp.IsComplete = true

	engine := newScriptedEngine(done)
	client := newTestClient(t, engine)

	_, err := client.Start(context.Background(), validConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = client.Wait(ctx)
	require.NoError(t, err)

	engine.mu.Lock()
	engine.startResp = &StartResponse{Success: true, SimulationID: "sim-2"}
	engine.mu.Unlock()

	id, err := client.Start(context.Background(), validConfig())
	require.NoError(t, err)
	assert.Equal(t, "sim-2", id)
}

func TestClientAcknowledgeCleansUp(t *testing.T) {
	done := running(1, 1)
	done.resp.IsComplete = true

	engine := newScriptedEngine(done)
	client := newTestClient(t, engine)

	assert.ErrorIs(t, client.Acknowledge(context.Background()), ErrNoJob)

	_, err := client.Start(context.Background(), validConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = client.Wait(ctx)
	require.NoError(t, err)

	require.NoError(t, client.Acknowledge(context.Background()))
	assert.Equal(t, models.JobStatusIdle, client.Snapshot().Status)

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Equal(t, []string{"sim-1"}, engine.cleaned)
}

func TestClientCloseHaltsPolling(t *testing.T) {
	engine := newScriptedEngine(running(0.1, 1))
	client := newTestClient(t, engine)

	_, err := client.Start(context.Background(), validConfig())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return engine.calls() >= 1 }, 2*time.Second, 2*time.Millisecond)

	require.NoError(t, client.Close())
	calls := engine.calls()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, engine.calls())

	_, err = client.Start(context.Background(), validConfig())
	assert.ErrorIs(t, err, ErrClientClosed)
}
