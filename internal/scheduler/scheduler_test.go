package scheduler

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/strategy-sim/internal/config"
	"github.com/yourusername/strategy-sim/internal/models"
	"github.com/yourusername/strategy-sim/internal/simulation"
)

type recordingStarter struct {
	mu      sync.Mutex
	configs []models.SimulationConfig
	err     error
}

func (r *recordingStarter) Start(ctx context.Context, cfg models.SimulationConfig) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.configs = append(r.configs, cfg)
	return "sim-1", nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func writeStrategy(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strategy.txt")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o600))
	return path
}

func testJob(t *testing.T) Job {
	return Job{
		Name:         "nightly",
		Cron:         "0 22 * * 1-5",
		StrategyFile: writeStrategy(t, "if NVDA price < 180: buy 15 NVDA\nnot a rule\nif NVDA price > 200: sell 10 NVDA"),
		Holdings:     []models.Holding{{Ticker: "NVDA", Shares: 100}},
		InitialCash:  decimal.NewFromInt(100000),
		DurationDays: 10,
		Frequency:    models.FrequencyDaily,
	}
}

func TestTriggerCompilesAndStarts(t *testing.T) {
	starter := &recordingStarter{}
	s := NewScheduler(starter, quietLogger())
	s.now = func() time.Time { return time.Date(2025, 7, 31, 22, 0, 0, 0, time.UTC) }

	require.NoError(t, s.ScheduleSimulation(testJob(t)))

	record, err := s.Trigger("nightly")
	require.NoError(t, err)
	assert.Equal(t, "sim-1", record.JobID)
	assert.Equal(t, 2, record.Rules)
	assert.False(t, record.Skipped)

	require.Len(t, starter.configs, 1)
	cfg := starter.configs[0]
	assert.Len(t, cfg.Rules, 2)
	assert.Equal(t, "2025-07-21", cfg.StartDate.Format("2006-01-02"))
	assert.Equal(t, models.FrequencyDaily, cfg.TradingFrequency)
}

func TestTriggerSkipsWhileBusy(t *testing.T) {
	starter := &recordingStarter{err: simulation.ErrJobActive}
	s := NewScheduler(starter, quietLogger())
	require.NoError(t, s.ScheduleSimulation(testJob(t)))

	record, err := s.Trigger("nightly")
	require.NoError(t, err)
	assert.True(t, record.Skipped)
	assert.Empty(t, record.JobID)

	runs := s.Runs()
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Skipped)
}

func TestTriggerReportsFailures(t *testing.T) {
	starter := &recordingStarter{err: errors.New("engine down")}
	s := NewScheduler(starter, quietLogger())
	require.NoError(t, s.ScheduleSimulation(testJob(t)))

	record, err := s.Trigger("nightly")
	assert.Error(t, err)
	assert.Equal(t, "engine down", record.Error)
}

func TestTriggerMissingStrategyFile(t *testing.T) {
	s := NewScheduler(&recordingStarter{}, quietLogger())
	job := testJob(t)
	job.StrategyFile = filepath.Join(t.TempDir(), "missing.txt")
	require.NoError(t, s.ScheduleSimulation(job))

	_, err := s.Trigger("nightly")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestScheduleValidation(t *testing.T) {
	s := NewScheduler(&recordingStarter{}, quietLogger())

	job := testJob(t)
	require.NoError(t, s.ScheduleSimulation(job))
	assert.Error(t, s.ScheduleSimulation(job), "duplicate name")

	job.Name = "broken"
	job.Cron = "whenever"
	assert.Error(t, s.ScheduleSimulation(job))

	_, err := s.Trigger("unknown")
	assert.Error(t, err)
}

func TestSchedulerLifecycle(t *testing.T) {
	s := NewScheduler(&recordingStarter{}, quietLogger())
	assert.Error(t, s.Start(), "no jobs scheduled")

	require.NoError(t, s.ScheduleSimulation(testJob(t)))
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.False(t, s.GetNextRun().IsZero())
	assert.Error(t, s.RemoveJob("nightly"))

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	require.NoError(t, s.RemoveJob("nightly"))
}

func TestJobFromConfig(t *testing.T) {
	defaults := config.SimulationConfig{
		DefaultInitialCash:  50000,
		DefaultDurationDays: 20,
		DefaultFrequency:    "daily",
	}

	job, err := JobFromConfig(config.ScheduleConfig{
		Name:         "weekly",
		Cron:         "@weekly",
		StrategyFile: "s.txt",
		Holdings:     []config.HoldingConfig{{Ticker: "nvda", Shares: 5}},
		StartDate:    "2025-07-21",
	}, defaults)
	require.NoError(t, err)

	assert.Equal(t, "50000", job.InitialCash.String())
	assert.Equal(t, 20, job.DurationDays)
	assert.Equal(t, models.FrequencyDaily, job.Frequency)
	assert.Equal(t, "NVDA", job.Holdings[0].Ticker)
	assert.Equal(t, time.Date(2025, 7, 21, 0, 0, 0, 0, time.UTC), job.StartDate)

	_, err = JobFromConfig(config.ScheduleConfig{Name: "bad", StartDate: "07/21/2025"}, defaults)
	assert.Error(t, err)
}
