// Package scheduler starts simulations of strategy files on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/strategy-sim/internal/config"
	"github.com/yourusername/strategy-sim/internal/logger"
	"github.com/yourusername/strategy-sim/internal/metrics"
	"github.com/yourusername/strategy-sim/internal/models"
	"github.com/yourusername/strategy-sim/internal/rules"
	"github.com/yourusername/strategy-sim/internal/simulation"
)

// Starter submits simulations. *simulation.Client satisfies it.
type Starter interface {
	Start(ctx context.Context, cfg models.SimulationConfig) (string, error)
}

// Job is one scheduled simulation
type Job struct {
	Name         string
	Cron         string
	StrategyFile string
	Holdings     []models.Holding
	InitialCash  decimal.Decimal
	DurationDays int
	Frequency    models.TradingFrequency
	// StartDate is fixed when set; otherwise each run covers the DurationDays before it fires
	StartDate time.Time
}

// JobFromConfig builds a job from a schedule entry, filling unset fields from defaults
func JobFromConfig(sc config.ScheduleConfig, defaults config.SimulationConfig) (Job, error) {
	job := Job{
		Name:         sc.Name,
		Cron:         sc.Cron,
		StrategyFile: sc.StrategyFile,
		InitialCash:  decimal.NewFromFloat(sc.InitialCash),
		DurationDays: sc.DurationDays,
		Frequency:    models.TradingFrequency(sc.Frequency),
	}

	if sc.InitialCash == 0 {
		job.InitialCash = decimal.NewFromFloat(defaults.DefaultInitialCash)
	}
	if job.DurationDays == 0 {
		job.DurationDays = defaults.DefaultDurationDays
	}
	if job.Frequency == "" {
		job.Frequency = models.TradingFrequency(defaults.DefaultFrequency)
	}
	if sc.StartDate != "" {
		start, err := time.Parse("2006-01-02", sc.StartDate)
		if err != nil {
			return Job{}, fmt.Errorf("schedule %s: invalid start_date: %w", sc.Name, err)
		}
		job.StartDate = start
	}

	for _, h := range sc.Holdings {
		job.Holdings = append(job.Holdings, models.Holding{Ticker: strings.ToUpper(h.Ticker), Shares: h.Shares})
	}

	return job, nil
}

// RunRecord describes the last firing of a job
type RunRecord struct {
	Name    string    `json:"name"`
	FiredAt time.Time `json:"fired_at"`
	JobID   string    `json:"job_id,omitempty"`
	Rules   int       `json:"rules"`
	Skipped bool      `json:"skipped"`
	Error   string    `json:"error,omitempty"`
}

// Scheduler manages scheduled simulation runs
type Scheduler struct {
	cron            *cron.Cron
	starter         Starter
	compiler        *rules.Compiler
	logger          *logrus.Entry
	ruleLogger      *logger.RuleLogger
	audit           *logger.AuditLogger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          map[string]cron.EntryID
	jobs            map[string]Job
	runs            map[string]RunRecord
	requestTimeout  time.Duration
	gracefulTimeout time.Duration
	now             func() time.Time
}

// NewScheduler creates a new scheduler
func NewScheduler(starter Starter, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		starter:         starter,
		compiler:        rules.NewCompiler(),
		logger:          log.WithField("component", "scheduler"),
		ruleLogger:      logger.NewRuleLogger(log),
		audit:           logger.NewAuditLogger(log),
		jobIDs:          make(map[string]cron.EntryID),
		jobs:            make(map[string]Job),
		runs:            make(map[string]RunRecord),
		requestTimeout:  30 * time.Second,
		gracefulTimeout: 30 * time.Second,
		now:             time.Now,
	}
}

// ScheduleSimulation registers a job to run on its cron expression
func (s *Scheduler) ScheduleSimulation(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("job %q already scheduled", job.Name)
	}

	entryID, err := s.cron.AddFunc(job.Cron, func() { _, _ = s.Trigger(job.Name) })
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs[job.Name] = entryID
	s.jobs[job.Name] = job
	s.logger.WithFields(logrus.Fields{
		"schedule": job.Name,
		"cron":     job.Cron,
	}).Info("Scheduled simulation")

	return nil
}

// Trigger runs a scheduled job immediately. A run that finds a simulation
// already active is skipped, not queued.
func (s *Scheduler) Trigger(name string) (RunRecord, error) {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return RunRecord{}, fmt.Errorf("unknown job %q", name)
	}

	record := RunRecord{Name: name, FiredAt: s.now()}
	jobID, ruleCount, err := s.run(job)
	record.JobID = jobID
	record.Rules = ruleCount

	switch {
	case errors.Is(err, simulation.ErrJobActive):
		record.Skipped = true
		s.audit.LogScheduledRunSkipped(name, err.Error())
		err = nil
	case err != nil:
		record.Error = err.Error()
		s.logger.WithError(err).WithField("schedule", name).Error("Scheduled simulation failed to start")
	default:
		s.logger.WithFields(logrus.Fields{
			"schedule": name,
			"job_id":   jobID,
		}).Info("Scheduled simulation started")
	}

	s.mu.Lock()
	s.runs[name] = record
	s.mu.Unlock()

	return record, err
}

func (s *Scheduler) run(job Job) (string, int, error) {
	text, err := os.ReadFile(job.StrategyFile)
	if err != nil {
		return "", 0, fmt.Errorf("read strategy file: %w", err)
	}

	result := s.compiler.Compile(string(text))
	metrics.RecordCompile(len(result.Rules), len(result.Diagnostics))
	for _, d := range result.Diagnostics {
		s.ruleLogger.LogDiagnostic(job.StrategyFile, d.Line, d.Text, d.Reason)
	}
	s.ruleLogger.LogCompiled(job.StrategyFile, len(result.Rules), len(result.Diagnostics))

	cfg := models.SimulationConfig{
		InitialCash:      job.InitialCash,
		StartDate:        s.startDate(job),
		DurationDays:     job.DurationDays,
		TradingFrequency: job.Frequency,
		Holdings:         job.Holdings,
		Rules:            result.Rules,
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
	defer cancel()

	jobID, err := s.starter.Start(ctx, cfg)
	if err != nil {
		return "", len(result.Rules), err
	}

	tickers := make([]string, 0, len(cfg.Holdings))
	for _, h := range cfg.Holdings {
		tickers = append(tickers, h.Ticker)
	}
	s.audit.LogJobSubmitted(jobID, "schedule:"+job.Name, cfg.InitialCash.String(), cfg.StartDate, cfg.DurationDays, string(cfg.TradingFrequency), tickers)

	return jobID, len(result.Rules), nil
}

func (s *Scheduler) startDate(job Job) time.Time {
	if !job.StartDate.IsZero() {
		return job.StartDate
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	return today.AddDate(0, 0, -job.DurationDays)
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs up to the graceful timeout
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	select {
	case <-s.cron.Stop().Done():
	case <-time.After(s.gracefulTimeout):
		s.logger.Warn("Scheduler stop timed out waiting for running jobs")
	}
	s.isRunning = false
	s.logger.Info("Scheduler stopped")

	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			nextTime := entry.Next
			if nextRun.IsZero() || nextTime.Before(nextRun) {
				nextRun = nextTime
			}
		}
	}

	return nextRun
}

// Runs returns the last run of every job that has fired
func (s *Scheduler) Runs() []RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RunRecord, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	return out
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot remove job while scheduler is running")
	}

	entryID, ok := s.jobIDs[name]
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	s.cron.Remove(entryID)
	delete(s.jobIDs, name)
	delete(s.jobs, name)
	s.logger.WithField("schedule", name).Info("Removed job")

	return nil
}
