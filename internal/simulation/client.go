package simulation

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/strategy-sim/internal/logger"
	"github.com/yourusername/strategy-sim/internal/metrics"
	"github.com/yourusername/strategy-sim/internal/models"
)

// ClientConfig tunes the polling cadence and request deadlines
type ClientConfig struct {
	PollInterval   time.Duration
	RequestTimeout time.Duration
	Limits         Limits
}

// DefaultClientConfig polls every 500ms
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PollInterval:   500 * time.Millisecond,
		RequestTimeout: 10 * time.Second,
		Limits:         DefaultLimits(),
	}
}

// Snapshot is a point-in-time copy of the client's job for the presentation layer
type Snapshot struct {
	Version       uint64               `json:"version"`
	JobID         string               `json:"job_id,omitempty"`
	Status        models.JobStatus     `json:"status"`
	Progress      Progress             `json:"progress"`
	Results       []models.DayResult   `json:"results"`
	FinalMetrics  *models.FinalMetrics `json:"final_metrics,omitempty"`
	Error         string               `json:"error,omitempty"`
	LastPollError string               `json:"last_poll_error,omitempty"`
	StartedAt     time.Time            `json:"started_at,omitempty"`
	FinishedAt    time.Time            `json:"finished_at,omitempty"`
}

type job struct {
	id         string
	config     models.SimulationConfig
	status     models.JobStatus
	progress   float64
	results    *ResultLog
	final      *models.FinalMetrics
	err        error
	pollErr    error
	startedAt  time.Time
	finishedAt time.Time
	cancel     context.CancelFunc
	done       chan struct{}
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the base logger
func WithLogger(log *logrus.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.logger = logger.NewSimulationLogger(log)
			c.audit = logger.NewAuditLogger(log)
		}
	}
}

// WithHistory records finished jobs in h
func WithHistory(h *History) Option {
	return func(c *Client) {
		c.history = h
	}
}

// WithConfig overrides the default client config
func WithConfig(cfg ClientConfig) Option {
	return func(c *Client) {
		if cfg.PollInterval > 0 {
			c.config.PollInterval = cfg.PollInterval
		}
		if cfg.RequestTimeout > 0 {
			c.config.RequestTimeout = cfg.RequestTimeout
		}
		if !cfg.Limits.MinInitialCash.IsZero() || cfg.Limits.MaxDailyDays > 0 || cfg.Limits.MaxIntradayDays > 0 {
			c.config.Limits = cfg.Limits
		}
	}
}

// Client owns at most one simulation job at a time and drives it through
// start, poll, merge and stop against an Engine.
//
// Observers registered with OnUpdate run on the goroutine that changed the
// job and must not call Start, Stop or Acknowledge synchronously.
type Client struct {
	engine    Engine
	config    ClientConfig
	validator *ConfigValidator
	logger    *logger.SimulationLogger
	audit     *logger.AuditLogger
	history   *History

	mu      sync.Mutex
	job     *job
	closed  bool
	closing chan struct{}
	version uint64
	wg      sync.WaitGroup

	observerMu   sync.RWMutex
	observers    []func(Snapshot)
	notifyMu     sync.Mutex
	lastNotified uint64
}

// NewClient creates a client driving engine
func NewClient(engine Engine, opts ...Option) *Client {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Client{
		engine:  engine,
		config:  DefaultClientConfig(),
		logger:  logger.NewSimulationLogger(discard),
		audit:   logger.NewAuditLogger(discard),
		closing: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.validator = NewConfigValidator(c.config.Limits)
	return c
}

// Validator returns the validator applied before every start
func (c *Client) Validator() *ConfigValidator {
	return c.validator
}

// OnUpdate registers fn to receive a snapshot after every job change
func (c *Client) OnUpdate(fn func(Snapshot)) {
	c.observerMu.Lock()
	defer c.observerMu.Unlock()
	c.observers = append(c.observers, fn)
}

// Start validates cfg and submits it to the engine. Polling begins once the
// engine accepts the job. A start while a job is active returns ErrJobActive
// and leaves that job untouched.
func (c *Client) Start(ctx context.Context, cfg models.SimulationConfig) (string, error) {
	if err := c.validator.Validate(cfg); err != nil {
		return "", err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClientClosed
	}
	if c.job != nil && c.job.status.IsActive() {
		c.mu.Unlock()
		return "", ErrJobActive
	}
	j := &job{
		config:  cfg,
		status:  models.JobStatusStarting,
		results: NewResultLog(),
		done:    make(chan struct{}),
	}
	c.job = j
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	c.logger.LogJobStarting(string(cfg.TradingFrequency), cfg.DurationDays, len(cfg.Holdings), len(cfg.Rules))

	reqCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	resp, err := c.engine.Start(reqCtx, cfg)
	cancel()

	c.mu.Lock()
	if c.closed || c.job != j {
		c.mu.Unlock()
		return "", ErrClientClosed
	}

	if err != nil || resp == nil || !resp.Success || resp.SimulationID == "" {
		rejected := newStartRejectedError(resp, err)
		j.status = models.JobStatusIdle
		j.err = rejected
		close(j.done)
		c.job = nil
		snap := c.snapshotLocked()
		c.mu.Unlock()

		metrics.RecordJobRejected()
		c.logger.LogJobRejected(rejected.Error())
		c.notify(snap)
		return "", rejected
	}

	pollCtx, cancelPoll := context.WithCancel(context.Background())
	j.id = resp.SimulationID
	j.status = models.JobStatusRunning
	j.startedAt = time.Now()
	j.cancel = cancelPoll

	c.wg.Add(1)
	go c.pollLoop(pollCtx, j)

	snap = c.snapshotLocked()
	c.mu.Unlock()

	metrics.RecordJobStarted()
	c.logger.LogJobStarted(j.id, cfg.ExpectedTicks())
	c.audit.LogJobStateChange(j.id, string(models.JobStatusStarting), string(models.JobStatusRunning))
	c.notify(snap)

	return j.id, nil
}

func newStartRejectedError(resp *StartResponse, err error) *StartRejectedError {
	switch {
	case err != nil:
		return &StartRejectedError{Reason: "engine request failed", Cause: err}
	case resp == nil:
		return &StartRejectedError{Reason: "empty response from engine"}
	case resp.Error != "":
		return &StartRejectedError{Reason: resp.Error}
	case resp.Success:
		return &StartRejectedError{Reason: "engine returned no simulation id"}
	default:
		return &StartRejectedError{Reason: "engine declined to start the simulation"}
	}
}

// pollLoop issues one status request at a time. The next poll is scheduled
// only after the previous one resolves.
func (c *Client) pollLoop(ctx context.Context, j *job) {
	defer c.wg.Done()

	timer := time.NewTimer(c.config.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if finished := c.pollOnce(ctx, j); finished {
			return
		}
		timer.Reset(c.config.PollInterval)
	}
}

func (c *Client) pollOnce(ctx context.Context, j *job) bool {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	started := time.Now()
	resp, err := c.engine.Status(reqCtx, j.id)
	cancel()
	elapsed := time.Since(started).Seconds()

	c.mu.Lock()
	// The poll context is only cancelled under mu, so a response that lost
	// the race against stop or close is always seen here.
	if ctx.Err() != nil || c.job != j {
		c.mu.Unlock()
		metrics.RecordPoll("discarded", elapsed)
		c.logger.LogLateResponseDiscarded(j.id)
		return true
	}

	if err == nil && resp == nil {
		err = errors.New("empty status response")
	}
	if err != nil {
		j.pollErr = &PollError{JobID: j.id, Cause: err}
		snap := c.snapshotLocked()
		c.mu.Unlock()

		metrics.RecordPoll("error", elapsed)
		c.logger.LogPollFailed(j.id, err)
		c.notify(snap)
		return false
	}

	j.pollErr = nil
	j.progress = resp.Progress
	added, duplicates := j.results.Merge(resp.Results)

	// Results that arrive with the completion flag are merged before finalizing.
	var summary *Summary
	if resp.IsComplete {
		if resp.Error != "" {
			j.err = &SimulationFailedError{JobID: j.id, Message: resp.Error}
			summary = c.finishLocked(j, models.JobStatusFailed)
		} else {
			j.final = resp.FinalMetrics
			summary = c.finishLocked(j, models.JobStatusCompleted)
		}
	}
	total := j.results.Len()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	metrics.RecordPoll("merged", elapsed)
	metrics.RecordMerge(added, duplicates, resp.Progress)
	c.logger.LogPollMerged(j.id, added, duplicates, total, resp.Progress)
	if summary != nil {
		c.recordFinished(*summary)
	}
	c.notify(snap)

	return summary != nil
}

// Stop asks the engine to stop the running job. On acknowledgment the job is
// stopped and no further poll responses are merged. If the engine does not
// acknowledge, the job keeps running and a *StopFailedError is returned.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	j := c.job
	if j == nil || j.status != models.JobStatusRunning {
		c.mu.Unlock()
		return ErrNoRunningJob
	}
	j.status = models.JobStatusStopping
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.LogStopRequested(j.id)
	c.audit.LogJobStateChange(j.id, string(models.JobStatusRunning), string(models.JobStatusStopping))
	c.notify(snap)

	reqCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	resp, err := c.engine.Stop(reqCtx, j.id)
	cancel()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if c.job != j || j.status != models.JobStatusStopping {
		// finished on its own while the stop was in flight
		c.mu.Unlock()
		return nil
	}

	if err != nil || resp == nil || !resp.Success {
		j.status = models.JobStatusRunning
		stopErr := &StopFailedError{JobID: j.id, Cause: err}
		snap := c.snapshotLocked()
		c.mu.Unlock()

		c.logger.LogStopFailed(j.id, stopErr)
		c.audit.LogJobStateChange(j.id, string(models.JobStatusStopping), string(models.JobStatusRunning))
		c.notify(snap)
		return stopErr
	}

	summary := c.finishLocked(j, models.JobStatusStopped)
	snap = c.snapshotLocked()
	c.mu.Unlock()

	c.recordFinished(*summary)
	c.notify(snap)
	return nil
}

// Acknowledge clears a finished job so the client reports idle. Engines that
// implement Cleaner are told to release the job.
func (c *Client) Acknowledge(ctx context.Context) error {
	c.mu.Lock()
	j := c.job
	if j == nil {
		c.mu.Unlock()
		return ErrNoJob
	}
	if !j.status.IsTerminal() {
		c.mu.Unlock()
		return ErrJobNotFinished
	}
	c.job = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)

	if cleaner, ok := c.engine.(Cleaner); ok {
		reqCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()
		return cleaner.Cleanup(reqCtx, j.id)
	}
	return nil
}

// Wait blocks until the current job reaches a terminal state, the client is
// closed or ctx is done.
func (c *Client) Wait(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	j := c.job
	c.mu.Unlock()
	if j == nil {
		return Snapshot{}, ErrNoJob
	}

	select {
	case <-j.done:
	case <-c.closing:
		return c.Snapshot(), ErrClientClosed
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotOfLocked(j), j.err
}

// Snapshot returns a copy of the current job state
func (c *Client) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotOfLocked(c.job)
}

// Close halts polling and waits for the poll goroutine to exit. The remote
// job is not stopped; call Stop first for that.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.closing)

	j := c.job
	abandoned := j != nil && j.id != "" && j.status.IsActive()
	if j != nil && j.cancel != nil {
		j.cancel()
	}
	c.mu.Unlock()

	c.wg.Wait()

	if abandoned {
		metrics.RecordJobFinished("abandoned", time.Since(j.startedAt).Seconds())
	}
	return nil
}

// finishLocked moves j to a terminal status and halts its polling.
func (c *Client) finishLocked(j *job, status models.JobStatus) *Summary {
	previous := j.status
	j.status = status
	j.finishedAt = time.Now()
	if j.cancel != nil {
		j.cancel()
	}
	close(j.done)

	s := &Summary{
		JobID:        j.id,
		Status:       status,
		Days:         j.results.Len(),
		FinalMetrics: j.final,
		StartedAt:    j.startedAt,
		FinishedAt:   j.finishedAt,
	}
	if j.err != nil {
		s.Error = j.err.Error()
	}
	c.audit.LogJobStateChange(j.id, string(previous), string(status))
	return s
}

func (c *Client) recordFinished(s Summary) {
	duration := s.FinishedAt.Sub(s.StartedAt)
	metrics.RecordJobFinished(string(s.Status), duration.Seconds())
	c.logger.LogJobFinished(s.JobID, string(s.Status), s.Days, duration)
	if c.history != nil {
		c.history.Record(s)
	}
}

func (c *Client) snapshotLocked() Snapshot {
	return c.snapshotOfLocked(c.job)
}

func (c *Client) snapshotOfLocked(j *job) Snapshot {
	c.version++
	if j == nil {
		return Snapshot{
			Version: c.version,
			Status:  models.JobStatusIdle,
			Results: []models.DayResult{},
		}
	}

	s := Snapshot{
		Version:      c.version,
		JobID:        j.id,
		Status:       j.status,
		Progress:     NewProgress(j.results.Len(), j.progress, j.status == models.JobStatusCompleted),
		Results:      j.results.Days(),
		FinalMetrics: j.final,
		StartedAt:    j.startedAt,
		FinishedAt:   j.finishedAt,
	}
	if j.err != nil {
		s.Error = j.err.Error()
	}
	if j.pollErr != nil {
		s.LastPollError = j.pollErr.Error()
	}
	return s
}

// notify delivers snap to observers, dropping it if a newer snapshot was
// already delivered.
func (c *Client) notify(snap Snapshot) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	if snap.Version <= c.lastNotified {
		return
	}
	c.lastNotified = snap.Version

	c.observerMu.RLock()
	observers := make([]func(Snapshot), len(c.observers))
	copy(observers, c.observers)
	c.observerMu.RUnlock()

	for _, fn := range observers {
		fn(snap)
	}
}
