package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// SimulationLogger provides dedicated logging for simulation job lifecycles.
type SimulationLogger struct {
	*logrus.Entry
}

// NewSimulationLogger creates a new simulation logger.
func NewSimulationLogger(baseLogger *logrus.Logger) *SimulationLogger {
	return &SimulationLogger{
		Entry: baseLogger.WithField("component", "simulation"),
	}
}

// LogJobStarting logs a start request before it reaches the engine.
func (sl *SimulationLogger) LogJobStarting(frequency string, durationDays, holdings, rules int) {
	sl.WithFields(logrus.Fields{
		"trading_frequency": frequency,
		"duration_days":     durationDays,
		"holdings":          holdings,
		"rules":             rules,
	}).Info("Starting simulation")
}

// LogJobStarted logs an engine-accepted job.
func (sl *SimulationLogger) LogJobStarted(jobID string, expectedTicks int) {
	sl.WithFields(logrus.Fields{
		"job_id":         jobID,
		"expected_ticks": expectedTicks,
	}).Info("Simulation started")
}

// LogJobRejected logs a start the engine declined.
func (sl *SimulationLogger) LogJobRejected(reason string) {
	sl.WithField("reason", reason).Warn("Simulation start rejected")
}

// LogPollMerged logs one poll response merged into the result log.
func (sl *SimulationLogger) LogPollMerged(jobID string, added, duplicates, total int, progress float64) {
	sl.WithFields(logrus.Fields{
		"job_id":     jobID,
		"added":      added,
		"duplicates": duplicates,
		"total_days": total,
		"progress":   progress,
	}).Debug("Poll merged")
}

// LogPollFailed logs a transient poll failure. The job keeps running.
func (sl *SimulationLogger) LogPollFailed(jobID string, err error) {
	sl.WithFields(logrus.Fields{
		"job_id": jobID,
		"error":  err.Error(),
	}).Warn("Status poll failed, will retry")
}

// LogLateResponseDiscarded logs a poll response that arrived after its job ended.
func (sl *SimulationLogger) LogLateResponseDiscarded(jobID string) {
	sl.WithField("job_id", jobID).Debug("Discarded late status response")
}

// LogStopRequested logs a stop request for the running job.
func (sl *SimulationLogger) LogStopRequested(jobID string) {
	sl.WithField("job_id", jobID).Info("Stop requested")
}

// LogStopFailed logs a stop the engine did not acknowledge.
func (sl *SimulationLogger) LogStopFailed(jobID string, err error) {
	sl.WithFields(logrus.Fields{
		"job_id": jobID,
		"error":  err.Error(),
	}).Error("Stop failed, simulation still running")
}

// LogJobFinished logs a job reaching a terminal state.
func (sl *SimulationLogger) LogJobFinished(jobID, status string, days int, duration time.Duration) {
	entry := sl.WithFields(logrus.Fields{
		"job_id":      jobID,
		"status":      status,
		"total_days":  days,
		"duration_ms": duration.Milliseconds(),
	})
	if status == "failed" {
		entry.Error("Simulation finished")
		return
	}
	entry.Info("Simulation finished")
}
