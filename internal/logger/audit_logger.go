// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogJobSubmitted records who submitted a simulation and with what inputs.
func (al *AuditLogger) LogJobSubmitted(jobID, source string, initialCash string, startDate time.Time, durationDays int, frequency string, tickers []string) {
	al.WithFields(logrus.Fields{
		"job_id":            jobID,
		"source":            source,
		"initial_cash":      initialCash,
		"start_date":        startDate.Format("2006-01-02"),
		"duration_days":     durationDays,
		"trading_frequency": frequency,
		"tickers":           tickers,
	}).Info("Simulation submitted")
}

// LogJobStateChange records a job status transition.
func (al *AuditLogger) LogJobStateChange(jobID, oldState, newState string) {
	al.WithFields(logrus.Fields{
		"job_id":    jobID,
		"old_state": oldState,
		"new_state": newState,
	}).Info("Simulation state changed")
}

// LogScheduledRunSkipped records a scheduled run that could not start.
func (al *AuditLogger) LogScheduledRunSkipped(schedule, reason string) {
	al.WithFields(logrus.Fields{
		"schedule": schedule,
		"reason":   reason,
	}).Warn("Scheduled simulation skipped")
}
