package logger

import (
	"github.com/sirupsen/logrus"
)

// EngineLogger provides dedicated logging for simulation engine requests.
type EngineLogger struct {
	*logrus.Entry
}

// NewEngineLogger creates a new engine logger.
func NewEngineLogger(baseLogger *logrus.Logger) *EngineLogger {
	return &EngineLogger{
		Entry: baseLogger.WithField("component", "engine"),
	}
}

// LogRequest logs a completed engine request.
func (el *EngineLogger) LogRequest(method, path string, statusCode int, latencyMs float64) {
	el.WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status_code": statusCode,
		"latency_ms":  latencyMs,
	}).Debug("Engine request completed")
}

// LogRequestFailed logs an engine request that produced no usable response.
func (el *EngineLogger) LogRequestFailed(method, path string, err error) {
	el.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"error":  err.Error(),
	}).Warn("Engine request failed")
}

// LogHealth logs the result of an engine health probe.
func (el *EngineLogger) LogHealth(baseURL string, healthy bool) {
	entry := el.WithFields(logrus.Fields{
		"base_url": baseURL,
		"healthy":  healthy,
	})
	if healthy {
		entry.Info("Simulation engine reachable")
		return
	}
	entry.Warn("Simulation engine unreachable")
}
