package logger

import (
	"github.com/sirupsen/logrus"
)

// RuleLogger logs strategy compilation results.
type RuleLogger struct {
	*logrus.Entry
}

// NewRuleLogger creates a new rule logger.
func NewRuleLogger(baseLogger *logrus.Logger) *RuleLogger {
	return &RuleLogger{
		Entry: baseLogger.WithField("component", "rules"),
	}
}

// LogCompiled logs the outcome of compiling one strategy text.
func (rl *RuleLogger) LogCompiled(source string, rules, diagnostics int) {
	entry := rl.WithFields(logrus.Fields{
		"source":      source,
		"rules":       rules,
		"diagnostics": diagnostics,
	})
	if rules == 0 {
		entry.Warn("No trading rules compiled")
		return
	}
	entry.Info("Strategy compiled")
}

// LogDiagnostic logs a rejected strategy line.
func (rl *RuleLogger) LogDiagnostic(source string, line int, text, reason string) {
	rl.WithFields(logrus.Fields{
		"source": source,
		"line":   line,
		"text":   text,
		"reason": reason,
	}).Debug("Strategy line rejected")
}
