package metrics

import "github.com/prometheus/client_golang/prometheus"

// Rule compiler counters
var (
	RulesCompiledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stratsim",
		Name:      "rules_compiled_total",
		Help:      "Total number of trading rules compiled from strategy text",
	})
	RuleDiagnosticsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stratsim",
		Name:      "rule_diagnostics_total",
		Help:      "Total number of strategy lines rejected by the rule compiler",
	})
)

// RecordCompile records the outcome of compiling one strategy text.
func RecordCompile(rules, diagnostics int) {
	RulesCompiledTotal.Add(float64(rules))
	RuleDiagnosticsTotal.Add(float64(diagnostics))
}
