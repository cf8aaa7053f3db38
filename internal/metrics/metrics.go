// Package metrics provides the centralized Prometheus metrics registry for strategy-sim.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	JobsStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stratsim",
		Name:      "jobs_started_total",
		Help:      "Total number of simulation jobs accepted by the engine",
	})
	JobsRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stratsim",
		Name:      "jobs_rejected_total",
		Help:      "Total number of simulation starts rejected by the engine",
	})
	JobsFinishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stratsim",
		Name:      "jobs_finished_total",
		Help:      "Total number of simulation jobs reaching a terminal state",
	}, []string{"status"})
	PollsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stratsim",
		Name:      "polls_total",
		Help:      "Total number of status polls by outcome",
	}, []string{"outcome"}) // merged, error, discarded
	DaysMergedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stratsim",
		Name:      "days_merged_total",
		Help:      "Total number of new day results merged into job logs",
	})
	DuplicateDaysTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stratsim",
		Name:      "duplicate_days_total",
		Help:      "Total number of re-delivered day results skipped by the merge",
	})
)

// Gauge metrics
var (
	ActiveJobs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "stratsim",
		Name:      "active_jobs",
		Help:      "Number of simulation jobs currently starting, running or stopping",
	})
	JobProgress = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "stratsim",
		Name:      "job_progress_ratio",
		Help:      "Progress of the most recently polled job in [0,1]",
	})
)

// Histogram metrics
var (
	PollLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "stratsim",
		Name:      "poll_latency_seconds",
		Help:      "Latency of status poll round trips in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	JobDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "stratsim",
		Name:      "job_duration_seconds",
		Help:      "Wall clock duration of simulation jobs in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(JobsStartedTotal)
		registry.MustRegister(JobsRejectedTotal)
		registry.MustRegister(JobsFinishedTotal)
		registry.MustRegister(PollsTotal)
		registry.MustRegister(DaysMergedTotal)
		registry.MustRegister(DuplicateDaysTotal)

		registry.MustRegister(ActiveJobs)
		registry.MustRegister(JobProgress)

		registry.MustRegister(PollLatency)
		registry.MustRegister(JobDuration)

		// Register rule compiler metrics
		registry.MustRegister(RulesCompiledTotal)
		registry.MustRegister(RuleDiagnosticsTotal)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordJobStarted records a job accepted by the engine.
func RecordJobStarted() {
	JobsStartedTotal.Inc()
	ActiveJobs.Inc()
}

// RecordJobRejected records a start the engine declined.
func RecordJobRejected() {
	JobsRejectedTotal.Inc()
}

// RecordJobFinished records a job reaching a terminal status.
func RecordJobFinished(status string, durationSeconds float64) {
	JobsFinishedTotal.WithLabelValues(status).Inc()
	ActiveJobs.Dec()
	JobDuration.Observe(durationSeconds)
}

// RecordPoll records one status poll round trip.
func RecordPoll(outcome string, durationSeconds float64) {
	PollsTotal.WithLabelValues(outcome).Inc()
	PollLatency.Observe(durationSeconds)
}

// RecordMerge records the outcome of merging one poll response.
func RecordMerge(added, duplicates int, progress float64) {
	DaysMergedTotal.Add(float64(added))
	DuplicateDaysTotal.Add(float64(duplicates))
	JobProgress.Set(progress)
}
