// Package server exposes job status, history, metrics and the live update stream over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/strategy-sim/internal/metrics"
	"github.com/yourusername/strategy-sim/internal/scheduler"
	"github.com/yourusername/strategy-sim/internal/simulation"
)

// EngineChecker reports whether the simulation engine is reachable
type EngineChecker interface {
	HealthCheck(ctx context.Context) error
}

// SnapshotSource provides the current job state
type SnapshotSource interface {
	Snapshot() simulation.Snapshot
}

// RunLister provides the last run of each scheduled job
type RunLister interface {
	Runs() []scheduler.RunRecord
}

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

// ReadyResponse represents the JSON response for readiness check endpoints.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// StatusResponse is the /status body
type StatusResponse struct {
	Snapshot simulation.Snapshot `json:"snapshot"`
	Percent  float64             `json:"percent"`
}

// Server serves operational endpoints for a running simulation client
type Server struct {
	serviceName string
	version     string
	commit      string
	port        int
	metricsPath string
	server      *http.Server
	logger      *logrus.Logger
	engine      EngineChecker
	jobs        SnapshotSource
	history     *simulation.History
	runs        RunLister
	stream      http.Handler
	mu          sync.RWMutex
	ready       bool
}

// Config holds the configuration for the server.
type Config struct {
	ServiceName string
	Version     string
	Commit      string
	Port        int
	MetricsPath string
	Logger      *logrus.Logger
	Engine      EngineChecker
	Jobs        SnapshotSource
	History     *simulation.History
	Runs        RunLister
	Stream      http.Handler
}

// NewServer creates a new server. Optional dependencies left nil disable their endpoints.
func NewServer(cfg Config) *Server {
	port := cfg.Port
	if port == 0 {
		port = 8080
	}
	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	return &Server{
		serviceName: cfg.ServiceName,
		version:     cfg.Version,
		commit:      cfg.Commit,
		port:        port,
		metricsPath: metricsPath,
		logger:      cfg.Logger,
		engine:      cfg.Engine,
		jobs:        cfg.Jobs,
		history:     cfg.History,
		runs:        cfg.Runs,
		stream:      cfg.Stream,
	}
}

// SetReady marks the server as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// IsReady returns whether the server is ready.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Handler returns the routing for all endpoints
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/live", s.handleLive)
	mux.Handle(s.metricsPath, metrics.Handler())
	if s.jobs != nil {
		mux.HandleFunc("/status", s.handleStatus)
	}
	if s.history != nil {
		mux.HandleFunc("/history", s.handleHistory)
	}
	if s.runs != nil {
		mux.HandleFunc("/schedules", s.handleSchedules)
	}
	if s.stream != nil {
		mux.Handle("/ws", s.stream)
	}
	return mux
}

// Start starts the server in the background and shuts it down when ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", s.port),
		Handler:     s.Handler(),
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{
				"port":    s.port,
				"service": s.serviceName,
			}).Info("Status server starting")
		}

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.WithError(err).Error("Status server error")
			}
		}
	}()

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}

	if s.logger != nil {
		s.logger.Info("Status server shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   s.serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.version,
		Commit:    s.commit,
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: s.serviceName,
	})
}

// handleReady reports not_ready until SetReady(true) and while the engine is unreachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	checks := make(map[string]string)
	allHealthy := true

	if !s.IsReady() {
		allHealthy = false
		checks["service"] = "not_ready"
	} else {
		checks["service"] = "ok"
	}

	if s.engine != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := s.engine.HealthCheck(ctx); err != nil {
			allHealthy = false
			checks["engine"] = fmt.Sprintf("error: %v", err)
		} else {
			checks["engine"] = "ok"
		}
	}

	response := ReadyResponse{
		Service:  s.serviceName,
		Checks:   checks,
		Duration: time.Since(start).String(),
	}

	status := http.StatusOK
	response.Status = "ok"
	if !allHealthy {
		response.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, response)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.jobs.Snapshot()
	writeJSON(w, http.StatusOK, StatusResponse{
		Snapshot: snap,
		Percent:  snap.Progress.Percent(),
	})
}

// handleHistory lists finished jobs, or one job with ?job_id=
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("job_id"); id != "" {
		summary, ok := s.history.Get(id)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
			return
		}
		writeJSON(w, http.StatusOK, summary)
		return
	}
	writeJSON(w, http.StatusOK, s.history.List())
}

func (s *Server) handleSchedules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runs.Runs())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
