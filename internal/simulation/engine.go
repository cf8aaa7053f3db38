// Package simulation drives remote portfolio simulations: it submits a job to the
// engine, polls its status, merges day results and tracks the job lifecycle.
package simulation

import (
	"context"

	"github.com/yourusername/strategy-sim/internal/models"
)

// Engine is the remote simulation engine the client drives
type Engine interface {
	Start(ctx context.Context, cfg models.SimulationConfig) (*StartResponse, error)
	Status(ctx context.Context, simulationID string) (*StatusResponse, error)
	Stop(ctx context.Context, simulationID string) (*StopResponse, error)
}

// Cleaner is implemented by engines that hold finished jobs until told to release them
type Cleaner interface {
	Cleanup(ctx context.Context, simulationID string) error
}

// StartResponse is the engine's answer to a start request
type StartResponse struct {
	Success      bool   `json:"success"`
	SimulationID string `json:"simulation_id,omitempty"`
	Error        string `json:"error,omitempty"`
}

// StatusResponse reports progress for one job. Results may repeat days already seen.
type StatusResponse struct {
	Progress     float64               `json:"progress"`
	Results      []models.DayResult    `json:"results"`
	IsComplete   bool                  `json:"is_complete"`
	IsRunning    bool                  `json:"is_running"`
	FinalMetrics *models.FinalMetrics `json:"final_metrics,omitempty"`
	Error        string                `json:"error,omitempty"`
}

// StopResponse is the engine's answer to a stop request
type StopResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
