package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineUnavailable indicates the simulation engine is unreachable
	ErrEngineUnavailable = errors.New("simulation engine unavailable")

	// ErrSimulationNotFound indicates the engine does not know the simulation id
	ErrSimulationNotFound = errors.New("simulation not found")

	// ErrCircuitOpen indicates requests are short-circuited after repeated failures
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrInvalidResponse indicates a response body that could not be decoded
	ErrInvalidResponse = errors.New("invalid response from simulation engine")
)

// HTTPError represents an unexpected status code from the engine
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}
