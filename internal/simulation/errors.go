package simulation

import (
	"errors"
	"fmt"
)

var (
	// ErrJobActive indicates a start was attempted while another job is starting, running or stopping
	ErrJobActive = errors.New("a simulation is already active")

	// ErrNoRunningJob indicates stop was called without a running job
	ErrNoRunningJob = errors.New("no running simulation")

	// ErrNoJob indicates there is no job to act on
	ErrNoJob = errors.New("no simulation")

	// ErrJobNotFinished indicates an acknowledge on a job that has not reached a terminal state
	ErrJobNotFinished = errors.New("simulation has not finished")

	// ErrClientClosed indicates the client was closed
	ErrClientClosed = errors.New("simulation client closed")
)

// StartRejectedError is returned when the engine declines to start a job
type StartRejectedError struct {
	Reason string
	Cause  error
}

func (e *StartRejectedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("simulation start rejected: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("simulation start rejected: %s", e.Reason)
}

func (e *StartRejectedError) Unwrap() error {
	return e.Cause
}

// SimulationFailedError is recorded when the engine completes a job with an error
type SimulationFailedError struct {
	JobID   string
	Message string
}

func (e *SimulationFailedError) Error() string {
	return fmt.Sprintf("simulation %s failed: %s", e.JobID, e.Message)
}

// StopFailedError is returned when the engine does not acknowledge a stop.
// The job keeps running and the stop may be retried.
type StopFailedError struct {
	JobID string
	Cause error
}

func (e *StopFailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("stop simulation %s: %v", e.JobID, e.Cause)
	}
	return fmt.Sprintf("stop simulation %s: not acknowledged", e.JobID)
}

func (e *StopFailedError) Unwrap() error {
	return e.Cause
}

// PollError records a failed status request. It never changes the job state.
type PollError struct {
	JobID string
	Cause error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("poll simulation %s: %v", e.JobID, e.Cause)
}

func (e *PollError) Unwrap() error {
	return e.Cause
}
