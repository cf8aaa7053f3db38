// Package engine talks to the remote portfolio simulation engine over HTTP.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/strategy-sim/internal/logger"
	"github.com/yourusername/strategy-sim/internal/models"
	"github.com/yourusername/strategy-sim/internal/simulation"
)

// Client implements simulation.Engine against the engine's JSON API
type Client struct {
	http    *RateLimitedHTTPClient
	baseURL string
	logger  *logger.EngineLogger
}

var (
	_ simulation.Engine  = (*Client)(nil)
	_ simulation.Cleaner = (*Client)(nil)
)

// NewClient creates an engine client for baseURL
func NewClient(baseURL string, cfg HTTPClientConfig, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Client{
		http:    NewRateLimitedHTTPClient(cfg),
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.NewEngineLogger(log),
	}
}

// BaseURL returns the engine address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Start submits a simulation. A 400 carrying {success:false,error} is a
// rejection, returned as a response rather than an error.
func (c *Client) Start(ctx context.Context, cfg models.SimulationConfig) (*simulation.StartResponse, error) {
	body, err := json.Marshal(newStartRequest(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// starting is not idempotent; never resend it
	resp, err := c.do(withoutRetry(ctx), http.MethodPost, "/start_simulation", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		return nil, readHTTPError(resp)
	}

	var out simulation.StartResponse
	if err := decode(resp.Body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status fetches the progress and results of a simulation
func (c *Client) Status(ctx context.Context, simulationID string) (*simulation.StatusResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, "/simulation_status/"+url.PathEscape(simulationID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrSimulationNotFound, simulationID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, readHTTPError(resp)
	}

	var out simulation.StatusResponse
	if err := decode(resp.Body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stop asks the engine to stop a simulation
func (c *Client) Stop(ctx context.Context, simulationID string) (*simulation.StopResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/stop_simulation/"+url.PathEscape(simulationID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrSimulationNotFound, simulationID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, readHTTPError(resp)
	}

	var out simulation.StopResponse
	if err := decode(resp.Body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cleanup releases a finished simulation held by the engine. Unknown ids are not an error.
func (c *Client) Cleanup(ctx context.Context, simulationID string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/cleanup_simulation/"+url.PathEscape(simulationID), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return readHTTPError(resp)
}

// HealthCheck checks that the engine answers HTTP requests
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.do(withoutRetry(ctx), http.MethodGet, "/", nil)
	if err != nil {
		c.logger.LogHealth(c.baseURL, false)
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		c.logger.LogHealth(c.baseURL, false)
		return fmt.Errorf("%w: status %d", ErrEngineUnavailable, resp.StatusCode)
	}
	c.logger.LogHealth(c.baseURL, true)
	return nil
}

// Close closes idle connections
func (c *Client) Close() error {
	return c.http.Close()
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		c.logger.LogRequestFailed(method, path, err)
		if errors.Is(err, ErrCircuitOpen) || ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	c.logger.LogRequest(method, path, resp.StatusCode, float64(time.Since(start).Microseconds())/1000)
	return resp, nil
}

func decode(r io.Reader, v interface{}) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func readHTTPError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	httpErr := &HTTPError{
		Method:     resp.Request.Method,
		Path:       resp.Request.URL.Path,
		StatusCode: resp.StatusCode,
	}

	var payload errorPayload
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		httpErr.Body = payload.Error
	} else {
		httpErr.Body = strings.TrimSpace(string(body))
	}
	return httpErr
}
