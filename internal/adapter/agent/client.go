// Package agent provides the HTTP client for the remote healing agent's
// start/status/stream/query contract.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rift-labs/rift-core/internal/domain"
	"github.com/rift-labs/rift-core/internal/port/agentclient"
	"github.com/rift-labs/rift-core/internal/resilience"
)

// Client talks to the remote agent service.
type Client struct {
	baseURL string
	// api carries the short request/response calls; stream connections
	// are bounded by their context instead of a client timeout.
	api     *http.Client
	streams *http.Client
	breaker *resilience.Breaker
}

// NewClient creates a new agent client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		api: &http.Client{
			Timeout: 30 * time.Second,
		},
		streams: &http.Client{},
	}
}

// SetBreaker attaches a circuit breaker to the request/response calls.
// The stream read is deliberately outside the breaker: one long-lived
// connection must not trip it.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// Start submits a run to the agent. The caller bounds the call with a
// hard deadline on ctx; a non-2xx or rejected response is an error.
func (c *Client) Start(ctx context.Context, req agentclient.StartRequest) (agentclient.StartResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return agentclient.StartResponse{}, fmt.Errorf("marshal start request: %w", err)
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/agent/start", body)
	if err != nil {
		return agentclient.StartResponse{}, fmt.Errorf("agent start: %w", err)
	}

	var resp agentclient.StartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return agentclient.StartResponse{}, fmt.Errorf("unmarshal start response: %w", err)
	}
	if !resp.Accepted {
		return resp, fmt.Errorf("agent rejected run %s", req.RunID)
	}
	return resp, nil
}

// Status polls the agent for the current state of a run.
func (c *Client) Status(ctx context.Context, runID string) (agentclient.StatusResponse, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/agent/status?run_id="+url.QueryEscape(runID), nil)
	if err != nil {
		return agentclient.StatusResponse{}, fmt.Errorf("agent status: %w", err)
	}

	var resp agentclient.StatusResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return agentclient.StatusResponse{}, fmt.Errorf("unmarshal status response: %w", err)
	}
	return resp, nil
}

// Query proxies a question about a completed run. The agent's status
// code and body are returned verbatim so the gateway can pass through
// non-2xx answers unchanged.
func (c *Client) Query(ctx context.Context, runID string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/agent/query", bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("create query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var status int
	var response []byte
	call := func() error {
		resp, err := c.api.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %s", domain.ErrAgentUnreachable, err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read query response: %w", err)
		}
		status = resp.StatusCode
		response = data
		return nil
	}

	if err := c.execute(call); err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return 0, nil, fmt.Errorf("%w: %s", domain.ErrAgentUnreachable, err)
		}
		return 0, nil, err
	}
	_ = runID // run id travels in the body per the agent contract
	return status, response, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.api.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %s", domain.ErrAgentUnreachable, err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("agent API error %d: %s", resp.StatusCode, string(data))
		}

		result = data
		return nil
	}

	if err := c.execute(call); err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAgentUnreachable, err)
		}
		return nil, err
	}
	return result, nil
}

func (c *Client) execute(call func() error) error {
	if c.breaker != nil {
		return c.breaker.Execute(call)
	}
	return call()
}
