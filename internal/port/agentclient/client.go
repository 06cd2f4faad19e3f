// Package agentclient defines the port for the remote healing agent.
// The agent is an external collaborator reachable only through its
// start/status/stream/query HTTP contract.
package agentclient

import "context"

// StartRequest carries run metadata and feature flags to the agent.
type StartRequest struct {
	RunID         string          `json:"run_id"`
	RepoURL       string          `json:"repo_url"`
	TeamName      string          `json:"team_name"`
	LeaderName    string          `json:"leader_name"`
	BranchName    string          `json:"branch_name"`
	MaxIterations int             `json:"max_iterations"`
	FeatureFlags  map[string]bool `json:"feature_flags"`
}

// StartResponse is the agent's acceptance of a start request.
type StartResponse struct {
	Accepted bool   `json:"accepted"`
	RunID    string `json:"run_id"`
}

// StatusResponse is one poll result from the agent.
type StatusResponse struct {
	RunID       string `json:"run_id"`
	Status      string `json:"status"`
	CurrentNode string `json:"current_node"`
	Iteration   int    `json:"iteration"`
}

// Frame is one decoded event from the agent's stream: the declared event
// type plus its raw payload.
type Frame struct {
	Type string
	Data []byte
}

// Stream is a lazy, finite, non-restartable sequence of frames bounded
// to one job attempt's lifetime. A dropped connection ends the sequence;
// it is not reconnected within the attempt.
type Stream interface {
	// Next blocks for the next frame. Returns io.EOF when the stream
	// ends and the context error when cancelled.
	Next() (Frame, error)

	// Close releases the underlying connection.
	Close() error
}

// Client is the port interface for driving the remote agent.
type Client interface {
	Start(ctx context.Context, req StartRequest) (StartResponse, error)
	Status(ctx context.Context, runID string) (StatusResponse, error)
	OpenStream(ctx context.Context, runID string) (Stream, error)

	// Query proxies a question about a completed run. The agent's HTTP
	// status and body are returned verbatim for pass-through.
	Query(ctx context.Context, runID string, body []byte) (status int, response []byte, err error)
}
