package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rift-labs/rift-core/internal/port/agentclient"
	"github.com/rift-labs/rift-core/internal/port/runlog"
)

// Querier serves the post-hoc surfaces of a run: trace replay from the
// durable store and question answering proxied to the agent.
type Querier struct {
	agent   agentclient.Client
	history runlog.Store
}

// NewQuerier creates the query service.
func NewQuerier(agent agentclient.Client, history runlog.Store) *Querier {
	return &Querier{agent: agent, history: history}
}

// Trace returns a run's execution trace ordered by step index.
func (q *Querier) Trace(ctx context.Context, runID string) ([]runlog.TraceEvent, error) {
	events, err := q.history.TracesForRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("trace replay for %s: %w", runID, err)
	}
	if events == nil {
		events = []runlog.TraceEvent{}
	}
	return events, nil
}

// Ask proxies a question about a completed run to the agent. The
// agent's status code and body pass through verbatim.
func (q *Querier) Ask(ctx context.Context, runID, question string) (int, []byte, error) {
	body, err := json.Marshal(map[string]string{
		"run_id":   runID,
		"question": question,
	})
	if err != nil {
		return 0, nil, fmt.Errorf("marshal query: %w", err)
	}
	return q.agent.Query(ctx, runID, body)
}
