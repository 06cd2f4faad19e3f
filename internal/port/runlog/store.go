// Package runlog defines the port for best-effort durable run history.
// Writes here never gate a request: the in-memory registry plus the
// queued job remain the authoritative record of intent, and a write
// failure degrades to a logged warning.
package runlog

import (
	"context"
	"time"
)

// RunRecord is the durable projection of a run.
type RunRecord struct {
	RunID       string    `json:"run_id"`
	Fingerprint string    `json:"fingerprint"`
	RepoURL     string    `json:"repo_url"`
	TeamName    string    `json:"team_name"`
	LeaderName  string    `json:"leader_name"`
	BranchName  string    `json:"branch_name"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TraceEvent is one step of a run's execution trace, ordered by StepIndex.
type TraceEvent struct {
	RunID       string    `json:"run_id"`
	StepIndex   int       `json:"step_index"`
	AgentNode   string    `json:"agent_node"`
	ActionLabel string    `json:"action_label"`
	CreatedAt   time.Time `json:"created_at"`
}

// FixRecord is one applied fix captured from the event stream.
type FixRecord struct {
	RunID      string  `json:"run_id"`
	File       string  `json:"file"`
	BugType    string  `json:"bug_type"`
	Line       int     `json:"line"`
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence"`
	CommitSHA  string  `json:"commit_sha,omitempty"`
}

// Store is the port interface for run history persistence.
type Store interface {
	InsertRun(ctx context.Context, rec RunRecord) error
	UpdateRunStatus(ctx context.Context, runID, status string) error
	GetRun(ctx context.Context, runID string) (*RunRecord, error)
	AppendTrace(ctx context.Context, ev TraceEvent) error
	AppendFix(ctx context.Context, fix FixRecord) error
	TracesForRun(ctx context.Context, runID string) ([]TraceEvent, error)
}
