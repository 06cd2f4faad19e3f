// Package run defines the Run domain entity for repository healing attempts.
package run

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a run.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusRunning     Status = "running"
	StatusPassed      Status = "passed"
	StatusFailed      Status = "failed"
	StatusQuarantined Status = "quarantined"
)

// Terminal reports whether s ends a run's active lifetime.
func (s Status) Terminal() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusQuarantined
}

// Valid reports whether s is a known run status.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusPassed, StatusFailed, StatusQuarantined:
		return true
	}
	return false
}

// Run represents a single end-to-end healing attempt for a repository submission.
// At most one non-terminal Run may exist per fingerprint at any instant.
type Run struct {
	ID          string    `json:"run_id"`
	Fingerprint string    `json:"fingerprint"`
	RepoURL     string    `json:"repo_url"`
	TeamName    string    `json:"team_name"`
	LeaderName  string    `json:"leader_name"`
	BranchName  string    `json:"branch_name"`
	Status      Status    `json:"status"`
	CurrentNode string    `json:"current_node"`
	Iteration   int       `json:"iteration"`
	MaxIter     int       `json:"max_iterations"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SubmitRequest holds the fields of an inbound run submission.
type SubmitRequest struct {
	RepoURL    string `json:"repo_url"`
	TeamName   string `json:"team_name"`
	LeaderName string `json:"leader_name"`
}

// NewID generates a globally unique run identifier.
func NewID() string {
	return "run_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Validate checks structural invariants of a Run.
func (r *Run) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("run_id is required")
	}
	if r.Fingerprint == "" {
		return fmt.Errorf("fingerprint is required")
	}
	if r.RepoURL == "" {
		return fmt.Errorf("repo_url is required")
	}
	if !r.Status.Valid() {
		return fmt.Errorf("invalid status %q", r.Status)
	}
	return nil
}

// Graph node names reported by the remote agent, in execution order.
// Used to derive a coarse progress percentage for status queries.
var nodeProgress = map[string]int{
	"queued":        0,
	"repo_scanner":  10,
	"test_runner":   25,
	"ast_analyzer":  40,
	"fix_generator": 55,
	"commit_push":   70,
	"ci_monitor":    85,
	"retry":         25,
	"scorer":        95,
	"done":          100,
	"timeout":       100,
	"error":         100,
}

// ProgressPct maps a run's current node and status to a 0-100 percentage.
// Terminal statuses always report 100 regardless of the last node seen.
func ProgressPct(node string, status Status) int {
	if status.Terminal() {
		return 100
	}
	if pct, ok := nodeProgress[node]; ok {
		return pct
	}
	return 0
}
