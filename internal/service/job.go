// Package service implements run orchestration: submission, the worker
// loop driving the remote agent, and the event bridge feeding live
// subscribers.
package service

// Job is the queued unit of work for one healing run. Its queue identity
// equals the owning run id, which makes enqueueing idempotent.
type Job struct {
	RunID         string          `json:"run_id"`
	RepoURL       string          `json:"repo_url"`
	TeamName      string          `json:"team_name"`
	LeaderName    string          `json:"leader_name"`
	BranchName    string          `json:"branch_name"`
	MaxIterations int             `json:"max_iterations"`
	FeatureFlags  map[string]bool `json:"feature_flags"`
}

// DefaultFeatureFlags are forwarded to the agent on every start call.
func DefaultFeatureFlags() map[string]bool {
	return map[string]bool{
		"ENABLE_KB_LOOKUP":            true,
		"ENABLE_SPECULATIVE_BRANCHES": false,
		"ENABLE_ADVERSARIAL_TESTS":    true,
		"ENABLE_CAUSAL_GRAPH":         true,
		"ENABLE_PROVENANCE_PASS":      true,
	}
}
