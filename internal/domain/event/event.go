// Package event defines the typed lifecycle events a run emits and the
// bus subjects they travel on.
package event

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Type identifies one of the five published event variants.
type Type string

const (
	TypeThought       Type = "thought_event"
	TypeFixApplied    Type = "fix_applied"
	TypeCIUpdate      Type = "ci_update"
	TypeTelemetryTick Type = "telemetry_tick"
	TypeRunComplete   Type = "run_complete"
)

// Bus subjects. Each variant has its own subject under the event prefix;
// status updates travel on a distinct subject and never reach subscribers
// directly. Delivery is FIFO per subject; ordering across subjects for
// the same run is not guaranteed.
const (
	SubjectPrefix        = "run.event."
	SubjectEventWildcard = "run.event.>"
	SubjectStatus        = "run.status"
)

// Subject returns the bus subject for an event type.
func (t Type) Subject() string {
	return SubjectPrefix + string(t)
}

// Known reports whether t is one of the five published variants.
func (t Type) Known() bool {
	switch t {
	case TypeThought, TypeFixApplied, TypeCIUpdate, TypeTelemetryTick, TypeRunComplete:
		return true
	}
	return false
}

// TypeFromSubject extracts the event type from a bus subject.
// Returns false for subjects outside the event prefix or unknown variants.
func TypeFromSubject(subject string) (Type, bool) {
	name, ok := strings.CutPrefix(subject, SubjectPrefix)
	if !ok {
		return "", false
	}
	t := Type(name)
	return t, t.Known()
}

// Thought is a reasoning step emitted by the agent graph.
type Thought struct {
	RunID     string `json:"run_id"`
	Node      string `json:"node"`
	Message   string `json:"message"`
	StepIndex int    `json:"step_index"`
	Timestamp string `json:"timestamp"`
}

// FixApplied reports one code fix the agent committed.
type FixApplied struct {
	RunID      string  `json:"run_id"`
	File       string  `json:"file"`
	BugType    string  `json:"bug_type"`
	Line       int     `json:"line"`
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence"`
	CommitSHA  *string `json:"commit_sha"`
}

// CIUpdate reports the outcome of one CI iteration.
type CIUpdate struct {
	RunID      string `json:"run_id"`
	Iteration  int    `json:"iteration"`
	Status     string `json:"status"`
	Regression bool   `json:"regression"`
	Timestamp  string `json:"timestamp"`
}

// TelemetryTick is a periodic resource usage sample from the sandbox.
type TelemetryTick struct {
	RunID       string  `json:"run_id"`
	ContainerID string  `json:"container_id"`
	CPUPct      float64 `json:"cpu_pct"`
	MemMB       float64 `json:"mem_mb"`
	Timestamp   string  `json:"timestamp"`
}

// RunComplete is the single terminal event of a run. Exactly one is
// delivered per run; the room yields nothing afterwards.
type RunComplete struct {
	RunID         string             `json:"run_id"`
	FinalStatus   string             `json:"final_status"`
	Score         map[string]float64 `json:"score"`
	TotalTimeSecs float64            `json:"total_time_secs"`
	PDFURL        string             `json:"pdf_url"`
}

// StatusUpdate travels on the status subject and drives registry state,
// never the broadcaster.
type StatusUpdate struct {
	RunID       string `json:"run_id"`
	Status      string `json:"status"`
	CurrentNode string `json:"current_node"`
	Iteration   int    `json:"iteration"`
}

// RunID extracts the run_id field from a raw event payload without
// committing to a variant shape. An absent or empty run_id is an error.
func RunID(payload []byte) (string, error) {
	var probe struct {
		RunID string `json:"run_id"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return "", fmt.Errorf("parse event payload: %w", err)
	}
	if probe.RunID == "" {
		return "", fmt.Errorf("event payload missing run_id")
	}
	return probe.RunID, nil
}
