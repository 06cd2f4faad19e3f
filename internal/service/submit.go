package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rift-labs/rift-core/internal/contract"
	"github.com/rift-labs/rift-core/internal/domain"
	"github.com/rift-labs/rift-core/internal/domain/run"
	"github.com/rift-labs/rift-core/internal/port/messagequeue"
	"github.com/rift-labs/rift-core/internal/port/runlog"
)

// SubmitResponse is the 202 contract shape for an accepted submission.
type SubmitResponse struct {
	RunID       string `json:"run_id"`
	BranchName  string `json:"branch_name"`
	Status      string `json:"status"`
	SocketRoom  string `json:"socket_room"`
	Fingerprint string `json:"fingerprint"`
}

// DuplicateError carries the duplicate-submission projection for an
// active fingerprint. Wraps domain.ErrConflict.
type DuplicateError struct {
	Response run.DuplicateResponse
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("active run %s already exists for this submission", e.Response.RunID)
}

func (e *DuplicateError) Unwrap() error { return domain.ErrConflict }

// Submitter accepts healing run requests: it guarantees idempotent
// submission via the fingerprint registry, then queues the work. The
// local registration is the authoritative record of intent; the durable
// write and the enqueue are best-effort side effects.
type Submitter struct {
	runs          *run.Store
	queue         messagequeue.Queue
	gate          *contract.Gate
	history       runlog.Store
	maxIterations int
}

// NewSubmitter creates the submission service.
func NewSubmitter(runs *run.Store, queue messagequeue.Queue, gate *contract.Gate, history runlog.Store, maxIterations int) *Submitter {
	return &Submitter{
		runs:          runs,
		queue:         queue,
		gate:          gate,
		history:       history,
		maxIterations: maxIterations,
	}
}

// Submit validates a raw submission body and registers a new run.
// Returns a *contract.ValidationError for non-conforming input and a
// *DuplicateError when the fingerprint already has an active run.
func (s *Submitter) Submit(ctx context.Context, body []byte) (SubmitResponse, error) {
	if err := s.gate.Validate(contract.ShapeSubmitRequest, body); err != nil {
		return SubmitResponse{}, err
	}

	var req run.SubmitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return SubmitResponse{}, fmt.Errorf("decode submission: %w", domain.ErrValidation)
	}

	branch, err := run.FormatBranchName(req.TeamName, req.LeaderName)
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("%s: %w", err, domain.ErrValidation)
	}

	fp := run.Fingerprint(req.RepoURL, req.TeamName, req.LeaderName)
	if active := s.runs.ActiveByFingerprint(fp); active != nil {
		return SubmitResponse{}, s.duplicate(active)
	}

	now := time.Now().UTC()
	r := &run.Run{
		ID:          run.NewID(),
		Fingerprint: fp,
		RepoURL:     req.RepoURL,
		TeamName:    req.TeamName,
		LeaderName:  req.LeaderName,
		BranchName:  branch,
		Status:      run.StatusQueued,
		CurrentNode: "queued",
		MaxIter:     s.maxIterations,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.runs.RegisterQueued(r); err != nil {
		// Lost a race with a concurrent identical submission.
		if active := s.runs.ActiveByFingerprint(fp); active != nil {
			return SubmitResponse{}, s.duplicate(active)
		}
		return SubmitResponse{}, err
	}

	// Best-effort side effects. The registry entry above is the record
	// of intent; neither failure is surfaced to the caller.
	if err := s.history.InsertRun(ctx, runlog.RunRecord{
		RunID:       r.ID,
		Fingerprint: r.Fingerprint,
		RepoURL:     r.RepoURL,
		TeamName:    r.TeamName,
		LeaderName:  r.LeaderName,
		BranchName:  r.BranchName,
		Status:      string(r.Status),
	}); err != nil {
		slog.Warn("run history write failed", "run_id", r.ID, "error", err)
	}

	if err := s.enqueue(ctx, r); err != nil {
		slog.Warn("enqueue failed, run stays queued", "run_id", r.ID, "error", err)
	}

	resp := SubmitResponse{
		RunID:       r.ID,
		BranchName:  r.BranchName,
		Status:      string(run.StatusQueued),
		SocketRoom:  r.ID,
		Fingerprint: r.Fingerprint,
	}

	// Our own response must conform to its published schema.
	encoded, err := json.Marshal(resp)
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("encode submit response: %w", domain.ErrContract)
	}
	if err := s.gate.Validate(contract.ShapeSubmitResponse, encoded); err != nil {
		var vErr *contract.ValidationError
		if errors.As(err, &vErr) {
			slog.Error("submit response failed own schema", "run_id", r.ID, "error", err)
			return SubmitResponse{}, domain.ErrContract
		}
		return SubmitResponse{}, err
	}

	return resp, nil
}

// duplicate projects an already-active run into the conflict body.
// The projection is an outbound payload like any other and gets the
// same schema check as the accepted-submission response.
func (s *Submitter) duplicate(active *run.Run) error {
	resp := run.ToDuplicateResponse(active)
	encoded, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode duplicate response: %w", domain.ErrContract)
	}
	if err := s.gate.Validate(contract.ShapeDuplicateResponse, encoded); err != nil {
		slog.Error("duplicate response failed own schema", "run_id", active.ID, "error", err)
		return domain.ErrContract
	}
	return &DuplicateError{Response: resp}
}

func (s *Submitter) enqueue(ctx context.Context, r *run.Run) error {
	job := Job{
		RunID:         r.ID,
		RepoURL:       r.RepoURL,
		TeamName:      r.TeamName,
		LeaderName:    r.LeaderName,
		BranchName:    r.BranchName,
		MaxIterations: r.MaxIter,
		FeatureFlags:  DefaultFeatureFlags(),
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return s.queue.Enqueue(ctx, r.ID, data)
}
