package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rift-labs/rift-core/internal/domain"
	"github.com/rift-labs/rift-core/internal/port/runlog"
)

// Store implements runlog.Store using PostgreSQL. Writes are issued by
// callers on a best-effort basis; this adapter just reports errors.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a run history store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InsertRun records a freshly submitted run. Re-inserting the same run
// id is an upsert so a redelivered submission never fails here.
func (s *Store) InsertRun(ctx context.Context, rec runlog.RunRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (run_id, fingerprint, repo_url, team_name, leader_name, branch_name, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (run_id) DO UPDATE SET status = EXCLUDED.status, updated_at = now()`,
		rec.RunID, rec.Fingerprint, rec.RepoURL, rec.TeamName, rec.LeaderName, rec.BranchName, rec.Status)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", rec.RunID, err)
	}
	return nil
}

// UpdateRunStatus records a status transition for a run.
func (s *Store) UpdateRunStatus(ctx context.Context, runID, status string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $2, updated_at = now() WHERE run_id = $1`,
		runID, status)
	if err != nil {
		return fmt.Errorf("update run %s status: %w", runID, err)
	}
	return nil
}

// GetRun returns the durable projection of a run.
func (s *Store) GetRun(ctx context.Context, runID string) (*runlog.RunRecord, error) {
	var rec runlog.RunRecord
	err := s.pool.QueryRow(ctx,
		`SELECT run_id, fingerprint, repo_url, team_name, leader_name, branch_name, status, created_at, updated_at
		 FROM runs WHERE run_id = $1`, runID).
		Scan(&rec.RunID, &rec.Fingerprint, &rec.RepoURL, &rec.TeamName, &rec.LeaderName,
			&rec.BranchName, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return &rec, nil
}

// AppendTrace records one execution trace step.
func (s *Store) AppendTrace(ctx context.Context, ev runlog.TraceEvent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO traces (run_id, step_index, agent_node, action_label)
		 VALUES ($1, $2, $3, $4)`,
		ev.RunID, ev.StepIndex, ev.AgentNode, ev.ActionLabel)
	if err != nil {
		return fmt.Errorf("append trace for %s: %w", ev.RunID, err)
	}
	return nil
}

// AppendFix records one applied fix.
func (s *Store) AppendFix(ctx context.Context, fix runlog.FixRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO fixes (run_id, file_path, bug_type, line, status, confidence, commit_sha)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))`,
		fix.RunID, fix.File, fix.BugType, fix.Line, fix.Status, fix.Confidence, fix.CommitSHA)
	if err != nil {
		return fmt.Errorf("append fix for %s: %w", fix.RunID, err)
	}
	return nil
}

// TracesForRun returns a run's trace ordered by step index.
func (s *Store) TracesForRun(ctx context.Context, runID string) ([]runlog.TraceEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, step_index, agent_node, action_label, created_at
		 FROM traces WHERE run_id = $1 ORDER BY step_index ASC, id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("load traces for %s: %w", runID, err)
	}
	defer rows.Close()

	var events []runlog.TraceEvent
	for rows.Next() {
		var ev runlog.TraceEvent
		if err := rows.Scan(&ev.RunID, &ev.StepIndex, &ev.AgentNode, &ev.ActionLabel, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trace: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
