package run

import (
	"sync"
	"time"

	"github.com/rift-labs/rift-core/internal/domain"
)

// Store is the in-process registry of active runs, the sole authority on
// whether a submission fingerprint currently has a run in flight.
//
// The registry is not durable: a process restart loses dedup state. A
// fresh submission after restart therefore starts a new run even when
// the previous one never reached a terminal status. This is a known
// limitation, not an oversight.
//
// All mutations go through a single mutex so the "exactly one active run
// per fingerprint" invariant holds without read-modify-write races.
type Store struct {
	mu            sync.Mutex
	byFingerprint map[string]*Run
	byID          map[string]*Run
}

// NewStore creates an empty run registry.
func NewStore() *Store {
	return &Store{
		byFingerprint: make(map[string]*Run),
		byID:          make(map[string]*Run),
	}
}

// RegisterQueued adds a freshly queued run. Fails with domain.ErrConflict
// when the fingerprint already has an active entry; callers are expected
// to check ActiveByFingerprint first and project the duplicate response.
func (s *Store) RegisterQueued(r *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, active := s.byFingerprint[r.Fingerprint]; active {
		return domain.ErrConflict
	}
	cp := *r
	s.byFingerprint[cp.Fingerprint] = &cp
	s.byID[cp.ID] = &cp
	return nil
}

// MarkRunning transitions a run to running. Unknown ids are ignored:
// the status channel may outlive an evicted run.
func (s *Store) MarkRunning(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok || r.Status.Terminal() {
		return
	}
	r.Status = StatusRunning
	r.UpdatedAt = time.Now().UTC()
}

// UpdateProgress records the latest node and iteration reported for a run.
func (s *Store) UpdateProgress(id, node string, iteration int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return
	}
	r.CurrentNode = node
	r.Iteration = iteration
	r.UpdatedAt = time.Now().UTC()
}

// MarkComplete retires a run: idempotent, and eviction immediately frees
// the fingerprint for a new submission. The durable artifact outlives
// this entry.
func (s *Store) MarkComplete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byID, id)
	delete(s.byFingerprint, r.Fingerprint)
}

// ActiveByFingerprint returns the active run for a fingerprint, or nil.
func (s *Store) ActiveByFingerprint(fp string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byFingerprint[fp]
	if !ok {
		return nil
	}
	cp := *r
	return &cp
}

// ActiveByID returns the active run with the given id, or nil.
func (s *Store) ActiveByID(id string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return nil
	}
	cp := *r
	return &cp
}

// DuplicateResponse is the contract shape returned for a duplicate
// submission against an active fingerprint.
type DuplicateResponse struct {
	RunID      string `json:"run_id"`
	BranchName string `json:"branch_name"`
	Status     string `json:"status"`
	SocketRoom string `json:"socket_room"`
	Message    string `json:"message"`
}

// ToDuplicateResponse projects an active run into the duplicate-submission
// contract shape.
func ToDuplicateResponse(r *Run) DuplicateResponse {
	return DuplicateResponse{
		RunID:      r.ID,
		BranchName: r.BranchName,
		Status:     string(r.Status),
		SocketRoom: r.ID,
		Message:    "a run for this submission is already in progress",
	}
}
