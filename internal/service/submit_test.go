package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rift-labs/rift-core/internal/contract"
	"github.com/rift-labs/rift-core/internal/domain"
	"github.com/rift-labs/rift-core/internal/domain/run"
	"github.com/rift-labs/rift-core/internal/service"
)

func newTestSubmitter() (*service.Submitter, *run.Store, *fakeQueue) {
	runs := run.NewStore()
	queue := newFakeQueue()
	s := service.NewSubmitter(runs, queue, contract.New(), newFakeHistory(), 5)
	return s, runs, queue
}

const submitBody = `{"repo_url":"https://github.com/acme/repo","team_name":"team rocket","leader_name":"jessie"}`

func TestSubmitAcceptsAndEnqueues(t *testing.T) {
	s, runs, queue := newTestSubmitter()

	resp, err := s.Submit(context.Background(), []byte(submitBody))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.Status != "queued" {
		t.Fatalf("status = %s, want queued", resp.Status)
	}
	if resp.BranchName != "TEAM_ROCKET_JESSIE_AI_Fix" {
		t.Fatalf("branch = %s", resp.BranchName)
	}
	if resp.SocketRoom != resp.RunID {
		t.Fatalf("socket_room = %s, want the run id %s", resp.SocketRoom, resp.RunID)
	}

	if runs.ActiveByID(resp.RunID) == nil {
		t.Fatal("run not registered")
	}

	queue.mu.Lock()
	enqueued := append([]busMessage(nil), queue.enqueued...)
	queue.mu.Unlock()
	if len(enqueued) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(enqueued))
	}
	if enqueued[0].msgID != resp.RunID {
		t.Fatalf("job msg id = %s, want the run id for idempotent enqueue", enqueued[0].msgID)
	}
	var job service.Job
	if err := json.Unmarshal(enqueued[0].data, &job); err != nil {
		t.Fatalf("job payload undecodable: %v", err)
	}
	if job.BranchName != resp.BranchName || job.RunID != resp.RunID {
		t.Fatalf("job = %+v, want run %s on branch %s", job, resp.RunID, resp.BranchName)
	}
}

func TestSubmitDuplicateReturnsActiveProjection(t *testing.T) {
	s, _, _ := newTestSubmitter()

	first, err := s.Submit(context.Background(), []byte(submitBody))
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}

	// The same triple with cosmetic differences is still a duplicate.
	_, err = s.Submit(context.Background(),
		[]byte(`{"repo_url":"https://github.com/ACME/Repo","team_name":"TEAM ROCKET","leader_name":" Jessie "}`))
	var dup *service.DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("second submit error = %v, want *DuplicateError", err)
	}
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatal("duplicate error does not wrap ErrConflict")
	}
	if dup.Response.RunID != first.RunID {
		t.Fatalf("duplicate projects run %s, want the active %s", dup.Response.RunID, first.RunID)
	}
	if dup.Response.SocketRoom != first.RunID {
		t.Fatalf("socket_room = %s, want %s", dup.Response.SocketRoom, first.RunID)
	}
}

func TestSubmitDuplicateProjectionFailsClosed(t *testing.T) {
	s, runs, _ := newTestSubmitter()

	// Seed an active entry whose projection cannot conform (run ids
	// never contain spaces). The conflict path must refuse to emit it.
	bad := &run.Run{
		ID:          "run 1 bad id",
		Fingerprint: run.Fingerprint("https://github.com/acme/repo", "team rocket", "jessie"),
		RepoURL:     "https://github.com/acme/repo",
		BranchName:  "TEAM_ROCKET_JESSIE_AI_Fix",
		Status:      run.StatusQueued,
	}
	if err := runs.RegisterQueued(bad); err != nil {
		t.Fatalf("seed run: %v", err)
	}

	_, err := s.Submit(context.Background(), []byte(submitBody))
	var dup *service.DuplicateError
	if errors.As(err, &dup) {
		t.Fatalf("malformed projection was emitted: %+v", dup.Response)
	}
	if !errors.Is(err, domain.ErrContract) {
		t.Fatalf("err = %v, want ErrContract", err)
	}
}

func TestSubmitAfterCompletionStartsFreshRun(t *testing.T) {
	s, runs, _ := newTestSubmitter()

	first, err := s.Submit(context.Background(), []byte(submitBody))
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}

	runs.MarkComplete(first.RunID)

	second, err := s.Submit(context.Background(), []byte(submitBody))
	if err != nil {
		t.Fatalf("resubmit after completion: %v", err)
	}
	if second.RunID == first.RunID {
		t.Fatal("resubmission reused the completed run id")
	}
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	s, _, queue := newTestSubmitter()

	bodies := []string{
		`{"team_name":"rocket","leader_name":"jessie"}`,
		`{"repo_url":"https://x.y/z","team_name":"rocket","leader_name":"jessie","surprise":true}`,
		`{"repo_url":"https://x.y/z","team_name":"!!!","leader_name":"jessie"}`,
		`not json`,
	}
	for _, body := range bodies {
		_, err := s.Submit(context.Background(), []byte(body))
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("Submit(%s): error %v does not wrap ErrValidation", body, err)
		}
	}

	queue.mu.Lock()
	defer queue.mu.Unlock()
	if len(queue.enqueued) != 0 {
		t.Fatalf("invalid submissions enqueued %d jobs", len(queue.enqueued))
	}
}
