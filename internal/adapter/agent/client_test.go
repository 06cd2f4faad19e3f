package agent_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rift-labs/rift-core/internal/adapter/agent"
	"github.com/rift-labs/rift-core/internal/domain"
	"github.com/rift-labs/rift-core/internal/port/agentclient"
	"github.com/rift-labs/rift-core/internal/resilience"
)

func TestClientStart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/agent/start" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var req agentclient.StartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode start request: %v", err)
		}
		if req.BranchName != "TEAM_LEADER_AI_Fix" {
			t.Errorf("branch = %s", req.BranchName)
		}
		_ = json.NewEncoder(w).Encode(agentclient.StartResponse{Accepted: true, RunID: req.RunID})
	}))
	defer srv.Close()

	c := agent.NewClient(srv.URL)
	resp, err := c.Start(context.Background(), agentclient.StartRequest{
		RunID:      "run_1",
		RepoURL:    "https://github.com/acme/repo",
		BranchName: "TEAM_LEADER_AI_Fix",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if resp.RunID != "run_1" {
		t.Fatalf("run id = %s", resp.RunID)
	}
}

func TestClientStartRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(agentclient.StartResponse{Accepted: false})
	}))
	defer srv.Close()

	c := agent.NewClient(srv.URL)
	if _, err := c.Start(context.Background(), agentclient.StartRequest{RunID: "run_1"}); err == nil {
		t.Fatal("rejected start returned no error")
	}
}

func TestClientStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("run_id"); got != "run_1" {
			t.Errorf("run_id = %s", got)
		}
		_ = json.NewEncoder(w).Encode(agentclient.StatusResponse{
			RunID: "run_1", Status: "running", CurrentNode: "ci_monitor", Iteration: 2,
		})
	}))
	defer srv.Close()

	c := agent.NewClient(srv.URL)
	st, err := c.Status(context.Background(), "run_1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Status != "running" || st.CurrentNode != "ci_monitor" {
		t.Fatalf("status = %+v", st)
	}
}

func TestClientQueryPassesThroughNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"answer":"run not finished"}`))
	}))
	defer srv.Close()

	c := agent.NewClient(srv.URL)
	status, body, err := c.Query(context.Background(), "run_1", []byte(`{"run_id":"run_1","question":"why"}`))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want verbatim 422", status)
	}
	if string(body) != `{"answer":"run not finished"}` {
		t.Fatalf("body = %s", body)
	}
}

func TestClientUnreachable(t *testing.T) {
	c := agent.NewClient("http://127.0.0.1:1")
	if _, err := c.Status(context.Background(), "run_1"); !errors.Is(err, domain.ErrAgentUnreachable) {
		t.Fatalf("err = %v, want ErrAgentUnreachable", err)
	}
}

func TestClientBreakerOpensAfterFailures(t *testing.T) {
	c := agent.NewClient("http://127.0.0.1:1")
	c.SetBreaker(resilience.NewBreaker(2, time.Minute))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := c.Status(ctx, "run_1"); err == nil {
			t.Fatal("unreachable agent answered")
		}
	}

	// Third call short-circuits on the open breaker and still maps to
	// the unreachable sentinel.
	_, err := c.Status(ctx, "run_1")
	if !errors.Is(err, domain.ErrAgentUnreachable) {
		t.Fatalf("err = %v, want ErrAgentUnreachable via open circuit", err)
	}
}
