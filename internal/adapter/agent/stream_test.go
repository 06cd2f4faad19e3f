package agent_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rift-labs/rift-core/internal/adapter/agent"
	"github.com/rift-labs/rift-core/internal/domain"
)

func TestOpenStreamDecodesFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/agent/stream" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("run_id"); got != "run_1" {
			t.Errorf("run_id = %s", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event: thought_event\n")
		_, _ = io.WriteString(w, `data: {"run_id":"run_1","node":"ast_analyzer"}`+"\n")
		_, _ = io.WriteString(w, "\n")
		_, _ = io.WriteString(w, ": keep-alive comment\n")
		_, _ = io.WriteString(w, "\n")
		_, _ = io.WriteString(w, "event: fix_applied\n")
		_, _ = io.WriteString(w, `data: {"run_id":"run_1",`+"\n")
		_, _ = io.WriteString(w, `data: "file":"a.py"}`+"\n")
		_, _ = io.WriteString(w, "\n")
	}))
	defer srv.Close()

	c := agent.NewClient(srv.URL)
	stream, err := c.OpenStream(context.Background(), "run_1")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer func() { _ = stream.Close() }()

	first, err := stream.Next()
	if err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if first.Type != "thought_event" {
		t.Fatalf("first frame type = %s", first.Type)
	}
	if string(first.Data) != `{"run_id":"run_1","node":"ast_analyzer"}` {
		t.Fatalf("first frame data = %s", first.Data)
	}

	second, err := stream.Next()
	if err != nil {
		t.Fatalf("second frame: %v", err)
	}
	if second.Type != "fix_applied" {
		t.Fatalf("second frame type = %s", second.Type)
	}
	// Multi-line data joins with a newline.
	if string(second.Data) != `{"run_id":"run_1",`+"\n"+`"file":"a.py"}` {
		t.Fatalf("second frame data = %q", second.Data)
	}

	if _, err := stream.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("after server close: err = %v, want io.EOF", err)
	}
}

func TestOpenStreamOversizedDataLine(t *testing.T) {
	// A thought_event whose data line is far past bufio's 64KB default
	// scan limit must still come through as one frame.
	big := `{"run_id":"run_1","thought":"` + strings.Repeat("x", 200*1024) + `"}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event: thought_event\n")
		_, _ = io.WriteString(w, "data: "+big+"\n")
		_, _ = io.WriteString(w, "\n")
	}))
	defer srv.Close()

	c := agent.NewClient(srv.URL)
	stream, err := c.OpenStream(context.Background(), "run_1")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer func() { _ = stream.Close() }()

	frame, err := stream.Next()
	if err != nil {
		t.Fatalf("oversized frame: %v", err)
	}
	if frame.Type != "thought_event" {
		t.Fatalf("frame type = %s", frame.Type)
	}
	if string(frame.Data) != big {
		t.Fatalf("frame data mangled: got %d bytes, want %d", len(frame.Data), len(big))
	}
}

func TestOpenStreamNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := agent.NewClient(srv.URL)
	if _, err := c.OpenStream(context.Background(), "run_1"); err == nil {
		t.Fatal("stream opened against a 404")
	}
}

func TestOpenStreamUnreachable(t *testing.T) {
	c := agent.NewClient("http://127.0.0.1:1")
	_, err := c.OpenStream(context.Background(), "run_1")
	if !errors.Is(err, domain.ErrAgentUnreachable) {
		t.Fatalf("err = %v, want ErrAgentUnreachable", err)
	}
}
