package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rift-labs/rift-core/internal/domain"
	"github.com/rift-labs/rift-core/internal/port/agentclient"
)

// OpenStream opens the agent's live event stream for one run. The stream
// has no timeout of its own; it lives until the server closes it or ctx
// is cancelled by the enclosing poll loop.
func (c *Client) OpenStream(ctx context.Context, runID string) (agentclient.Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/agent/stream?run_id="+url.QueryEscape(runID), nil)
	if err != nil {
		return nil, fmt.Errorf("create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streams.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrAgentUnreachable, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("agent stream error %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	// Thought events can carry large reasoning payloads on a single
	// data line, well past bufio's 64KB default.
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameLineBytes)

	return &sseStream{
		body:    resp.Body,
		scanner: scanner,
	}, nil
}

// maxFrameLineBytes caps a single stream line, matching the gateway's
// request body limit.
const maxFrameLineBytes = 1 << 20

// sseStream decodes server-sent event frames incrementally: a lazy,
// finite, non-restartable sequence bounded to one job attempt.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

// Next blocks for the next complete frame. Returns io.EOF when the
// server ends the stream and the read error (typically the context
// error) when the connection drops.
func (s *sseStream) Next() (agentclient.Frame, error) {
	var eventType string
	var data strings.Builder

	for s.scanner.Scan() {
		line := s.scanner.Text()

		switch {
		case line == "":
			// Blank line terminates a frame. Frames without data
			// (keep-alives) are skipped.
			if eventType != "" && data.Len() > 0 {
				return agentclient.Frame{Type: eventType, Data: []byte(data.String())}, nil
			}
			eventType = ""
			data.Reset()
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
		// Comment lines and unknown fields are ignored.
	}

	if err := s.scanner.Err(); err != nil {
		return agentclient.Frame{}, err
	}
	return agentclient.Frame{}, io.EOF
}

// Close releases the underlying connection.
func (s *sseStream) Close() error {
	return s.body.Close()
}
