package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rift-labs/rift-core/internal/config"
	"github.com/rift-labs/rift-core/internal/domain/event"
	"github.com/rift-labs/rift-core/internal/domain/run"
	"github.com/rift-labs/rift-core/internal/port/agentclient"
	"github.com/rift-labs/rift-core/internal/port/messagequeue"
)

// Worker consumes queued healing jobs and drives the remote agent to
// completion: one start call under a hard timeout, then a live stream
// read bridged onto the bus concurrently with a bounded status poll.
type Worker struct {
	agent agentclient.Client
	queue messagequeue.Queue
	cfg   config.Agent
}

// NewWorker creates the worker loop.
func NewWorker(agent agentclient.Client, queue messagequeue.Queue, cfg config.Agent) *Worker {
	return &Worker{agent: agent, queue: queue, cfg: cfg}
}

// Start registers the worker on the job queue. The returned function
// stops consumption.
func (w *Worker) Start(ctx context.Context) (func(), error) {
	return w.queue.ConsumeJobs(ctx, w.handle)
}

// handle runs one job attempt. A returned error fails the attempt and
// lets the queue's retry policy redeliver; a nil return acknowledges the
// job regardless of the run's outcome.
func (w *Worker) handle(ctx context.Context, data []byte) error {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		// Poison message: retrying cannot help.
		slog.Error("discarding undecodable job", "error", err)
		return nil
	}

	// The push-target guard runs again here, independent of wherever
	// the branch name came from.
	if err := run.GuardPushTarget(job.BranchName); err != nil {
		slog.Error("job rejected by branch guard", "run_id", job.RunID, "error", err)
		w.publishStatus(ctx, job.RunID, string(run.StatusFailed), "error", 0)
		return nil
	}

	startCtx, cancelStart := context.WithTimeout(ctx, w.cfg.StartTimeout)
	defer cancelStart()

	if _, err := w.agent.Start(startCtx, agentclient.StartRequest{
		RunID:         job.RunID,
		RepoURL:       job.RepoURL,
		TeamName:      job.TeamName,
		LeaderName:    job.LeaderName,
		BranchName:    job.BranchName,
		MaxIterations: job.MaxIterations,
		FeatureFlags:  job.FeatureFlags,
	}); err != nil {
		return err
	}

	slog.Info("agent accepted run", "run_id", job.RunID)
	w.publishStatus(ctx, job.RunID, string(run.StatusRunning), "repo_scanner", 0)

	// The stream lives exactly as long as polling; the poll loop's exit
	// cancels it on every path.
	streamCtx, cancelStream := context.WithCancel(ctx)
	defer cancelStream()

	var g errgroup.Group
	g.Go(func() error {
		w.bridgeStream(streamCtx, job.RunID)
		return nil
	})

	w.poll(ctx, job.RunID)

	cancelStream()
	_ = g.Wait()
	return nil
}

// bridgeStream republishes each stream frame onto the bus, tagged by
// event type. A dropped connection mid-run is not reconnected: the run
// keeps making status progress but stops producing live events.
func (w *Worker) bridgeStream(ctx context.Context, runID string) {
	stream, err := w.agent.OpenStream(ctx, runID)
	if err != nil {
		slog.Warn("live stream unavailable, run continues on polling alone",
			"run_id", runID, "error", err)
		return
	}
	defer func() { _ = stream.Close() }()

	for {
		frame, err := stream.Next()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, context.Canceled), ctx.Err() != nil:
				// Cancellation or a server-side close is a clean stop.
			default:
				slog.Warn("stream dropped, live events stop for this run",
					"run_id", runID, "error", err)
			}
			return
		}

		t := event.Type(frame.Type)
		if !t.Known() {
			slog.Debug("skipping unknown stream frame", "run_id", runID, "type", frame.Type)
			continue
		}
		if err := w.queue.Publish(ctx, t.Subject(), frame.Data); err != nil {
			slog.Warn("bus publish failed", "run_id", runID, "subject", t.Subject(), "error", err)
		}
	}
}

// poll queries the agent at a fixed interval until the run is terminal
// or the attempt budget is exhausted. Every poll publishes a status
// update; exhaustion forces a failed outcome at node "timeout".
func (w *Worker) poll(ctx context.Context, runID string) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	lastIteration := 0
	for attempt := 1; attempt <= w.cfg.MaxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		st, err := w.agent.Status(ctx, runID)
		if err != nil {
			slog.Warn("status poll failed", "run_id", runID, "attempt", attempt, "error", err)
			continue
		}

		lastIteration = st.Iteration
		w.publishStatus(ctx, runID, st.Status, st.CurrentNode, st.Iteration)

		if run.Status(st.Status).Terminal() {
			slog.Info("run reached terminal status", "run_id", runID, "status", st.Status)
			return
		}
	}

	slog.Warn("poll budget exhausted, forcing failure", "run_id", runID)
	w.publishStatus(ctx, runID, string(run.StatusFailed), "timeout", lastIteration)
}

func (w *Worker) publishStatus(ctx context.Context, runID, status, node string, iteration int) {
	data, err := json.Marshal(event.StatusUpdate{
		RunID:       runID,
		Status:      status,
		CurrentNode: node,
		Iteration:   iteration,
	})
	if err != nil {
		slog.Error("marshal status update", "run_id", runID, "error", err)
		return
	}
	if err := w.queue.Publish(ctx, event.SubjectStatus, data); err != nil {
		slog.Warn("status publish failed", "run_id", runID, "error", err)
	}
}
