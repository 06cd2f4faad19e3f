package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/rift-labs/rift-core/internal/artifacts"
	"github.com/rift-labs/rift-core/internal/contract"
	"github.com/rift-labs/rift-core/internal/domain/artifact"
	"github.com/rift-labs/rift-core/internal/domain/event"
	"github.com/rift-labs/rift-core/internal/domain/run"
	"github.com/rift-labs/rift-core/internal/port/messagequeue"
	"github.com/rift-labs/rift-core/internal/port/runlog"
)

// Bridge owns the dedicated bus subscriptions and routes inbound
// messages to the broadcaster and the run registry. Every handler body
// is fault-isolated: a panic or validation failure while processing one
// message is logged and never prevents the next.
type Bridge struct {
	queue     messagequeue.Queue
	runs      *run.Store
	emitter   *Emitter
	gate      *contract.Gate
	history   runlog.Store
	artifacts *artifacts.Store
}

// NewBridge creates the event bridge.
func NewBridge(queue messagequeue.Queue, runs *run.Store, emitter *Emitter, gate *contract.Gate, history runlog.Store, arts *artifacts.Store) *Bridge {
	return &Bridge{
		queue:     queue,
		runs:      runs,
		emitter:   emitter,
		gate:      gate,
		history:   history,
		artifacts: arts,
	}
}

// Start subscribes to the wildcard event subjects and the status
// subject. The returned function cancels both subscriptions.
func (b *Bridge) Start(ctx context.Context) (func(), error) {
	cancelEvents, err := b.queue.Subscribe(ctx, event.SubjectEventWildcard, func(subject string, data []byte) {
		b.safeHandle(func() { b.handleEvent(ctx, subject, data) })
	})
	if err != nil {
		return nil, err
	}

	cancelStatus, err := b.queue.Subscribe(ctx, event.SubjectStatus, func(_ string, data []byte) {
		b.safeHandle(func() { b.handleStatus(ctx, data) })
	})
	if err != nil {
		cancelEvents()
		return nil, err
	}

	return func() {
		cancelEvents()
		cancelStatus()
	}, nil
}

// safeHandle isolates one message's processing from the next.
func (b *Bridge) safeHandle(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("bridge handler panicked", "panic", r)
		}
	}()
	fn()
}

// handleEvent routes one inbound event message. Parse failures, unknown
// types, and payloads without a run_id are discarded with a log line.
func (b *Bridge) handleEvent(ctx context.Context, subject string, data []byte) {
	t, ok := event.TypeFromSubject(subject)
	if !ok {
		slog.Debug("discarding message on unrecognized subject", "subject", subject)
		return
	}

	runID, err := event.RunID(data)
	if err != nil {
		slog.Warn("discarding event", "subject", subject, "error", err)
		return
	}

	if err := b.emitter.Emit(ctx, t, runID, data); err != nil {
		slog.Error("emit failed", "subject", subject, "run_id", runID, "error", err)
	}

	switch t {
	case event.TypeThought:
		b.recordTrace(ctx, data)
	case event.TypeFixApplied:
		b.recordFix(ctx, data)
	case event.TypeRunComplete:
		b.completeRun(ctx, runID, data)
	}
}

// handleStatus applies a status update to the run registry. Status
// messages never touch the broadcaster.
func (b *Bridge) handleStatus(ctx context.Context, data []byte) {
	if err := b.gate.Validate(contract.ShapeStatusUpdate, data); err != nil {
		slog.Warn("discarding status update", "error", err)
		return
	}

	var upd event.StatusUpdate
	if err := json.Unmarshal(data, &upd); err != nil {
		slog.Warn("discarding status update", "error", err)
		return
	}

	status := run.Status(upd.Status)
	switch {
	case status == run.StatusRunning:
		b.runs.MarkRunning(upd.RunID)
		b.runs.UpdateProgress(upd.RunID, upd.CurrentNode, upd.Iteration)
	case status.Terminal():
		b.runs.MarkComplete(upd.RunID)
	default:
		b.runs.UpdateProgress(upd.RunID, upd.CurrentNode, upd.Iteration)
	}

	if err := b.history.UpdateRunStatus(ctx, upd.RunID, upd.Status); err != nil {
		slog.Warn("run history status write failed", "run_id", upd.RunID, "error", err)
	}
}

// completeRun performs the terminal bookkeeping for run_complete:
// evict the run from the active registry (after the event has been
// emitted) and settle the durable record.
func (b *Bridge) completeRun(ctx context.Context, runID string, data []byte) {
	var rc event.RunComplete
	if err := json.Unmarshal(data, &rc); err != nil {
		slog.Warn("run_complete payload undecodable, evicting anyway", "run_id", runID, "error", err)
		b.runs.MarkComplete(runID)
		return
	}

	b.runs.MarkComplete(runID)

	if err := b.history.UpdateRunStatus(ctx, runID, rc.FinalStatus); err != nil {
		slog.Warn("run history status write failed", "run_id", runID, "error", err)
	}

	// The agent normally writes the full results record itself; this
	// fallback only fills the gap when the record never landed.
	if err := b.artifacts.WriteResultsIfAbsent(runID, artifact.Results{
		RunID:       runID,
		FinalStatus: rc.FinalStatus,
		Score: artifact.ScoreBreakdown{
			Base:              rc.Score["base"],
			SpeedBonus:        rc.Score["speed_bonus"],
			EfficiencyPenalty: rc.Score["efficiency_penalty"],
			Total:             rc.Score["total"],
		},
		Fixes:         []artifact.Fix{},
		CILog:         []artifact.CIEntry{},
		TotalTimeSecs: rc.TotalTimeSecs,
	}); err != nil {
		slog.Warn("fallback results write failed", "run_id", runID, "error", err)
	}
}

func (b *Bridge) recordTrace(ctx context.Context, data []byte) {
	var th event.Thought
	if err := json.Unmarshal(data, &th); err != nil {
		return
	}
	if err := b.history.AppendTrace(ctx, runlog.TraceEvent{
		RunID:       th.RunID,
		StepIndex:   th.StepIndex,
		AgentNode:   th.Node,
		ActionLabel: th.Message,
	}); err != nil {
		slog.Warn("trace write failed", "run_id", th.RunID, "error", err)
	}
}

func (b *Bridge) recordFix(ctx context.Context, data []byte) {
	var fx event.FixApplied
	if err := json.Unmarshal(data, &fx); err != nil {
		return
	}

	bugType, err := run.NormalizeBugType(fx.BugType)
	if err != nil {
		slog.Warn("fix with unknown bug type not recorded", "run_id", fx.RunID, "bug_type", fx.BugType)
		return
	}

	sha := ""
	if fx.CommitSHA != nil {
		sha = *fx.CommitSHA
	}
	if err := b.history.AppendFix(ctx, runlog.FixRecord{
		RunID:      fx.RunID,
		File:       fx.File,
		BugType:    string(bugType),
		Line:       fx.Line,
		Status:     fx.Status,
		Confidence: fx.Confidence,
		CommitSHA:  sha,
	}); err != nil {
		slog.Warn("fix write failed", "run_id", fx.RunID, "error", err)
	}
}
