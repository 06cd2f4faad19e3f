package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rift-labs/rift-core/internal/contract"
	"github.com/rift-labs/rift-core/internal/domain/event"
	"github.com/rift-labs/rift-core/internal/port/broadcast"
)

// Emitter is the contract-safe broadcaster: one emit operation per event
// variant, each validating its outbound payload before delivery. A
// payload that fails its schema is dropped and logged, never delivered
// malformed.
type Emitter struct {
	hub  broadcast.Broadcaster
	gate *contract.Gate
}

// NewEmitter creates the contract-safe broadcaster.
func NewEmitter(hub broadcast.Broadcaster, gate *contract.Gate) *Emitter {
	return &Emitter{hub: hub, gate: gate}
}

// EmitThought delivers a thought_event to the run's room.
func (e *Emitter) EmitThought(ctx context.Context, runID string, payload []byte) {
	e.emit(ctx, event.TypeThought, runID, payload)
}

// EmitFixApplied delivers a fix_applied event to the run's room.
func (e *Emitter) EmitFixApplied(ctx context.Context, runID string, payload []byte) {
	e.emit(ctx, event.TypeFixApplied, runID, payload)
}

// EmitCIUpdate delivers a ci_update event to the run's room.
func (e *Emitter) EmitCIUpdate(ctx context.Context, runID string, payload []byte) {
	e.emit(ctx, event.TypeCIUpdate, runID, payload)
}

// EmitTelemetryTick delivers a telemetry_tick event to the run's room.
func (e *Emitter) EmitTelemetryTick(ctx context.Context, runID string, payload []byte) {
	e.emit(ctx, event.TypeTelemetryTick, runID, payload)
}

// EmitRunComplete delivers the terminal run_complete event to the run's room.
func (e *Emitter) EmitRunComplete(ctx context.Context, runID string, payload []byte) {
	e.emit(ctx, event.TypeRunComplete, runID, payload)
}

// Emit dispatches to the variant's emit operation.
func (e *Emitter) Emit(ctx context.Context, t event.Type, runID string, payload []byte) error {
	switch t {
	case event.TypeThought:
		e.EmitThought(ctx, runID, payload)
	case event.TypeFixApplied:
		e.EmitFixApplied(ctx, runID, payload)
	case event.TypeCIUpdate:
		e.EmitCIUpdate(ctx, runID, payload)
	case event.TypeTelemetryTick:
		e.EmitTelemetryTick(ctx, runID, payload)
	case event.TypeRunComplete:
		e.EmitRunComplete(ctx, runID, payload)
	default:
		return fmt.Errorf("no emit operation for event type %q", t)
	}
	return nil
}

func (e *Emitter) emit(ctx context.Context, t event.Type, runID string, payload []byte) {
	if err := e.gate.ValidateEvent(t, payload); err != nil {
		slog.Warn("dropping event that fails its schema",
			"type", t, "run_id", runID, "error", err)
		return
	}
	e.hub.ToRoom(ctx, runID, string(t), payload)
}
