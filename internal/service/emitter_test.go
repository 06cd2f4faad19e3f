package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/rift-labs/rift-core/internal/contract"
	"github.com/rift-labs/rift-core/internal/domain/event"
	"github.com/rift-labs/rift-core/internal/service"
)

// recordingHub captures every room delivery.
type recordingHub struct {
	mu    sync.Mutex
	calls []roomCall
}

type roomCall struct {
	room      string
	eventType string
	payload   []byte
}

func (h *recordingHub) ToRoom(_ context.Context, room, eventType string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, roomCall{room: room, eventType: eventType, payload: payload})
}

func (h *recordingHub) all() []roomCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]roomCall, len(h.calls))
	copy(out, h.calls)
	return out
}

func TestEmitterDeliversValidPayloadToRoom(t *testing.T) {
	hub := &recordingHub{}
	em := service.NewEmitter(hub, contract.New())

	payload := []byte(`{"run_id":"run_42","file":"src/app.py","bug_type":"SYNTAX","line":7,"status":"committed","confidence":0.9,"commit_sha":"abc"}`)
	em.EmitFixApplied(context.Background(), "run_42", payload)

	calls := hub.all()
	if len(calls) != 1 {
		t.Fatalf("got %d deliveries, want exactly 1", len(calls))
	}
	if calls[0].room != "run_42" {
		t.Fatalf("delivered to room %q, want run_42", calls[0].room)
	}
	if calls[0].eventType != string(event.TypeFixApplied) {
		t.Fatalf("event type %q, want fix_applied", calls[0].eventType)
	}
}

func TestEmitterDropsInvalidPayload(t *testing.T) {
	hub := &recordingHub{}
	em := service.NewEmitter(hub, contract.New())

	// bug_type outside the canonical enum must never reach a subscriber.
	payload := []byte(`{"run_id":"run_42","file":"a.py","bug_type":"SECURITY","line":1,"status":"x","confidence":0.5}`)
	em.EmitFixApplied(context.Background(), "run_42", payload)

	if n := len(hub.all()); n != 0 {
		t.Fatalf("invalid payload reached the hub %d times, want 0", n)
	}
}

func TestEmitterDropIsolation(t *testing.T) {
	hub := &recordingHub{}
	em := service.NewEmitter(hub, contract.New())
	ctx := context.Background()

	em.EmitThought(ctx, "run_1", []byte(`{"broken`))
	em.EmitThought(ctx, "run_1", []byte(`{"run_id":"run_1","node":"scorer","message":"done","step_index":9}`))

	calls := hub.all()
	if len(calls) != 1 {
		t.Fatalf("got %d deliveries, want 1 (the valid one after a drop)", len(calls))
	}
	if calls[0].eventType != string(event.TypeThought) {
		t.Fatalf("event type %q", calls[0].eventType)
	}
}

func TestEmitDispatchUnknownType(t *testing.T) {
	em := service.NewEmitter(&recordingHub{}, contract.New())
	if err := em.Emit(context.Background(), event.Type("mystery"), "run_1", []byte(`{}`)); err == nil {
		t.Fatal("dispatch of unknown event type succeeded")
	}
}
