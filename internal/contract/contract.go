// Package contract implements the schema validation gate: one compiled
// validator per published contract shape, used to reject non-conforming
// inbound bodies and to re-check payloads before broadcast.
// Validation is strict: unknown additional fields fail every shape.
package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/rift-labs/rift-core/internal/domain"
	"github.com/rift-labs/rift-core/internal/domain/event"
)

// Shape names a published contract shape.
type Shape string

const (
	ShapeSubmitRequest     Shape = "submit_request"
	ShapeSubmitResponse    Shape = "submit_response"
	ShapeDuplicateResponse Shape = "duplicate_response"
	ShapeResults           Shape = "results"
	ShapeThought           Shape = "thought_event"
	ShapeFixApplied        Shape = "fix_applied"
	ShapeCIUpdate          Shape = "ci_update"
	ShapeTelemetryTick     Shape = "telemetry_tick"
	ShapeRunComplete       Shape = "run_complete"
	ShapeStatusUpdate      Shape = "status_update"
)

// FieldError locates a single validation failure within a payload.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError aggregates the field-level failures for one payload.
type ValidationError struct {
	Shape  Shape
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return fmt.Sprintf("%s does not conform to %s: %s", "payload", e.Shape, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return domain.ErrValidation }

// Gate holds the compiled validator set.
type Gate struct {
	schemas map[Shape]*openapi3.Schema
}

// New compiles every contract schema once at startup.
func New() *Gate {
	return &Gate{schemas: map[Shape]*openapi3.Schema{
		ShapeSubmitRequest:     submitRequestSchema(),
		ShapeSubmitResponse:    submitResponseSchema(),
		ShapeDuplicateResponse: duplicateResponseSchema(),
		ShapeResults:           resultsSchema(),
		ShapeThought:           thoughtSchema(),
		ShapeFixApplied:        fixAppliedSchema(),
		ShapeCIUpdate:          ciUpdateSchema(),
		ShapeTelemetryTick:     telemetryTickSchema(),
		ShapeRunComplete:       runCompleteSchema(),
		ShapeStatusUpdate:      statusUpdateSchema(),
	}}
}

// Validate checks raw JSON against the named shape. Returns a
// *ValidationError (wrapping domain.ErrValidation) on any mismatch.
func (g *Gate) Validate(shape Shape, data []byte) error {
	schema, ok := g.schemas[shape]
	if !ok {
		return fmt.Errorf("no schema registered for shape %q", shape)
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return &ValidationError{Shape: shape, Fields: []FieldError{
			{Field: "(body)", Reason: "malformed JSON"},
		}}
	}

	err := schema.VisitJSON(value, openapi3.MultiErrors())
	if err == nil {
		return nil
	}
	return &ValidationError{Shape: shape, Fields: fieldErrors(err)}
}

// ValidateEvent routes an event payload to its variant's schema.
func (g *Gate) ValidateEvent(t event.Type, payload []byte) error {
	shape, ok := eventShapes[t]
	if !ok {
		return fmt.Errorf("no schema for event type %q", t)
	}
	return g.Validate(shape, payload)
}

var eventShapes = map[event.Type]Shape{
	event.TypeThought:       ShapeThought,
	event.TypeFixApplied:    ShapeFixApplied,
	event.TypeCIUpdate:      ShapeCIUpdate,
	event.TypeTelemetryTick: ShapeTelemetryTick,
	event.TypeRunComplete:   ShapeRunComplete,
}

// fieldErrors flattens kin-openapi's error tree into field-level entries.
func fieldErrors(err error) []FieldError {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		out := make([]FieldError, 0, len(multi))
		for _, e := range multi {
			out = append(out, fieldErrors(e)...)
		}
		return out
	}

	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		field := strings.Join(schemaErr.JSONPointer(), ".")
		if field == "" {
			field = "(body)"
		}
		return []FieldError{{Field: field, Reason: schemaErr.Reason}}
	}

	return []FieldError{{Field: "(body)", Reason: err.Error()}}
}
