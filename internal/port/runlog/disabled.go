package runlog

import "context"

// Disabled is the no-op Store used when the durable store is not
// reachable at startup. Reads report ErrDisabled; writes succeed
// silently so callers keep their best-effort contract.
type Disabled struct{}

// ErrDisabled indicates the durable store was not configured or reachable.
var ErrDisabled = errDisabled{}

type errDisabled struct{}

func (errDisabled) Error() string { return "run history store disabled" }

func (Disabled) InsertRun(context.Context, RunRecord) error            { return nil }
func (Disabled) UpdateRunStatus(context.Context, string, string) error { return nil }
func (Disabled) AppendTrace(context.Context, TraceEvent) error         { return nil }
func (Disabled) AppendFix(context.Context, FixRecord) error            { return nil }

func (Disabled) GetRun(context.Context, string) (*RunRecord, error) {
	return nil, ErrDisabled
}

func (Disabled) TracesForRun(context.Context, string) ([]TraceEvent, error) {
	return nil, ErrDisabled
}
