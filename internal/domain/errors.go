// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested run or artifact does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a submission collides with an active run fingerprint.
var ErrConflict = errors.New("conflict: an active run already exists for this submission")

// ErrValidation indicates input that fails contract validation.
var ErrValidation = errors.New("validation failed")

// ErrContract indicates a locally generated response failed its own schema.
// Never caused by client input.
var ErrContract = errors.New("internal contract violation")

// ErrAgentUnreachable indicates the remote agent could not be contacted.
var ErrAgentUnreachable = errors.New("agent unreachable")
