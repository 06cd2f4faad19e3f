package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rift-labs/rift-core/internal/contract"
	"github.com/rift-labs/rift-core/internal/domain"
	"github.com/rift-labs/rift-core/internal/service"
)

// maxRequestBodySize bounds inbound JSON bodies.
const maxRequestBodySize = 1 << 20 // 1 MB

// Error codes carried in the error envelope.
const (
	CodeInvalidInput  = "INVALID_INPUT"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeContractError = "INTERNAL_CONTRACT_ERROR"
	CodeAgentDown     = "AGENT_UNREACHABLE"
	CodeInternal      = "INTERNAL"
)

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// readBody reads a size-limited request body for schema validation
// downstream. Validation happens against the raw bytes, not a decoded
// struct, so unknown fields are caught too.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, CodeInvalidInput, "request body too large", nil)
		} else {
			writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid request body", nil)
		}
		return nil, false
	}
	return data, true
}

// urlParam is a short alias for chi.URLParam.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

// errorBody is the single envelope every failure response uses.
// The top level has exactly one key.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message, Details: details}})
}

// writeDomainError maps service and domain errors onto the envelope.
func writeDomainError(w http.ResponseWriter, err error) {
	var dup *service.DuplicateError
	var vErr *contract.ValidationError
	switch {
	case errors.As(err, &dup):
		writeJSON(w, http.StatusConflict, dup.Response)
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "request does not conform to the submission contract", vErr.Fields)
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, CodeInvalidInput, err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, "not found", nil)
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, CodeConflict, err.Error(), nil)
	case errors.Is(err, domain.ErrContract):
		slog.Error("internal contract violation", "error", err)
		writeError(w, http.StatusInternalServerError, CodeContractError, "generated response failed contract validation", nil)
	case errors.Is(err, domain.ErrAgentUnreachable):
		writeError(w, http.StatusBadGateway, CodeAgentDown, "agent service unreachable", nil)
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal server error", nil)
	}
}
