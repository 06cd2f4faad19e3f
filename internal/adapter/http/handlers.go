package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rift-labs/rift-core/internal/artifacts"
	"github.com/rift-labs/rift-core/internal/domain/run"
	"github.com/rift-labs/rift-core/internal/port/runlog"
	"github.com/rift-labs/rift-core/internal/service"
)

// compatHeader marks a results artifact that predates the current
// contract and was served without revalidation.
const compatHeader = "X-Schema-Compat"

const maxQuestionLength = 2000

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Submit    *service.Submitter
	Runs      *run.Store
	History   runlog.Store
	Artifacts *artifacts.Store
	Query     *service.Querier
}

// SubmitRun accepts a healing run request. Duplicate submissions
// against an active fingerprint return 409 with a projection of the
// existing run.
func (h *Handlers) SubmitRun(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	resp, err := h.Submit.Submit(r.Context(), body)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

type statusResponse struct {
	RunID       string `json:"run_id"`
	Status      string `json:"status"`
	CurrentNode string `json:"current_node"`
	Iteration   int    `json:"iteration"`
	MaxIter     int    `json:"max_iterations"`
	ProgressPct int    `json:"progress_pct"`
}

// GetStatus reports a run's live progress. Active runs come from the
// in-memory registry; completed runs fall back to the durable store,
// which reports 100% by definition.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if err := artifacts.CheckID(id); err != nil {
		writeDomainError(w, err)
		return
	}

	if live := h.Runs.ActiveByID(id); live != nil {
		writeJSON(w, http.StatusOK, statusResponse{
			RunID:       live.ID,
			Status:      string(live.Status),
			CurrentNode: live.CurrentNode,
			Iteration:   live.Iteration,
			MaxIter:     live.MaxIter,
			ProgressPct: run.ProgressPct(live.CurrentNode, live.Status),
		})
		return
	}

	rec, err := h.History.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, runlog.ErrDisabled) {
			writeError(w, http.StatusNotFound, CodeNotFound, "run not found", nil)
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		RunID:       rec.RunID,
		Status:      rec.Status,
		CurrentNode: "done",
		ProgressPct: 100,
	})
}

// GetResults serves a run's results artifact. Artifacts stored under
// an older contract are served with a compat header instead of a 500.
func (h *Handlers) GetResults(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	data, compat, err := h.Artifacts.ReadResults(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if compat {
		w.Header().Set(compatHeader, "legacy")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write results response", "run_id", id, "error", err)
	}
}

// GetReport streams a run's PDF report with a forced content type and
// an attachment disposition carrying the run id.
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	path, err := h.Artifacts.ReportPath(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+"_report.pdf"))
	http.ServeFile(w, r, path)
}

type traceResponse struct {
	RunID  string              `json:"run_id"`
	Events []runlog.TraceEvent `json:"events"`
}

// GetTrace replays a run's execution trace from the durable store.
func (h *Handlers) GetTrace(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if err := artifacts.CheckID(id); err != nil {
		writeDomainError(w, err)
		return
	}
	events, err := h.Query.Trace(r.Context(), id)
	if err != nil {
		if errors.Is(err, runlog.ErrDisabled) {
			writeError(w, http.StatusNotFound, CodeNotFound, "trace unavailable: run history store disabled", nil)
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, traceResponse{RunID: id, Events: events})
}

type queryRequest struct {
	Question string `json:"question"`
}

// AskQuestion proxies a question about a run to the agent. The agent's
// status code and body pass through verbatim.
func (h *Handlers) AskQuestion(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if err := artifacts.CheckID(id); err != nil {
		writeDomainError(w, err)
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var req queryRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Question == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "question is required", nil)
		return
	}
	if len(req.Question) > maxQuestionLength {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "question too long", nil)
		return
	}

	status, answer, err := h.Query.Ask(r.Context(), id, req.Question)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(answer); err != nil {
		slog.Error("failed to write query response", "run_id", id, "error", err)
	}
}

// Pinger is the slice of the Postgres pool the health check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnChecker reports message queue connectivity.
type ConnChecker interface {
	IsConnected() bool
}

type healthResponse struct {
	Status string `json:"status"`
	Queue  string `json:"queue"`
	DB     string `json:"db"`
	Time   string `json:"time"`
}

// HealthHandler builds the /health handler. db is nil when the durable
// store is disabled.
func HealthHandler(queue ConnChecker, db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status: "ok",
			Queue:  "down",
			DB:     "disabled",
			Time:   time.Now().UTC().Format(time.RFC3339),
		}
		if queue != nil && queue.IsConnected() {
			resp.Queue = "up"
		}
		if db != nil {
			if err := db.Ping(r.Context()); err == nil {
				resp.DB = "up"
			} else {
				resp.DB = "down"
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
