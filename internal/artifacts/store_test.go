package artifacts_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rift-labs/rift-core/internal/artifacts"
	"github.com/rift-labs/rift-core/internal/contract"
	"github.com/rift-labs/rift-core/internal/domain"
	"github.com/rift-labs/rift-core/internal/domain/artifact"
)

const validResults = `{
  "run_id": "run_1",
  "final_status": "passed",
  "score": {"base": 100, "speed_bonus": 10, "efficiency_penalty": 0, "total": 110},
  "fixes": [],
  "ci_log": [],
  "total_time_secs": 212.4
}`

func newTestStore(t *testing.T) (*artifacts.Store, string) {
	t.Helper()
	dir := t.TempDir()
	return artifacts.NewStore(dir, contract.New(), nil, 0), dir
}

func writeArtifact(t *testing.T, dir, runID, name, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, runID), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, runID, name), []byte(content), 0o640); err != nil {
		t.Fatal(err)
	}
}

func TestReadResults(t *testing.T) {
	s, dir := newTestStore(t)
	writeArtifact(t, dir, "run_1", "results.json", validResults)

	data, compat, err := s.ReadResults(context.Background(), "run_1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if compat {
		t.Fatal("current-schema artifact flagged as compat")
	}
	if len(data) == 0 {
		t.Fatal("empty artifact returned")
	}
}

func TestReadResultsMissing(t *testing.T) {
	s, _ := newTestStore(t)
	_, _, err := s.ReadResults(context.Background(), "run_absent")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestReadResultsRejectsUnsafeID(t *testing.T) {
	s, _ := newTestStore(t)
	for _, id := range []string{"../etc/passwd", "a/b", "run 1", "", "run.1", string(make([]byte, 100))} {
		_, _, err := s.ReadResults(context.Background(), id)
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("ReadResults(%q): err = %v, want ErrValidation before any filesystem access", id, err)
		}
	}
}

func TestReadResultsLegacySchemaServedUnderCompat(t *testing.T) {
	s, dir := newTestStore(t)
	// A record written under an older contract: missing fields the
	// current schema requires.
	legacy := `{"run_id":"run_1","final_status":"passed","extra_legacy_field":true}`
	writeArtifact(t, dir, "run_1", "results.json", legacy)

	data, compat, err := s.ReadResults(context.Background(), "run_1")
	if err != nil {
		t.Fatalf("legacy artifact must still be served: %v", err)
	}
	if !compat {
		t.Fatal("legacy artifact served without the compat marker")
	}
	if string(data) != legacy {
		t.Fatal("legacy artifact bytes altered")
	}
}

func TestReadResultsCorruptJSON(t *testing.T) {
	s, dir := newTestStore(t)
	writeArtifact(t, dir, "run_1", "results.json", `{"run_id": truncated`)

	if _, _, err := s.ReadResults(context.Background(), "run_1"); err == nil {
		t.Fatal("corrupt artifact served")
	}
}

func TestWriteResultsIfAbsent(t *testing.T) {
	s, dir := newTestStore(t)

	res := artifact.Results{
		RunID:       "run_1",
		FinalStatus: "failed",
		Score:       artifact.ComputeScore(400, 30),
		Fixes:       []artifact.Fix{},
		CILog:       []artifact.CIEntry{},
	}
	if err := s.WriteResultsIfAbsent("run_1", res); err != nil {
		t.Fatalf("write: %v", err)
	}

	// A second write must not clobber the existing record.
	first, err := os.ReadFile(filepath.Join(dir, "run_1", "results.json"))
	if err != nil {
		t.Fatal(err)
	}
	res.FinalStatus = "passed"
	if err := s.WriteResultsIfAbsent("run_1", res); err != nil {
		t.Fatalf("second write must be a silent no-op: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(dir, "run_1", "results.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Fatal("second write clobbered the existing artifact")
	}
}

func TestReportPath(t *testing.T) {
	s, dir := newTestStore(t)

	if _, err := s.ReportPath("run_1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing report: err = %v, want ErrNotFound", err)
	}

	writeArtifact(t, dir, "run_1", "report.pdf", "%PDF-1.4 fake")
	path, err := s.ReportPath("run_1")
	if err != nil {
		t.Fatalf("report path: %v", err)
	}
	if filepath.Base(path) != "report.pdf" {
		t.Fatalf("path = %s", path)
	}

	if _, err := s.ReportPath("../run_1"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("traversal id: err = %v, want ErrValidation", err)
	}
}
