// Package artifacts provides bounded, path-safe access to persisted run
// outputs: the results record and the optional binary report.
package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rift-labs/rift-core/internal/contract"
	"github.com/rift-labs/rift-core/internal/domain"
	"github.com/rift-labs/rift-core/internal/domain/artifact"
	"github.com/rift-labs/rift-core/internal/port/cache"
)

// safeRunID is the only shape of run id allowed near the filesystem.
// Anything else is rejected before a path is ever built.
var safeRunID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// maxResultsBytes bounds a results read; artifacts are small JSON records.
const maxResultsBytes = 4 << 20

// Store reads and writes run outputs under dir/{run_id}/.
type Store struct {
	dir   string
	gate  *contract.Gate
	cache cache.Cache
	ttl   time.Duration
}

// NewStore creates an artifact store rooted at dir. cache may be nil.
func NewStore(dir string, gate *contract.Gate, c cache.Cache, ttl time.Duration) *Store {
	return &Store{dir: dir, gate: gate, cache: c, ttl: ttl}
}

// CheckID validates a run id against the safe-character pattern.
func CheckID(runID string) error {
	if !safeRunID.MatchString(runID) {
		return fmt.Errorf("run id %q: %w", runID, domain.ErrValidation)
	}
	return nil
}

// ReadResults loads and validates a run's results record. A stored
// record that fails current-schema validation is still returned with
// compat=true: availability of historical artifacts outranks strict
// contract enforcement for data written under an older contract.
func (s *Store) ReadResults(ctx context.Context, runID string) (data []byte, compat bool, err error) {
	if err := CheckID(runID); err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if cached, ok, cacheErr := s.cache.Get(ctx, runID); cacheErr == nil && ok {
			return cached, false, nil
		}
	}

	path := filepath.Join(s.dir, runID, "results.json")
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, fmt.Errorf("results for %s: %w", runID, domain.ErrNotFound)
		}
		return nil, false, fmt.Errorf("stat results for %s: %w", runID, err)
	}
	if info.Size() > maxResultsBytes {
		return nil, false, fmt.Errorf("results for %s exceeds %d bytes", runID, maxResultsBytes)
	}

	data, err = os.ReadFile(path) //nolint:gosec // G304: run id validated above
	if err != nil {
		return nil, false, fmt.Errorf("read results for %s: %w", runID, err)
	}

	if !json.Valid(data) {
		return nil, false, fmt.Errorf("results for %s: corrupt JSON: %w", runID, domain.ErrNotFound)
	}

	if err := s.gate.Validate(contract.ShapeResults, data); err != nil {
		slog.Warn("results artifact predates current schema, serving under compat marker",
			"run_id", runID, "error", err)
		return data, true, nil
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, runID, data, s.ttl)
	}
	return data, false, nil
}

// WriteResultsIfAbsent persists a results record unless the agent has
// already written the full one. Used as a fallback when run_complete
// arrives for a run with no results.json on disk.
func (s *Store) WriteResultsIfAbsent(runID string, res artifact.Results) error {
	if err := CheckID(runID); err != nil {
		return err
	}

	dir := filepath.Join(s.dir, runID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create artifact dir for %s: %w", runID, err)
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results for %s: %w", runID, err)
	}

	path := filepath.Join(dir, "results.json")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640) //nolint:gosec // G304: run id validated above
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil
		}
		return fmt.Errorf("create results for %s: %w", runID, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write results for %s: %w", runID, err)
	}
	return nil
}

// ReportPath returns the on-disk path of a run's PDF report after an
// existence check.
func (s *Store) ReportPath(runID string) (string, error) {
	if err := CheckID(runID); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, runID, "report.pdf")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("report for %s: %w", runID, domain.ErrNotFound)
		}
		return "", fmt.Errorf("stat report for %s: %w", runID, err)
	}
	return path, nil
}
