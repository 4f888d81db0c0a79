package storage

import (
	"context"
	"slices"

	"github.com/dd0wney/cluso-netprobe/pkg/paths"
	"github.com/dd0wney/cluso-netprobe/pkg/validation"
)

// AppendRunRecord implements Sink. StartedAt is kept from the first write.
func (m *MemoryStore) AppendRunRecord(ctx context.Context, rec RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable("AppendRunRecord"); err != nil {
		return err
	}
	if rec.RunID == "" {
		return NewError("AppendRunRecord").Run("").Cause(ErrInvalidID).Err()
	}

	if prev, ok := m.runs[rec.RunID]; ok && !prev.StartedAt.IsZero() {
		rec.StartedAt = prev.StartedAt
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = m.now()
	}
	rec.UpdatedAt = m.now()
	m.runs[rec.RunID] = rec
	return nil
}

// AppendPathDefinition implements Sink.
func (m *MemoryStore) AppendPathDefinition(ctx context.Context, path *paths.Record, pathContext []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable("AppendPathDefinition"); err != nil {
		return 0, err
	}
	if err := path.Validate(); err != nil {
		return 0, NewError("AppendPathDefinition").Path("").Cause(err).Err()
	}

	hash := path.Hash()
	if id, ok := m.pathByHash[hash]; ok {
		return id, nil
	}

	id := int64(len(m.pathDefs) + 1)
	stored := *path
	stored.Nodes = slices.Clone(path.Nodes)
	stored.Links = slices.Clone(path.Links)
	m.pathDefs = append(m.pathDefs, PathDefinition{
		ID:        id,
		Hash:      hash,
		Path:      stored,
		Context:   slices.Clone(pathContext),
		CreatedAt: m.now(),
	})
	m.pathByHash[hash] = id
	return id, nil
}

// AppendAttempt implements Sink.
func (m *MemoryStore) AppendAttempt(ctx context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable("AppendAttempt"); err != nil {
		return err
	}
	if a.PathDefinitionID <= 0 || int(a.PathDefinitionID) > len(m.pathDefs) {
		return NotFoundError("path", a.PathDefinitionID)
	}
	if a.AttemptedAt.IsZero() {
		a.AttemptedAt = m.now()
	}
	m.attempts = append(m.attempts, a)
	return nil
}

// AppendValidationFinding implements Sink.
func (m *MemoryStore) AppendValidationFinding(ctx context.Context, f validation.Finding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable("AppendValidationFinding"); err != nil {
		return err
	}
	m.findings = append(m.findings, f)
	return nil
}

// AppendReviewFlag implements Sink.
func (m *MemoryStore) AppendReviewFlag(ctx context.Context, flag ReviewFlag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable("AppendReviewFlag"); err != nil {
		return err
	}
	if flag.CreatedAt.IsZero() {
		flag.CreatedAt = m.now()
	}
	m.reviewFlags = append(m.reviewFlags, flag)
	return nil
}

// AppendCoverageSummary implements Sink.
func (m *MemoryStore) AppendCoverageSummary(ctx context.Context, s CoverageSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable("AppendCoverageSummary"); err != nil {
		return err
	}
	if s.RecordedAt.IsZero() {
		s.RecordedAt = m.now()
	}
	m.coverage = append(m.coverage, s)
	return nil
}

// AppendRunSummary implements Sink.
func (m *MemoryStore) AppendRunSummary(ctx context.Context, s RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable("AppendRunSummary"); err != nil {
		return err
	}
	m.summaries = append(m.summaries, s)
	return nil
}

// PathsForRun implements PathReader.
func (m *MemoryStore) PathsForRun(ctx context.Context, runID string) ([]PathDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.readable("PathsForRun"); err != nil {
		return nil, err
	}

	seen := make(map[int64]bool)
	var out []PathDefinition
	for _, a := range m.attempts {
		if a.RunID != runID || seen[a.PathDefinitionID] {
			continue
		}
		seen[a.PathDefinitionID] = true
		out = append(out, m.pathDefs[a.PathDefinitionID-1])
	}
	return out, nil
}

// Run returns the stored run header.
func (m *MemoryStore) Run(runID string) (RunRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[runID]
	return r, ok
}

// PathDefinitionCount returns how many distinct paths are stored.
func (m *MemoryStore) PathDefinitionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pathDefs)
}

// Attempts returns the attempts logged for a run.
func (m *MemoryStore) Attempts(runID string) []Attempt {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterRun(m.attempts, func(a Attempt) string { return a.RunID }, runID)
}

// Findings returns the validation findings of a run.
func (m *MemoryStore) Findings(runID string) []validation.Finding {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterRun(m.findings, func(f validation.Finding) string { return f.RunID }, runID)
}

// ReviewFlags returns the review flags raised in a run.
func (m *MemoryStore) ReviewFlags(runID string) []ReviewFlag {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterRun(m.reviewFlags, func(f ReviewFlag) string { return f.RunID }, runID)
}

// CoverageSummaries returns the coverage snapshots of a run.
func (m *MemoryStore) CoverageSummaries(runID string) []CoverageSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterRun(m.coverage, func(s CoverageSummary) string { return s.RunID }, runID)
}

// RunSummaries returns the final summaries written for a run.
func (m *MemoryStore) RunSummaries(runID string) []RunSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterRun(m.summaries, func(s RunSummary) string { return s.RunID }, runID)
}

func filterRun[T any](items []T, runOf func(T) string, runID string) []T {
	var out []T
	for _, it := range items {
		if runOf(it) == runID {
			out = append(out, it)
		}
	}
	return out
}
