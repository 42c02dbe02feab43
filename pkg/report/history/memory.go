package history

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mercator-hq/auditor/pkg/checks"
)

const backendMemory = "memory"

// MemoryStore implements Store in process memory. Runs are lost on exit;
// it backs "history.backend: memory" and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*checks.Run
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*checks.Run)}
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, run *checks.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; ok {
		return NewStorageError(backendMemory, "save", fmt.Errorf("run %s already stored", run.ID))
	}
	s.runs[run.ID] = copyRun(run)
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, runID string) (*checks.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return copyRun(run), nil
}

// Runs implements Store.
func (s *MemoryStore) Runs(ctx context.Context, query *Query) ([]*RunRecord, error) {
	query = query.normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.matching(query)
	records := make([]*RunRecord, 0, len(matched))
	for _, run := range paginate(matched, query) {
		records = append(records, &RunRecord{
			ID:         run.ID,
			StartedAt:  run.StartedAt,
			FinishedAt: run.FinishedAt,
			Summary:    run.Summary(),
		})
	}
	return records, nil
}

// Query implements Store.
func (s *MemoryStore) Query(ctx context.Context, query *Query) ([]*Entry, error) {
	query = query.normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []*Entry
	for _, run := range s.matching(query) {
		for _, o := range run.Outcomes {
			if query.CheckID != "" && o.CheckID != query.CheckID {
				continue
			}
			if query.Kind != "" && o.Kind != query.Kind {
				continue
			}
			entries = append(entries, &Entry{RunID: run.ID, StartedAt: run.StartedAt, Outcome: *o})
		}
	}
	return paginate(entries, query), nil
}

// Count implements Store.
func (s *MemoryStore) Count(ctx context.Context, query *Query) (int64, error) {
	query = query.normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.matching(query))), nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, query *Query) (int64, error) {
	query = query.normalize()
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := s.matching(query)
	for _, run := range matched {
		delete(s.runs, run.ID)
	}
	return int64(len(matched)), nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

// matching returns the runs passing the run-level filters, newest first.
// Callers hold s.mu.
func (s *MemoryStore) matching(query *Query) []*checks.Run {
	var runs []*checks.Run
	for _, run := range s.runs {
		if query.RunID != "" && run.ID != query.RunID {
			continue
		}
		if query.StartTime != nil && run.StartedAt.Before(*query.StartTime) {
			continue
		}
		if query.EndTime != nil && run.StartedAt.After(*query.EndTime) {
			continue
		}
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		}
		return runs[i].ID < runs[j].ID
	})
	return runs
}

func paginate[T any](items []T, query *Query) []T {
	if query.Offset >= len(items) {
		return []T{}
	}
	items = items[query.Offset:]
	if limit := query.limit(); len(items) > limit {
		items = items[:limit]
	}
	return items
}

func copyRun(run *checks.Run) *checks.Run {
	cp := *run
	cp.Outcomes = make([]*checks.Outcome, len(run.Outcomes))
	for i, o := range run.Outcomes {
		oc := *o
		cp.Outcomes[i] = &oc
	}
	return &cp
}
