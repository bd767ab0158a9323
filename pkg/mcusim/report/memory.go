package report

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
)

// MemoryStore is an in-memory report store.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[uint64]Report // runID -> seq -> report
	closed bool
}

// NewMemoryStore creates a new in-memory report store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[uint64]Report),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, r Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if m.data[r.RunID] == nil {
		m.data[r.RunID] = make(map[uint64]Report)
	}
	m.data[r.RunID][r.Seq] = r.Clone()
	return nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, runID string) ([]Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	run := m.data[runID]
	out := make([]Report, 0, len(run))
	for _, r := range run {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// Latest implements Store.
func (m *MemoryStore) Latest(_ context.Context, runID string) (Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Report{}, ErrStoreClosed
	}

	run := m.data[runID]
	if len(run) == 0 {
		return Report{}, ErrNotFound
	}
	return run[slices.Max(slices.Collect(maps.Keys(run)))].Clone(), nil
}

// Runs implements Store.
func (m *MemoryStore) Runs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	return slices.Sorted(maps.Keys(m.data)), nil
}

// DeleteRun implements Store.
func (m *MemoryStore) DeleteRun(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.data, runID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}
