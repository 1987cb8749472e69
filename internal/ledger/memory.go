package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/lockstep-db/lockstep/internal/unit"
)

// Memory is an in-process Ledger for tests and dry runs. It enforces
// the same invariants as the durable implementation but keeps nothing
// across process lifetimes.
type Memory struct {
	mu      sync.Mutex
	applied map[unit.ID]*Entry
	order   []unit.ID
	nextPos int64
}

// NewMemory returns an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{applied: make(map[unit.ID]*Entry)}
}

// IsApplied implements Ledger.
func (m *Memory) IsApplied(_ context.Context, id unit.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.applied[id]
	return ok, nil
}

// MarkApplied implements Ledger.
func (m *Memory) MarkApplied(_ context.Context, id unit.ID, deps []unit.ID, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.applied[id]; ok {
		return &Error{Code: ErrCodeAlreadyApplied, Unit: id}
	}
	for _, dep := range deps {
		if _, ok := m.applied[dep]; !ok {
			return &Error{Code: ErrCodeDependencyNotApplied, Unit: id, Dep: dep}
		}
	}

	m.nextPos++
	m.applied[id] = &Entry{
		ID:        id,
		Position:  m.nextPos,
		RunID:     runID,
		AppliedAt: time.Now().UTC(),
	}
	m.order = append(m.order, id)
	return nil
}

// UnmarkApplied implements Ledger.
func (m *Memory) UnmarkApplied(_ context.Context, id unit.ID, dependents []unit.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.applied[id]; !ok {
		return &Error{Code: ErrCodeNotApplied, Unit: id}
	}
	for _, dep := range dependents {
		if _, ok := m.applied[dep]; ok {
			return &Error{Code: ErrCodeDependentStillApplied, Unit: id, Dep: dep}
		}
	}

	delete(m.applied, id)
	for i, got := range m.order {
		if got == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// AppliedInOrder implements Ledger.
func (m *Memory) AppliedInOrder(_ context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.applied[id])
	}
	return out, nil
}

// Close implements Ledger. It is a no-op for the in-memory ledger.
func (m *Memory) Close() error { return nil }
