package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
)

// MemoryStore keeps records in process memory. It backs tests and the
// server when no database path is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]EvaluationRecord
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]EvaluationRecord)}
}

// Save stores rec, replacing any record with the same ID.
func (m *MemoryStore) Save(ctx context.Context, rec EvaluationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	return nil
}

// Get returns the record with id.
func (m *MemoryStore) Get(ctx context.Context, id string) (EvaluationRecord, error) {
	if err := ctx.Err(); err != nil {
		return EvaluationRecord{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return EvaluationRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

// List returns the records of userID, newest first.
func (m *MemoryStore) List(ctx context.Context, userID string) ([]EvaluationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]EvaluationRecord, 0, len(m.records))
	for _, rec := range m.records {
		if userID == "" || rec.UserID == userID {
			out = append(out, rec)
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b EvaluationRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Delete removes the record with id.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.records, id)
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
