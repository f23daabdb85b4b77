package assessment

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store used by tests and by runs that opt
// out of persistence. Same append-only contract as the SQLite store.
type MemoryStore struct {
	mu      sync.Mutex
	records []*Assessment

	// FailSaves forces Save to fail, for exercising the
	// persistence-failure path.
	FailSaves bool

	// FailQueries forces Query to fail, for exercising store outage
	// handling.
	FailQueries bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save appends a copy of the record.
func (s *MemoryStore) Save(ctx context.Context, a *Assessment) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSaves {
		return fmt.Errorf("%w: store unavailable", ErrPersistence)
	}
	copied := *a
	s.records = append(s.records, &copied)
	return nil
}

// Query filters records by target and range, oldest first.
func (s *MemoryStore) Query(ctx context.Context, target string, tr TimeRange) ([]*Assessment, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailQueries {
		return nil, fmt.Errorf("%w: store unavailable", ErrPersistence)
	}
	var out []*Assessment
	for _, a := range s.records {
		if target != "" && a.Target != target {
			continue
		}
		if !tr.Contains(a.Timestamp) {
			continue
		}
		copied := *a
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
