// Package store provides case store implementations: an in-memory versioned
// store for development and tests, a PostgreSQL store for production, and a
// Redis read-through cache for pending-approver queries.
package store

import (
	"context"
	"sync"

	"reimbly/internal/approval"
	"reimbly/pkg/domain"
	"reimbly/pkg/platform/sentinel"
)

type versionedCase struct {
	c       approval.Case
	version approval.Version
}

// MemoryStore keeps cases in process memory with compare-and-swap semantics.
// It intentionally favors clarity over performance; every read hands out a
// deep copy so callers can never mutate shared state.
type MemoryStore struct {
	mu    sync.RWMutex
	cases map[domain.CaseID]versionedCase
}

// NewMemoryStore constructs an empty in-memory case store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cases: make(map[domain.CaseID]versionedCase)}
}

func (s *MemoryStore) Create(_ context.Context, c approval.Case) (approval.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cases[c.ID]; exists {
		return 0, sentinel.ErrVersionConflict
	}
	s.cases[c.ID] = versionedCase{c: c.Clone(), version: 1}
	return 1, nil
}

func (s *MemoryStore) Load(_ context.Context, id domain.CaseID) (approval.Case, approval.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cases[id]
	if !ok {
		return approval.Case{}, 0, sentinel.ErrNotFound
	}
	return entry.c.Clone(), entry.version, nil
}

func (s *MemoryStore) Save(_ context.Context, c approval.Case, expected approval.Version) (approval.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.cases[c.ID]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	if entry.version != expected {
		return 0, sentinel.ErrVersionConflict
	}
	next := expected + 1
	s.cases[c.ID] = versionedCase{c: c.Clone(), version: next}
	return next, nil
}

func (s *MemoryStore) QueryByApprover(_ context.Context, approver domain.UserID) ([]approval.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []approval.Case
	for _, entry := range s.cases {
		if entry.c.Status.Terminal() {
			continue
		}
		for _, remaining := range entry.c.RemainingApprovers() {
			if domain.UserID(remaining) == approver {
				out = append(out, entry.c.Clone())
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) List(_ context.Context) ([]approval.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]approval.Case, 0, len(s.cases))
	for _, entry := range s.cases {
		out = append(out, entry.c.Clone())
	}
	return out, nil
}
