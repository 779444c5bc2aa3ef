package orchestrator

import (
	"sync"

	"github.com/google/uuid"
)

// ClaimSet is the ephemeral set of document ids with a run in flight. It is
// the sole mutual-exclusion mechanism between runs and the lever for
// cooperative stop: removing a claim makes the owning run exit at its next
// stage boundary. Nothing here survives a restart, which implicitly releases
// every claim.
type ClaimSet struct {
	mu  sync.Mutex
	ids map[uuid.UUID]struct{}
}

func NewClaimSet() *ClaimSet {
	return &ClaimSet{ids: make(map[uuid.UUID]struct{})}
}

// Acquire claims an id. Returns false when a run already owns it.
func (s *ClaimSet) Acquire(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.ids[id]; held {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Release removes a claim. Returns false when the id was not claimed.
func (s *ClaimSet) Release(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.ids[id]; !held {
		return false
	}
	delete(s.ids, id)
	return true
}

// Has reports whether the id is currently claimed.
func (s *ClaimSet) Has(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, held := s.ids[id]
	return held
}

// Count returns the number of in-flight runs.
func (s *ClaimSet) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
