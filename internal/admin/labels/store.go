package labels

import (
	"sync"
	"time"
)

const defaultTTL = 15 * time.Minute

// Store keeps generated artifacts in memory long enough for the browser to download them.
type Store struct {
	mu    sync.Mutex
	items map[string]Artifact
	ttl   time.Duration
	now   func() time.Time
}

// NewStore creates a store that forgets artifacts after ttl.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{items: make(map[string]Artifact), ttl: ttl, now: time.Now}
}

// Put saves the artifact and evicts expired entries.
func (s *Store) Put(artifact Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()
	s.items[artifact.ID] = artifact
}

// Get returns a stored artifact that has not expired.
func (s *Store) Get(id string) (Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	artifact, ok := s.items[id]
	if !ok {
		return Artifact{}, false
	}
	if s.expired(artifact) {
		delete(s.items, id)
		return Artifact{}, false
	}
	return artifact, true
}

// Owned returns the artifact only when owner generated it. Sheets of other operators are
// reported as missing.
func (s *Store) Owned(id, owner string) (Artifact, bool) {
	artifact, ok := s.Get(id)
	if !ok || owner == "" || artifact.Owner != owner {
		return Artifact{}, false
	}
	return artifact, true
}

func (s *Store) evictLocked() {
	for id, artifact := range s.items {
		if s.expired(artifact) {
			delete(s.items, id)
		}
	}
}

func (s *Store) expired(artifact Artifact) bool {
	return s.now().Sub(artifact.CreatedAt) > s.ttl
}
