// Package session holds the in-process registry of per-user story
// sessions. Entries live only for the process lifetime; nothing is
// persisted or restored.
package session

import (
	"sync"

	"Naqqal/internal/story"
)

// Store is a concurrency-safe session registry. Distinct users proceed
// fully in parallel; events for the same user are serialized through
// Lock, which callers hold for the whole turn including the backend
// call.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*story.Session

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewStore creates an empty session registry.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*story.Session),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Lock serializes turn processing for one user and returns the unlock
// function. Per-user mutexes are created on demand and retained, so
// serialization holds across create/delete of the session itself.
func (s *Store) Lock(userID string) func() {
	s.lockMu.Lock()
	mu, ok := s.locks[userID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[userID] = mu
	}
	s.lockMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// Create registers a fresh session for userID in the AwaitingRole
// phase. Any existing session for that user is discarded.
func (s *Store) Create(userID string) *story.Session {
	sess := &story.Session{
		UserID: userID,
		Phase:  story.PhaseAwaitingRole,
	}

	s.mu.Lock()
	s.sessions[userID] = sess
	s.mu.Unlock()

	return sess
}

// Get returns the session for userID, or false when none is active.
func (s *Store) Get(userID string) (*story.Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[userID]
	s.mu.RUnlock()
	return sess, ok
}

// Delete removes the session for userID. Deleting a user with no
// session is a no-op.
func (s *Store) Delete(userID string) {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
}

// Len reports the number of active sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
