package session

import (
	"sync"

	"github.com/harun/wagate/pkg/whatsapp"
)

// Store is the single source of truth for session records. Reads return
// snapshots; mutations for the same user are applied one at a time, in
// the order they arrive, so event callbacks never interleave on a record.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	mu  sync.Mutex
	rec Record
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*entry),
	}
}

// Get returns a snapshot of the user's record, if present
func (s *Store) Get(userID string) (Snapshot, bool) {
	s.mu.RLock()
	e, ok := s.entries[userID]
	s.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshotOf(&e.rec), true
}

// Client returns the user's client handle, if present
func (s *Store) Client(userID string) (whatsapp.Client, bool) {
	s.mu.RLock()
	e, ok := s.entries[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec.Client == nil {
		return nil, false
	}
	return e.rec.Client, true
}

// Create inserts a fresh record in the initializing state. It returns
// false if the user already has a record, so concurrent initialization
// attempts can never register two clients for one key.
func (s *Store) Create(userID string, client whatsapp.Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[userID]; exists {
		return false
	}

	s.entries[userID] = &entry{
		rec: Record{
			UserID: userID,
			Client: client,
			State:  StateInitializing,
		},
	}
	return true
}

// Mutate applies fn to the user's record atomically with respect to
// other mutations for the same user. Returns false if no record exists.
func (s *Store) Mutate(userID string, fn func(*Record)) bool {
	s.mu.RLock()
	e, ok := s.entries[userID]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.rec)
	return true
}

// Remove deletes the user's record
func (s *Store) Remove(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
}

// Len returns the number of registered sessions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
