package tags

import (
	"log"
	"sync"
)

// Store holds the TagSet attached to each session, keyed by session ID. A
// session has at most one TagSet and a zero-entry TagSet is never stored:
// absence means "no custom tags".
//
// Safe for concurrent use. Connection goroutines read while the services
// ingest path writes, so the maps take the same lock discipline as the rest
// of the session state.
type Store struct {
	mu    sync.RWMutex
	sets  map[uint64]*TagSet
	debug *log.Logger
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{sets: make(map[uint64]*TagSet)}
}

// SetDebugLogger attaches a logger for rejected updates. Must be called
// before the store is shared between goroutines.
func (s *Store) SetDebugLogger(logger *log.Logger) {
	s.debug = logger
}

// Get returns the TagSet attached to the session, if any. The returned set is
// shared: callers read it but must not mutate it.
func (s *Store) Get(sessionID uint64) (*TagSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.sets[sessionID]
	return set, ok
}

// Set attaches a TagSet to the session, replacing any previous set wholesale.
// An empty or nil set unsets instead, preserving the invariant that empty
// sets are never stored.
func (s *Store) Set(sessionID uint64, set *TagSet) {
	if set == nil || set.Len() == 0 {
		s.Unset(sessionID)
		return
	}

	s.mu.Lock()
	s.sets[sessionID] = set
	s.mu.Unlock()
}

// Unset removes the session's TagSet, if any. Also the teardown path when a
// session ends.
func (s *Store) Unset(sessionID uint64) {
	s.mu.Lock()
	delete(s.sets, sessionID)
	s.mu.Unlock()
}

// Len returns the number of sessions that currently have a TagSet.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sets)
}

// ApplyUpdate ingests a raw tag list received over the network for a session.
// A non-empty decoded set replaces the session's TagSet wholesale; an empty
// one removes it. A malformed payload is logged at debug severity and
// rejected atomically: the session's existing TagSet is left untouched and
// the error is returned.
func (s *Store) ApplyUpdate(sessionID uint64, raw string) error {
	set, err := Decode(raw)
	if err != nil {
		if s.debug != nil {
			s.debug.Printf("Malformed tag list received for session %d: %s", sessionID, raw)
		}
		return err
	}
	s.Set(sessionID, set)
	return nil
}

// Export returns the session's TagSet in network form, and whether the
// session had one.
func (s *Store) Export(sessionID uint64) (string, bool) {
	set, ok := s.Get(sessionID)
	if !ok {
		return "", false
	}
	return Encode(set), true
}
