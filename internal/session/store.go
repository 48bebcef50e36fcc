package session

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// Store manages route sessions in memory
type Store struct {
	sessions  map[string]*RouteSession
	mu        sync.RWMutex
	validator Validator
	builder   MatrixBuilder
	opts      Options
}

// NewStore creates a session store whose sessions share the given providers and options
func NewStore(validator Validator, builder MatrixBuilder, opts Options) *Store {
	return &Store{
		sessions:  make(map[string]*RouteSession),
		validator: validator,
		builder:   builder,
		opts:      opts,
	}
}

func (s *Store) Create() *RouteSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := New(uuid.NewString(), s.validator, s.builder, s.opts)
	s.sessions[session.ID] = session
	log.Printf("[SESSION] Created route session: id=%s sessions=%d", session.ID, len(s.sessions))
	return session
}

func (s *Store) Get(id string) *RouteSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// Delete removes a session and reports whether it existed
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	log.Printf("[SESSION] Deleted route session: id=%s", id)
	return true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
