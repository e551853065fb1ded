package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store keeps one controller per session id
type Store struct {
	svc     Predicter
	idleTTL time.Duration
	log     zerolog.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Controller
}

// NewStore creates an empty session store. Sessions untouched for idleTTL
// are closed by Sweep.
func NewStore(svc Predicter, idleTTL time.Duration, log zerolog.Logger) *Store {
	return &Store{
		svc:      svc,
		idleTTL:  idleTTL,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*Controller),
	}
}

// Get returns the controller for id
func (s *Store) Get(id string) (*Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.sessions[id]
	return c, ok
}

// GetOrCreate returns the controller for id, starting a new session under a
// fresh id when id is unknown. The bool reports whether a session was created.
func (s *Store) GetOrCreate(id string) (*Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.sessions[id]; ok {
		return c, false
	}
	c := NewController(uuid.NewString(), s.svc, s.log)
	c.now = s.now
	c.lastActive = s.now()
	s.sessions[c.id] = c
	return c, true
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes and forgets idle sessions. It returns how many were removed.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	var idle []*Controller
	for id, c := range s.sessions {
		if c.idleSince(cutoff) {
			idle = append(idle, c)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, c := range idle {
		c.Close()
	}
	if len(idle) > 0 {
		s.log.Info().Int("removed", len(idle)).Msg("swept idle sessions")
	}
	return len(idle)
}

// Name identifies the sweep job
func (s *Store) Name() string {
	return "session_sweep"
}

// Run sweeps idle sessions
func (s *Store) Run() error {
	s.Sweep()
	return nil
}

// Close closes every session
func (s *Store) Close() {
	s.mu.Lock()
	all := make([]*Controller, 0, len(s.sessions))
	for id, c := range s.sessions {
		all = append(all, c)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
}
