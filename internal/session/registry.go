package session

import "sync"

// Registry maps a user to their single active session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int64]*Session)}
}

// Put installs s for its user and returns the session it replaced, if any.
func (r *Registry) Put(s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.sessions[s.UserID]
	r.sessions[s.UserID] = s
	return prev
}

func (r *Registry) Get(userID int64) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[userID]
	return s, ok
}

// Remove evicts s only if it is still the user's current session.
func (r *Registry) Remove(userID int64, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.sessions[userID]; ok && cur == s {
		delete(r.sessions, userID)
		return true
	}
	return false
}

// Take evicts and returns the user's current session.
func (r *Registry) Take(userID int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	if ok {
		delete(r.sessions, userID)
	}
	return s, ok
}

// Drain evicts every session.
func (r *Registry) Drain() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		out = append(out, s)
		delete(r.sessions, id)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
