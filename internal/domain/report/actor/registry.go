// SPDX-License-Identifier: MIT

package actor

import (
	"github.com/google/uuid"
)

// Registry maps a user to their live session. At most one session per user;
// a later Register wins. Owned by the actor goroutine and not safe for
// concurrent use.
type Registry struct {
	sessions map[uuid.UUID]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*Session)}
}

// Register maps s.UserID to s and returns the session it replaced, if any.
func (r *Registry) Register(s *Session) (replaced *Session) {
	replaced = r.sessions[s.UserID]
	r.sessions[s.UserID] = s
	if replaced == s {
		return nil
	}
	return replaced
}

// Deregister removes the entry for user. When only is non-nil the entry is
// removed only if it is that session. It reports whether anything was removed.
func (r *Registry) Deregister(user uuid.UUID, only *Session) bool {
	cur, ok := r.sessions[user]
	if !ok {
		return false
	}
	if only != nil && cur != only {
		return false
	}
	delete(r.sessions, user)
	return true
}

// Lookup returns the live session for user.
func (r *Registry) Lookup(user uuid.UUID) (*Session, bool) {
	s, ok := r.sessions[user]
	return s, ok
}

// Len returns the number of registered users.
func (r *Registry) Len() int { return len(r.sessions) }
