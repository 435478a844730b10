package onboarding

import (
	"sync"
	"time"
)

type sessionState int

const (
	// stateStart is a fresh conversation that has not yet been greeted.
	stateStart sessionState = iota
	stateWaitingForRepo
	stateWaitingForSecret
)

// session tracks one chat's progress through onboarding. Its mutex
// serializes messages from the same chat and guards state and repo;
// lastSeen is guarded by the store mutex, since the sweep reads it across
// all sessions.
type session struct {
	mu       sync.Mutex
	state    sessionState
	repo     string
	lastSeen time.Time
}

// SessionStore holds in-memory onboarding conversations keyed by chat id.
// Sessions are transient: they are dropped on completion, expire after the
// TTL, and do not survive a restart.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a store evicting sessions idle longer than ttl.
// now is the clock; nil means time.Now.
func NewSessionStore(ttl time.Duration, now func() time.Time) *SessionStore {
	if now == nil {
		now = time.Now
	}
	return &SessionStore{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      now,
	}
}

// acquire returns the chat's session with its mutex held. Expired sessions
// are replaced with fresh ones, and the whole table is swept for other
// expired entries while the store lock is held.
func (s *SessionStore) acquire(chatID string) *session {
	s.mu.Lock()
	now := s.now()
	cutoff := now.Add(-s.ttl)
	for id, sess := range s.sessions {
		if id != chatID && sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
		}
	}

	sess, ok := s.sessions[chatID]
	if !ok || sess.lastSeen.Before(cutoff) {
		sess = &session{}
		s.sessions[chatID] = sess
	}
	sess.lastSeen = now
	s.mu.Unlock()

	sess.mu.Lock()
	return sess
}

// release unlocks a session previously returned by acquire.
func (s *SessionStore) release(sess *session) {
	sess.mu.Unlock()
}

// remove drops a completed conversation. The caller still holds the session
// lock; removal only unlinks it from the table.
func (s *SessionStore) remove(chatID string) {
	s.mu.Lock()
	delete(s.sessions, chatID)
	s.mu.Unlock()
}

// size reports the number of live sessions.
func (s *SessionStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
