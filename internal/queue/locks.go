package queue

import "sync"

// SessionLocks is a per-session try-lock registry. Both controllers share
// one registry so a repopulation and a regeneration for the same session
// can never interleave their read-modify-write cycles.
type SessionLocks struct {
	mu     sync.Mutex
	locked map[string]struct{}
}

// NewSessionLocks creates an empty registry.
func NewSessionLocks() *SessionLocks {
	return &SessionLocks{locked: make(map[string]struct{})}
}

// TryLock acquires the session's lock if free, without blocking.
func (l *SessionLocks) TryLock(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.locked[sessionID]; held {
		return false
	}
	l.locked[sessionID] = struct{}{}
	return true
}

// Unlock releases the session's lock.
func (l *SessionLocks) Unlock(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locked, sessionID)
}

// Held reports whether the session's lock is currently taken.
func (l *SessionLocks) Held(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, held := l.locked[sessionID]
	return held
}
