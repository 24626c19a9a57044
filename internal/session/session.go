package session

import (
	"sync"
	"time"
)

// State is one stage of a session's lifecycle. States progress
// monotonically; a session observed in Terminated is never returned by
// the store again.
type State int

const (
	// Connecting is the state of a session created for a fresh
	// connection before any credentials have been checked.
	Connecting State = iota
	// Authenticating marks a session with a login attempt in flight.
	Authenticating
	// Authenticated marks a session that has passed authentication and
	// carries a real username and user id.
	Authenticated
	// Terminated marks a session that has been logged out, evicted, or
	// timed out; it is removed from the store rather than kept around
	// in this state, but CleanupExpired treats it as eligible for
	// removal if it is ever observed.
	Terminated
)

func (st State) String() string {
	switch st {
	case Connecting:
		return "Connecting"
	case Authenticating:
		return "Authenticating"
	case Authenticated:
		return "Authenticated"
	case Terminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// Session is one connection's record, from accept through logout. ID
// and RemoteAddr and CreatedAt never change after creation; everything
// else is read and written under mu, since cleanup and the handling
// goroutine both touch it concurrently.
type Session struct {
	ID         string
	RemoteAddr string
	CreatedAt  time.Time

	mu             sync.Mutex
	username       string
	userID         int
	state          State
	lastActivity   time.Time
	idleWarned     bool // idle-timeout warning already issued
	absoluteWarned bool // absolute-timeout warning already issued
}

func newSession(id, remoteAddr string, now time.Time) *Session {
	return &Session{
		ID:           id,
		RemoteAddr:   remoteAddr,
		CreatedAt:    now,
		state:        Connecting,
		lastActivity: now,
	}
}

// Username returns the authenticated username, or "" before
// authentication completes.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// UserID returns the numeric user id, or 0 before authentication
// completes.
func (s *Session) UserID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// setState sets the lifecycle state unconditionally; the store is
// responsible for only calling this with forward-progressing states.
func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// authenticate records the username and user id and transitions to
// Authenticated.
func (s *Session) authenticate(username string, userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = username
	s.userID = userID
	s.state = Authenticated
}

// Touch records activity, resetting the idle clock and clearing any
// issued warnings.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
	s.idleWarned = false
	s.absoluteWarned = false
}

// LastActivity returns the last recorded activity instant.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// IdleFor returns how long the session has been idle as of now.
func (s *Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActivity())
}

// Age returns how long the session has existed as of now.
func (s *Session) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

// IdleWarned reports whether the idle-timeout warning has already been
// issued since the last Touch.
func (s *Session) IdleWarned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idleWarned
}

// AbsoluteWarned reports whether the absolute-timeout warning has
// already been issued.
func (s *Session) AbsoluteWarned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.absoluteWarned
}

// markIdleWarned returns true if this call is the one that transitions
// the session into "idle warned" state (so the caller issues the
// warning exactly once per idle period).
func (s *Session) markIdleWarned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleWarned {
		return false
	}
	s.idleWarned = true
	return true
}

// markAbsoluteWarned returns true if this call is the one that
// transitions the session into "absolute warned" state.
func (s *Session) markAbsoluteWarned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.absoluteWarned {
		return false
	}
	s.absoluteWarned = true
	return true
}
