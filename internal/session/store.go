package session

import (
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/stlalpha/impulse7/internal/auth"
)

// ConflictPolicy governs what happens when a user authenticates a new
// session while already at MaxSessionsPerUser.
type ConflictPolicy int

const (
	// Allow lets the new session through, ignoring the per-user cap.
	Allow ConflictPolicy = iota
	// KickOldest evicts the user's oldest session to make room.
	KickOldest
	// DenyNew refuses to create the new session.
	DenyNew
)

// StoreConfig configures a Store. Zero values for the numeric limits
// mean "unlimited".
type StoreConfig struct {
	MaxTotalSessions     int
	MaxSessionsPerUser   int
	ConflictPolicy       ConflictPolicy
	IdleTimeout          time.Duration
	AbsoluteTimeout      time.Duration // 0 disables the absolute cap
	WarningBeforeTimeout time.Duration
	CleanupInterval      time.Duration
	UnlimitedUsers       map[string]bool
}

// Store is the session registry: a primary map from id to Session and
// a secondary map from username to its set of ids. Cross-map
// invariants are maintained by always taking the primary lock before
// the secondary lock. A session lives in the primary map from the
// moment CreateSession returns, whether or not it has been
// authenticated yet; the secondary index only gains an entry once
// AuthenticateSession succeeds.
type Store struct {
	cfg StoreConfig

	primaryMu sync.RWMutex
	primary   map[string]*Session

	secondaryMu sync.RWMutex
	secondary   map[string]map[string]struct{}

	cron *cron.Cron
}

// NewStore returns a Store configured with cfg.
func NewStore(cfg StoreConfig) *Store {
	if cfg.UnlimitedUsers == nil {
		cfg.UnlimitedUsers = make(map[string]bool)
	}
	return &Store{
		cfg:       cfg,
		primary:   make(map[string]*Session),
		secondary: make(map[string]map[string]struct{}),
	}
}

// CreateSession creates a pre-auth session for a connection from
// remoteAddr and returns its id, rejecting with TooManySessionsError if
// the total session ceiling is already reached. The session starts in
// Connecting and carries no username until AuthenticateSession is
// called on its id.
func (s *Store) CreateSession(remoteAddr string) (string, error) {
	if s.cfg.MaxTotalSessions > 0 {
		s.primaryMu.RLock()
		total := len(s.primary)
		s.primaryMu.RUnlock()
		if total >= s.cfg.MaxTotalSessions {
			return "", &TooManySessionsError{Limit: s.cfg.MaxTotalSessions}
		}
	}

	id, err := auth.NewToken()
	if err != nil {
		return "", err
	}
	sess := newSession(id, remoteAddr, time.Now())
	s.primaryMu.Lock()
	s.primary[id] = sess
	s.primaryMu.Unlock()
	return id, nil
}

// AuthenticateSession attaches username and userID to the session
// previously created by CreateSession, enforcing the per-user
// concurrency limit and ConflictPolicy, then transitions it to
// Authenticated and adds it to the secondary index. Returns
// ErrSessionNotFound if id has no pre-auth record (e.g. it already
// expired), or TooManySessionsError under DenyNew.
func (s *Store) AuthenticateSession(id, username string, userID int) error {
	s.primaryMu.RLock()
	sess, ok := s.primary[id]
	s.primaryMu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.setState(Authenticating)

	unlimited := s.cfg.UnlimitedUsers[username]
	if !unlimited && s.cfg.MaxSessionsPerUser > 0 {
		ids := s.userSessionIDs(username)
		if len(ids) >= s.cfg.MaxSessionsPerUser {
			switch s.cfg.ConflictPolicy {
			case DenyNew:
				return &TooManySessionsError{Limit: s.cfg.MaxSessionsPerUser}
			case KickOldest:
				if victim := s.oldestOf(ids); victim != "" {
					s.TerminateSession(victim)
				}
			case Allow:
				// proceed over the limit
			}
		}
	}

	sess.authenticate(username, userID)

	s.secondaryMu.Lock()
	set, ok := s.secondary[username]
	if !ok {
		set = make(map[string]struct{})
		s.secondary[username] = set
	}
	set[id] = struct{}{}
	s.secondaryMu.Unlock()

	return nil
}

// UpdateActivity resets id's idle clock to now.
func (s *Store) UpdateActivity(id string) error {
	s.primaryMu.RLock()
	sess, ok := s.primary[id]
	s.primaryMu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.Touch()
	return nil
}

// SetSessionState sets id's lifecycle state explicitly. It does not
// itself remove a session set to Terminated; CleanupExpired (or an
// explicit TerminateSession) does that.
func (s *Store) SetSessionState(id string, state State) error {
	s.primaryMu.RLock()
	sess, ok := s.primary[id]
	s.primaryMu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.setState(state)
	return nil
}

// userSessionIDs snapshots the token set for username.
func (s *Store) userSessionIDs(username string) []string {
	s.secondaryMu.RLock()
	defer s.secondaryMu.RUnlock()
	set := s.secondary[username]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// oldestOf finds the oldest session among ids while holding only the
// primary read lock, per the fixed read-then-write ordering.
func (s *Store) oldestOf(ids []string) string {
	s.primaryMu.RLock()
	defer s.primaryMu.RUnlock()
	var victim string
	var oldest time.Time
	for _, id := range ids {
		sess, ok := s.primary[id]
		if !ok {
			continue
		}
		if victim == "" || sess.CreatedAt.Before(oldest) {
			victim = id
			oldest = sess.CreatedAt
		}
	}
	return victim
}

// TerminateSession removes id from both indices.
func (s *Store) TerminateSession(id string) {
	s.primaryMu.Lock()
	sess, ok := s.primary[id]
	if ok {
		delete(s.primary, id)
	}
	s.primaryMu.Unlock()
	if !ok {
		return
	}

	if username := sess.Username(); username != "" {
		s.secondaryMu.Lock()
		if set, ok := s.secondary[username]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(s.secondary, username)
			}
		}
		s.secondaryMu.Unlock()
	}
}

// Remove ends a session explicitly (user-initiated logoff). It is an
// alias for TerminateSession kept for callers that predate the
// two-phase lifecycle naming.
func (s *Store) Remove(id string) {
	s.TerminateSession(id)
}

// GetSession looks up id. A session found to have exceeded its idle or
// absolute timeout, or already Terminated, is removed and
// ErrSessionExpired is returned instead of the stale record.
func (s *Store) GetSession(id string) (*Session, error) {
	s.primaryMu.RLock()
	sess, ok := s.primary[id]
	s.primaryMu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.expired(sess, time.Now()) {
		s.TerminateSession(id)
		return nil, ErrSessionExpired
	}
	return sess, nil
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	if sess.State() == Terminated {
		return true
	}
	if s.cfg.IdleTimeout > 0 && sess.IdleFor(now) > s.cfg.IdleTimeout {
		return true
	}
	if s.cfg.AbsoluteTimeout > 0 && !s.cfg.UnlimitedUsers[sess.Username()] && sess.Age(now) > s.cfg.AbsoluteTimeout {
		return true
	}
	return false
}

// GetUserSessions returns the live session ids for username.
func (s *Store) GetUserSessions(username string) []string {
	return s.userSessionIDs(username)
}

// ListAll returns a snapshot of every live session.
func (s *Store) ListAll() []*Session {
	s.primaryMu.RLock()
	defer s.primaryMu.RUnlock()
	out := make([]*Session, 0, len(s.primary))
	for _, sess := range s.primary {
		out = append(out, sess)
	}
	return out
}

// ListFiltered returns every live session for which keep returns true.
func (s *Store) ListFiltered(keep func(*Session) bool) []*Session {
	all := s.ListAll()
	out := make([]*Session, 0, len(all))
	for _, sess := range all {
		if keep(sess) {
			out = append(out, sess)
		}
	}
	return out
}

// CheckTimeoutWarnings returns two lists of session ids: those that
// have crossed idle_timeout-warning_lead without an idle warning sent,
// and those that have crossed absolute_timeout-warning_lead without an
// absolute warning sent. Users in the configured unlimited set are
// never included in the absolute list.
func (s *Store) CheckTimeoutWarnings() (idleWarnings, absoluteWarnings []string) {
	now := time.Now()
	s.primaryMu.RLock()
	defer s.primaryMu.RUnlock()

	for id, sess := range s.primary {
		if s.cfg.WarningBeforeTimeout <= 0 {
			continue
		}
		if s.cfg.IdleTimeout > 0 {
			remaining := s.cfg.IdleTimeout - sess.IdleFor(now)
			if remaining > 0 && remaining <= s.cfg.WarningBeforeTimeout && !sess.IdleWarned() {
				idleWarnings = append(idleWarnings, id)
			}
		}
		if s.cfg.AbsoluteTimeout > 0 && !s.cfg.UnlimitedUsers[sess.Username()] {
			remaining := s.cfg.AbsoluteTimeout - sess.Age(now)
			if remaining > 0 && remaining <= s.cfg.WarningBeforeTimeout && !sess.AbsoluteWarned() {
				absoluteWarnings = append(absoluteWarnings, id)
			}
		}
	}
	return idleWarnings, absoluteWarnings
}

// MarkIdleWarningSent records that id's idle-timeout warning has been
// issued, so CheckTimeoutWarnings will not return it again until the
// next Touch.
func (s *Store) MarkIdleWarningSent(id string) error {
	s.primaryMu.RLock()
	sess, ok := s.primary[id]
	s.primaryMu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.markIdleWarned()
	return nil
}

// MarkAbsoluteWarningSent records that id's absolute-timeout warning
// has been issued.
func (s *Store) MarkAbsoluteWarningSent(id string) error {
	s.primaryMu.RLock()
	sess, ok := s.primary[id]
	s.primaryMu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.markAbsoluteWarned()
	return nil
}

// CleanupExpired removes every session that is Terminated or has
// exceeded its idle or absolute timeout, and returns the count removed.
func (s *Store) CleanupExpired() int {
	now := time.Now()
	s.primaryMu.RLock()
	var expired []string
	for id, sess := range s.primary {
		if s.expired(sess, now) {
			expired = append(expired, id)
		}
	}
	s.primaryMu.RUnlock()

	for _, id := range expired {
		s.TerminateSession(id)
	}
	return len(expired)
}

// StartCleanupTask schedules CleanupExpired to run every
// CleanupInterval using a cron constant-delay schedule, returning a stop
// function. A zero CleanupInterval disables the task (StartCleanupTask
// is then a no-op returning a no-op stop func).
func (s *Store) StartCleanupTask() (stop func()) {
	if s.cfg.CleanupInterval <= 0 {
		return func() {}
	}
	s.cron = cron.New()
	s.cron.Schedule(cron.ConstantDelaySchedule{Delay: s.cfg.CleanupInterval}, cron.FuncJob(func() {
		if n := s.CleanupExpired(); n > 0 {
			log.Printf("session: cleanup removed %d expired session(s)", n)
		}
	}))
	s.cron.Start()
	return func() {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
}

// UsernameCreator adapts a Store to auth.SessionCreator for callers
// that authenticate in one step with no pre-existing connection-time
// session id: it runs CreateSession followed by AuthenticateSession
// against a synthetic remote address and user id of zero. Transports
// that accept a connection before authentication (and so already hold
// a session id from CreateSession) should call AuthenticateSession on
// that id directly instead of going through this adapter.
type UsernameCreator struct {
	Store *Store
}

// CreateSession implements auth.SessionCreator.
func (c UsernameCreator) CreateSession(username string) (string, error) {
	id, err := c.Store.CreateSession("")
	if err != nil {
		return "", err
	}
	if err := c.Store.AuthenticateSession(id, username, 0); err != nil {
		c.Store.TerminateSession(id)
		return "", err
	}
	return id, nil
}
