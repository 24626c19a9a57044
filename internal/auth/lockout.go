package auth

import (
	"sync"
	"time"
)

// LockoutConfig configures an AccountLockout.
type LockoutConfig struct {
	MaxFailures     int
	LockoutDuration time.Duration
	Progressive     bool
}

type lockRecord struct {
	failures int
	round    int // number of completed lockout rounds, for progressive doubling
	lockedAt time.Time
	unlockAt time.Time
	reason   string
	locked   bool
}

// AccountLockout tracks consecutive authentication failures per username
// and installs a timed lock once the failure count reaches MaxFailures.
type AccountLockout struct {
	cfg     LockoutConfig
	mu      sync.RWMutex
	records map[string]*lockRecord
}

// NewAccountLockout returns an AccountLockout configured with cfg.
func NewAccountLockout(cfg LockoutConfig) *AccountLockout {
	return &AccountLockout{
		cfg:     cfg,
		records: make(map[string]*lockRecord),
	}
}

// Check succeeds if username is not locked. A lock whose unlock instant
// has already passed is removed and Check succeeds.
func (l *AccountLockout) Check(username string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[username]
	if !ok || !rec.locked {
		return nil
	}
	if time.Now().After(rec.unlockAt) {
		delete(l.records, username)
		return nil
	}
	return &AccountLockedError{UnlockTime: rec.unlockAt, Reason: rec.reason}
}

// RecordFailure increments username's failure counter. Reaching
// MaxFailures installs a lock; with Progressive set, the nth round's
// duration is LockoutDuration * 2^(n-1).
func (l *AccountLockout) RecordFailure(username string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[username]
	if !ok {
		rec = &lockRecord{}
		l.records[username] = rec
	}
	rec.failures++
	if rec.failures >= l.cfg.MaxFailures {
		rec.round++
		duration := l.cfg.LockoutDuration
		if l.cfg.Progressive {
			duration = l.cfg.LockoutDuration * time.Duration(1<<uint(rec.round-1))
		}
		now := time.Now()
		rec.locked = true
		rec.lockedAt = now
		rec.unlockAt = now.Add(duration)
		rec.reason = "too many failed login attempts"
		rec.failures = 0
	}
}

// RecordSuccess clears username's failure counter but leaves an active
// lock in place; a successful credential check never happens while
// locked since Check runs first, but this keeps the contract explicit.
func (l *AccountLockout) RecordSuccess(username string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[username]
	if !ok {
		return
	}
	rec.failures = 0
	if !rec.locked {
		delete(l.records, username)
	}
}

// Unlock is an administrative override: it clears both the lock and the
// failure counter for username.
func (l *AccountLockout) Unlock(username string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, username)
}

// RemainingAttempts returns MaxFailures minus the current failure count,
// saturating at zero; returns zero while locked.
func (l *AccountLockout) RemainingAttempts(username string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[username]
	if !ok {
		return l.cfg.MaxFailures
	}
	if rec.locked {
		return 0
	}
	remaining := l.cfg.MaxFailures - rec.failures
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CleanupExpired removes lapsed locks, returning the number removed.
func (l *AccountLockout) CleanupExpired() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	removed := 0
	for username, rec := range l.records {
		if rec.locked && now.After(rec.unlockAt) {
			delete(l.records, username)
			removed++
		}
	}
	return removed
}
