// Package auth implements password hashing, session-token minting,
// sliding-window rate limiting, and progressive account lockout.
package auth

import (
	"fmt"
	"time"
)

// ErrBadCredentials is returned when a password fails to verify against
// its stored hash.
var ErrBadCredentials = fmt.Errorf("auth: bad credentials")

// ErrMalformedHash is returned when a stored hash string isn't in the
// expected encoded form.
var ErrMalformedHash = fmt.Errorf("auth: malformed hash")

// LimitExceededError reports that a rate-limited key has too many
// attempts in its current window.
type LimitExceededError struct {
	RetryAfterSecs int64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("auth: rate limit exceeded, retry after %ds", e.RetryAfterSecs)
}

// AccountLockedError reports that a username is currently locked out.
type AccountLockedError struct {
	UnlockTime time.Time
	Reason     string
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("auth: account locked until %s: %s", e.UnlockTime.Format(time.RFC3339), e.Reason)
}
