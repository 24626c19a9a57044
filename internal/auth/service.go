package auth

// SessionCreator is the narrow slice of a session store that Service
// needs: minting a new session for a username that has just
// authenticated. Kept as an interface here (rather than importing the
// session package directly) so auth has no dependency on session
// policy; the session store instead depends on auth for hashing and
// tokens.
type SessionCreator interface {
	CreateSession(username string) (token string, err error)
}

// ServiceConfig composes the pieces a login flow needs. RateLimiter and
// Lockout are optional: a nil value skips that stage entirely.
type ServiceConfig struct {
	Hasher      *Hasher
	Sessions    SessionCreator
	RateLimiter *RateLimiter
	Lockout     *AccountLockout
}

// Service implements the fixed login sequence: lockout check, then
// rate-limit check, then password verification, then (on success)
// recording success on both guards and minting a session; on failure,
// recording the attempt against the rate limiter and the failure
// against the lockout. Lockout is checked before the rate limiter so a
// locked user never also burns a rate-limit slot.
type Service struct {
	cfg ServiceConfig
}

// NewService returns a Service composed from cfg.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Hasher == nil {
		cfg.Hasher = NewHasher()
	}
	return &Service{cfg: cfg}
}

// Login runs the fixed-order login flow against a caller-supplied
// encoded hash (the caller is responsible for looking up the user
// record; Service has no notion of a user store). On success it returns
// the newly minted session token.
func (s *Service) Login(username, password, storedHash string) (token string, err error) {
	if s.cfg.Lockout != nil {
		if err := s.cfg.Lockout.Check(username); err != nil {
			return "", err
		}
	}
	if s.cfg.RateLimiter != nil {
		if err := s.cfg.RateLimiter.Check(username); err != nil {
			return "", err
		}
	}

	if verr := s.cfg.Hasher.Verify(password, storedHash); verr != nil {
		if s.cfg.RateLimiter != nil {
			s.cfg.RateLimiter.RecordAttempt(username)
		}
		if s.cfg.Lockout != nil {
			s.cfg.Lockout.RecordFailure(username)
		}
		return "", ErrBadCredentials
	}

	if s.cfg.RateLimiter != nil {
		s.cfg.RateLimiter.RecordSuccess(username)
	}
	if s.cfg.Lockout != nil {
		s.cfg.Lockout.RecordSuccess(username)
	}
	if s.cfg.Sessions == nil {
		return "", nil
	}
	return s.cfg.Sessions.CreateSession(username)
}
