// Package sshauth adapts the auth service's login flow to a gliderlabs
// ssh.PasswordHandler.
package sshauth

import (
	"log"
	"net"

	"github.com/gliderlabs/ssh"

	"github.com/stlalpha/impulse7/internal/auth"
)

// contextSessionTokenKey is the ssh.Context key under which the minted
// session token is stashed after a successful login, for the connection
// handler to pick up once the session starts.
const contextSessionTokenKey = "impulse7-session-token"

// UserLookup resolves a username to its stored password hash. Returning
// ok=false models an unknown user without distinguishing it from a bad
// password, so a login attempt against a nonexistent account is rate
// limited and lockout-tracked the same way a wrong password is.
type UserLookup interface {
	StoredHash(username string) (hash string, ok bool)
}

// Authenticator bridges incoming SSH password auth attempts to an
// auth.Service.
type Authenticator struct {
	users UserLookup
	svc   *auth.Service
}

// NewAuthenticator returns an Authenticator that looks up stored hashes
// via users and runs logins through svc.
func NewAuthenticator(users UserLookup, svc *auth.Service) *Authenticator {
	return &Authenticator{users: users, svc: svc}
}

func extractIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// PasswordHandler returns an ssh.PasswordHandler that authenticates via
// Authenticator's auth.Service. Rate limiting and lockout decisions are
// made per-username by the service, not per-IP; the IP is logged only
// for operator visibility.
func (a *Authenticator) PasswordHandler() ssh.PasswordHandler {
	return func(ctx ssh.Context, password string) bool {
		username := ctx.User()
		ip := extractIP(ctx.RemoteAddr().String())

		hash, ok := a.users.StoredHash(username)
		if !ok {
			// Run a login attempt against an empty hash anyway so an
			// unknown username still costs the caller a rate-limit slot
			// instead of returning instantly and inviting username
			// enumeration by timing.
			hash = ""
		}

		token, err := a.svc.Login(username, password, hash)
		if err != nil {
			switch e := err.(type) {
			case *auth.AccountLockedError:
				log.Printf("WARN: SSH auth: %s locked out until %s (from %s)", username, e.UnlockTime, ip)
			case *auth.LimitExceededError:
				log.Printf("WARN: SSH auth: %s rate limited, retry in %ds (from %s)", username, e.RetryAfterSecs, ip)
			default:
				log.Printf("INFO: SSH auth: failed login for %s from %s", username, ip)
			}
			return false
		}

		ctx.SetValue(contextSessionTokenKey, token)
		log.Printf("INFO: SSH auth: %s authenticated from %s", username, ip)
		return true
	}
}

// SessionToken retrieves the token minted during PasswordHandler for
// ctx, if any.
func SessionToken(ctx ssh.Context) (string, bool) {
	v := ctx.Value(contextSessionTokenKey)
	if v == nil {
		return "", false
	}
	token, ok := v.(string)
	return token, ok
}
