package session

import (
	"testing"
	"time"
)

// authSession runs the two-phase create+authenticate flow a real
// transport would run across connection accept and login, and returns
// the resulting session id.
func authSession(t *testing.T, store *Store, username string) string {
	t.Helper()
	id, err := store.CreateSession("1.2.3.4:0")
	if err != nil {
		t.Fatalf("create session for %s: %v", username, err)
	}
	if err := store.AuthenticateSession(id, username, 0); err != nil {
		t.Fatalf("authenticate session for %s: %v", username, err)
	}
	return id
}

// Scenario: KickOldest policy. max_sessions_per_user=2,
// conflict_policy=KickOldest. Authenticate S1, S2, S3 for "alice" in
// order with small delays. After S3, S1 is gone and {S2, S3} remain.
func TestKickOldestPolicyScenario(t *testing.T) {
	store := NewStore(StoreConfig{MaxSessionsPerUser: 2, ConflictPolicy: KickOldest})

	s1 := authSession(t, store, "alice")
	time.Sleep(2 * time.Millisecond)
	s2 := authSession(t, store, "alice")
	time.Sleep(2 * time.Millisecond)
	s3 := authSession(t, store, "alice")

	if _, err := store.GetSession(s1); err != ErrSessionNotFound {
		t.Errorf("GetSession(s1) = %v, want ErrSessionNotFound", err)
	}

	ids := store.GetUserSessions("alice")
	got := map[string]bool{}
	for _, id := range ids {
		got[id] = true
	}
	if len(got) != 2 || !got[s2] || !got[s3] {
		t.Errorf("got sessions %v, want exactly {%s, %s}", ids, s2, s3)
	}
}

func TestDenyNewPolicy(t *testing.T) {
	store := NewStore(StoreConfig{MaxSessionsPerUser: 1, ConflictPolicy: DenyNew})

	authSession(t, store, "bob")
	id, err := store.CreateSession("1.2.3.4:0")
	if err != nil {
		t.Fatalf("create second session: %v", err)
	}
	if err := store.AuthenticateSession(id, "bob", 0); err == nil {
		t.Fatal("expected TooManySessionsError")
	} else if _, ok := err.(*TooManySessionsError); !ok {
		t.Errorf("got %T, want *TooManySessionsError", err)
	}
}

func TestAllowPolicyExceedsLimit(t *testing.T) {
	store := NewStore(StoreConfig{MaxSessionsPerUser: 1, ConflictPolicy: Allow})
	authSession(t, store, "carl")
	authSession(t, store, "carl")
	if got := len(store.GetUserSessions("carl")); got != 2 {
		t.Errorf("got %d sessions, want 2", got)
	}
}

func TestUnlimitedUserBypassesLimits(t *testing.T) {
	store := NewStore(StoreConfig{
		MaxSessionsPerUser: 1,
		ConflictPolicy:     DenyNew,
		UnlimitedUsers:     map[string]bool{"sysop": true},
	})
	authSession(t, store, "sysop")
	id, err := store.CreateSession("1.2.3.4:0")
	if err != nil {
		t.Fatalf("create second session: %v", err)
	}
	if err := store.AuthenticateSession(id, "sysop", 0); err != nil {
		t.Errorf("unlimited user should bypass the per-user cap: %v", err)
	}
}

// Universal invariant: for every user with N authenticated sessions,
// GetUserSessions returns exactly N ids, every one of which resolves in
// the primary map.
func TestSessionCountInvariant(t *testing.T) {
	store := NewStore(StoreConfig{})
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, authSession(t, store, "dana"))
	}

	got := store.GetUserSessions("dana")
	if len(got) != len(ids) {
		t.Fatalf("got %d sessions, want %d", len(got), len(ids))
	}
	for _, id := range got {
		if _, err := store.GetSession(id); err != nil {
			t.Errorf("session %s not resolvable: %v", id, err)
		}
	}
}

func TestCleanupExpiredRemovesPastAbsoluteTimeout(t *testing.T) {
	store := NewStore(StoreConfig{AbsoluteTimeout: 20 * time.Millisecond})
	id := authSession(t, store, "eve")
	time.Sleep(30 * time.Millisecond)

	if removed := store.CleanupExpired(); removed != 1 {
		t.Errorf("CleanupExpired removed %d, want 1", removed)
	}
	if _, err := store.GetSession(id); err != ErrSessionNotFound {
		t.Errorf("got %v, want ErrSessionNotFound after cleanup", err)
	}
}

func TestCleanupExpiredSkipsAbsoluteTimeoutForUnlimitedUser(t *testing.T) {
	store := NewStore(StoreConfig{
		AbsoluteTimeout: 20 * time.Millisecond,
		UnlimitedUsers:  map[string]bool{"sysop": true},
	})
	id := authSession(t, store, "sysop")
	time.Sleep(30 * time.Millisecond)

	if removed := store.CleanupExpired(); removed != 0 {
		t.Errorf("CleanupExpired removed %d, want 0 for an unlimited user", removed)
	}
	if _, err := store.GetSession(id); err != nil {
		t.Errorf("unlimited user's session should survive the absolute timeout: %v", err)
	}
}

func TestCleanupExpiredRemovesPastIdleTimeout(t *testing.T) {
	store := NewStore(StoreConfig{IdleTimeout: 20 * time.Millisecond})
	id := authSession(t, store, "frank")
	time.Sleep(30 * time.Millisecond)

	if removed := store.CleanupExpired(); removed != 1 {
		t.Errorf("CleanupExpired removed %d, want 1", removed)
	}
	if _, err := store.GetSession(id); err != ErrSessionNotFound {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}
}

func TestCleanupExpiredRemovesTerminatedState(t *testing.T) {
	store := NewStore(StoreConfig{})
	id := authSession(t, store, "gus")
	if err := store.SetSessionState(id, Terminated); err != nil {
		t.Fatalf("set state: %v", err)
	}
	if removed := store.CleanupExpired(); removed != 1 {
		t.Errorf("CleanupExpired removed %d, want 1", removed)
	}
}

func TestTouchResetsIdleClock(t *testing.T) {
	store := NewStore(StoreConfig{IdleTimeout: 30 * time.Millisecond})
	id := authSession(t, store, "gina")

	time.Sleep(20 * time.Millisecond)
	sess, err := store.GetSession(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	sess.Touch()

	time.Sleep(20 * time.Millisecond)
	if _, err := store.GetSession(id); err != nil {
		t.Errorf("session should still be alive after Touch reset the idle clock: %v", err)
	}
}

// Scenario: a freshly created, unauthenticated session is addressable
// by id and starts in Connecting with no username, but is invisible to
// GetUserSessions until AuthenticateSession runs.
func TestCreateSessionIsPreAuth(t *testing.T) {
	store := NewStore(StoreConfig{})
	id, err := store.CreateSession("10.0.0.1:4000")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	sess, err := store.GetSession(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.State() != Connecting {
		t.Errorf("state = %v, want Connecting", sess.State())
	}
	if sess.Username() != "" {
		t.Errorf("username = %q, want empty before authentication", sess.Username())
	}
	if got := store.GetUserSessions("hana"); len(got) != 0 {
		t.Errorf("unauthenticated session should not appear under any username, got %v", got)
	}

	if err := store.AuthenticateSession(id, "hana", 42); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if sess.State() != Authenticated {
		t.Errorf("state = %v, want Authenticated", sess.State())
	}
	if sess.UserID() != 42 {
		t.Errorf("user id = %d, want 42", sess.UserID())
	}
	if got := store.GetUserSessions("hana"); len(got) != 1 || got[0] != id {
		t.Errorf("got %v, want [%s]", got, id)
	}
}

func TestAuthenticateSessionUnknownID(t *testing.T) {
	store := NewStore(StoreConfig{})
	if err := store.AuthenticateSession("no-such-id", "anyone", 1); err != ErrSessionNotFound {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}
}

// Scenario: check_timeout_warnings returns the idle list once a session
// crosses idle_timeout-warning_lead, and stops returning it once marked.
func TestCheckTimeoutWarningsIdleList(t *testing.T) {
	store := NewStore(StoreConfig{IdleTimeout: 30 * time.Millisecond, WarningBeforeTimeout: 20 * time.Millisecond})
	id := authSession(t, store, "ivy")

	time.Sleep(15 * time.Millisecond)
	idle, absolute := store.CheckTimeoutWarnings()
	if len(absolute) != 0 {
		t.Errorf("absolute = %v, want none (no absolute timeout configured)", absolute)
	}
	if len(idle) != 1 || idle[0] != id {
		t.Fatalf("idle = %v, want [%s]", idle, id)
	}

	if err := store.MarkIdleWarningSent(id); err != nil {
		t.Fatalf("mark: %v", err)
	}
	idle, _ = store.CheckTimeoutWarnings()
	if len(idle) != 0 {
		t.Errorf("idle = %v, want none once warned", idle)
	}
}

// Scenario: check_timeout_warnings never includes an unlimited user in
// the absolute list, even once it has crossed the absolute lead time.
func TestCheckTimeoutWarningsExcludesUnlimitedFromAbsolute(t *testing.T) {
	store := NewStore(StoreConfig{
		AbsoluteTimeout:      30 * time.Millisecond,
		WarningBeforeTimeout: 20 * time.Millisecond,
		UnlimitedUsers:       map[string]bool{"sysop": true},
	})
	authSession(t, store, "sysop")
	time.Sleep(15 * time.Millisecond)

	_, absolute := store.CheckTimeoutWarnings()
	if len(absolute) != 0 {
		t.Errorf("absolute = %v, want none for an unlimited user", absolute)
	}
}

func TestMarkAbsoluteWarningSentUnknownID(t *testing.T) {
	store := NewStore(StoreConfig{})
	if err := store.MarkAbsoluteWarningSent("no-such-id"); err != ErrSessionNotFound {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}
}

func TestUpdateActivityUnknownID(t *testing.T) {
	store := NewStore(StoreConfig{})
	if err := store.UpdateActivity("no-such-id"); err != ErrSessionNotFound {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}
}
