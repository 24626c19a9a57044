// Command impulsed is the composition root: it wires the user store, the
// authentication core, the session store, and the SSH transport into a
// running BBS server.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gliderlabs/ssh"
	"github.com/google/uuid"

	"github.com/stlalpha/impulse7/internal/auth"
	"github.com/stlalpha/impulse7/internal/dropfile"
	"github.com/stlalpha/impulse7/internal/logging"
	"github.com/stlalpha/impulse7/internal/pascal"
	"github.com/stlalpha/impulse7/internal/session"
	"github.com/stlalpha/impulse7/internal/sshauth"
	"github.com/stlalpha/impulse7/internal/sshserver"
	"github.com/stlalpha/impulse7/internal/userstore"
)

func main() {
	var (
		host        = flag.String("host", "0.0.0.0", "listen address")
		port        = flag.Int("port", 2222, "listen port")
		hostKeyPath = flag.String("host-key", "impulsed_host_key", "path to SSH host key")
		dataDir     = flag.String("data-dir", "./data", "directory holding users.dat and users.auth.json")
		debug       = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()
	logging.DebugEnabled = *debug || os.Getenv("DEBUG") == "1"

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}

	users, err := userstore.Open(*dataDir)
	if err != nil {
		log.Fatalf("open user store: %v", err)
	}

	sessions := session.NewStore(session.StoreConfig{
		MaxSessionsPerUser:   2,
		ConflictPolicy:       session.KickOldest,
		IdleTimeout:          15 * time.Minute,
		AbsoluteTimeout:      4 * time.Hour,
		WarningBeforeTimeout: time.Minute,
		CleanupInterval:      time.Minute,
		UnlimitedUsers:       map[string]bool{"sysop": true},
	})
	stopCleanup := sessions.StartCleanupTask()
	defer stopCleanup()

	svc := auth.NewService(auth.ServiceConfig{
		Sessions:    session.UsernameCreator{Store: sessions},
		RateLimiter: auth.NewRateLimiter(auth.RateLimiterConfig{MaxAttempts: 5, Window: time.Minute}),
		Lockout:     auth.NewAccountLockout(auth.LockoutConfig{MaxFailures: 3, LockoutDuration: time.Minute, Progressive: true}),
	})

	authenticator := sshauth.NewAuthenticator(users, svc)

	dropDir := filepath.Join(*dataDir, "dropfiles")
	if err := os.MkdirAll(dropDir, 0o755); err != nil {
		log.Fatalf("create dropfile dir: %v", err)
	}

	srv, err := sshserver.NewServer(sshserver.Config{
		HostKeyPath:     *hostKeyPath,
		Host:            *host,
		Port:            *port,
		Version:         "impulse7",
		PasswordHandler: authenticator.PasswordHandler(),
		SessionHandler:  handleSession(sessions, users, dropDir),
	})
	if err != nil {
		log.Fatalf("build SSH server: %v", err)
	}

	log.Printf("INFO: listening on %s:%d", *host, *port)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

// handleSession returns the per-connection handler run once password
// auth succeeds. It writes a DOOR.SYS dropfile for the session and
// echoes a banner; real menu and door-launch behavior lives outside this
// core's scope.
func handleSession(sessions *session.Store, users *userstore.Store, dropDir string) func(ssh.Session) {
	return func(s ssh.Session) {
		connID := uuid.NewString()
		log.Printf("INFO: [%s] connection from %s", connID, s.RemoteAddr())

		token, ok := sshauth.SessionToken(s.Context())
		if !ok {
			fmt.Fprintln(s, "internal error: no session token")
			s.Exit(1)
			return
		}
		sess, err := sessions.GetSession(token)
		if err != nil {
			fmt.Fprintln(s, "session expired, please reconnect")
			s.Exit(1)
			return
		}

		username := sess.Username()
		rec, err := users.GetUser(username)
		if err != nil {
			rec = &pascal.UserRec{}
		}
		info := dropfile.Info{
			CommPort:      "COM0:",
			Parity:        8,
			NodeNumber:    1,
			ScreenDisplay: true,
			PageBell:      true,
			RealName:      rec.RealName,
			Alias:         username,
			Location:      rec.City,
			SecurityLevel: int(rec.SecurityLvl),
			TotalTimesOn:  int(rec.TimesOn),
			GraphicsMode:  "GR",
			PageLength:    24,
			AnsiEnabled:   true,
			DefaultProto:  "Z",
		}
		dropPath := filepath.Join(dropDir, username+".sys")
		if f, ferr := os.Create(dropPath); ferr == nil {
			if werr := dropfile.Write(f, info); werr != nil {
				log.Printf("WARN: writing dropfile for %s: %v", username, werr)
			}
			f.Close()
		} else {
			log.Printf("WARN: creating dropfile for %s: %v", username, ferr)
		}

		fmt.Fprintf(s, "Welcome, %s.\r\n", username)
		sess.Touch()
		s.Exit(0)
	}
}
