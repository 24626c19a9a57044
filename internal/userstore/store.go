package userstore

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/stlalpha/impulse7/internal/auth"
	"github.com/stlalpha/impulse7/internal/pascal"
)

// recordSize is sizeof(pascal.UserRec) as produced by its Fields method:
// two 37-byte short strings (Handle, RealName), a 21-byte short string
// (Password), a 31-byte short string (City), a 6-byte DateTime, two
// 2-byte uint16s, three 32-byte flag sets, one more 2-byte uint16, and 8
// reserved bytes.
const recordSize = 37 + 37 + 21 + 31 + 6 + 2 + 2 + 32 + 32 + 32 + 2 + 8

// Store is the system of record for accounts: one pascal.UserRec per
// username in a position-addressed flat file, plus a JSON side file of
// Argon2id password hashes. Both are guarded by one lock so a reader never
// observes a half-written account.
type Store struct {
	mu        sync.RWMutex
	dataPath  string
	authPath  string
	hasher    *auth.Hasher
	index     map[string]int // username -> record number
	hashes    map[string]string
	nextIndex int
}

// Open loads (or creates) the user store rooted at dataPath/users.dat and
// dataPath/users.auth.json.
func Open(dataPath string) (*Store, error) {
	s := &Store{
		dataPath: dataPath + "/users.dat",
		authPath: dataPath + "/users.auth.json",
		hasher:   auth.NewHasher(),
		index:    make(map[string]int),
		hashes:   make(map[string]string),
	}
	if err := s.loadHashes(); err != nil {
		return nil, fmt.Errorf("load auth side file: %w", err)
	}
	if err := s.loadIndex(); err != nil {
		return nil, fmt.Errorf("load user records: %w", err)
	}
	return s, nil
}

func (s *Store) loadHashes() error {
	data, err := os.ReadFile(s.authPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &s.hashes)
}

func (s *Store) saveHashesLocked() error {
	data, err := json.MarshalIndent(s.hashes, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.authPath, data, 0o600)
}

// loadIndex scans users.dat once at startup to build username -> record
// number, skipping (and logging, per the corrupt-record-tolerance policy
// for bulk loads) any record that fails to decode rather than aborting.
func (s *Store) loadIndex() error {
	f, err := os.Open(s.dataPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, recordSize)
	for n := 0; ; n++ {
		if _, err := f.ReadAt(buf, int64(n)*recordSize); err != nil {
			break
		}
		var rec pascal.UserRec
		if err := pascal.Decode(buf, &rec); err != nil {
			continue
		}
		if rec.Handle == "" {
			continue
		}
		s.index[rec.Handle] = n
		s.nextIndex = n + 1
	}
	return nil
}

// GetUser returns the account record for username, if any.
func (s *Store) GetUser(username string) (*pascal.UserRec, error) {
	s.mu.RLock()
	n, ok := s.index[username]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.readRecord(n)
}

func (s *Store) readRecord(n int) (*pascal.UserRec, error) {
	f, err := os.Open(s.dataPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, recordSize)
	if _, err := f.ReadAt(buf, int64(n)*recordSize); err != nil {
		return nil, fmt.Errorf("read record %d: %w", n, err)
	}
	var rec pascal.UserRec
	if err := pascal.Decode(buf, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateUser adds a new account: rec.Handle must be unique. The password
// hash is written to the side file before the record is appended; if the
// append fails the side-file entry is rolled back, so a reader never sees
// a hash with no matching record or vice versa.
func (s *Store) CreateUser(username, password string, rec pascal.UserRec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[username]; exists {
		return ErrAlreadyExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	prevHash, hadPrev := s.hashes[username]
	s.hashes[username] = hash
	if err := s.saveHashesLocked(); err != nil {
		if hadPrev {
			s.hashes[username] = prevHash
		} else {
			delete(s.hashes, username)
		}
		return fmt.Errorf("save auth side file: %w", err)
	}

	rec.Handle = username
	if err := s.appendRecordLocked(rec); err != nil {
		if hadPrev {
			s.hashes[username] = prevHash
		} else {
			delete(s.hashes, username)
		}
		s.saveHashesLocked()
		return fmt.Errorf("append user record: %w", err)
	}

	s.index[username] = s.nextIndex
	s.nextIndex++
	return nil
}

func (s *Store) appendRecordLocked(rec pascal.UserRec) error {
	f, err := os.OpenFile(s.dataPath, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	data := pascal.Encode(&rec)
	if len(data) != recordSize {
		return fmt.Errorf("encoded record is %d bytes, want %d", len(data), recordSize)
	}
	_, err = f.WriteAt(data, int64(s.nextIndex)*recordSize)
	return err
}

// StoredHash satisfies sshauth.UserLookup: it returns the Argon2id-encoded
// hash for username, or ok=false for an unknown account.
func (s *Store) StoredHash(username string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, ok := s.hashes[username]
	return hash, ok
}
