package userstore

import (
	"testing"

	"github.com/stlalpha/impulse7/internal/pascal"
)

func TestCreateUserRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	rec := pascal.UserRec{RealName: "Carol Danvers", City: "Boston", SecurityLvl: 50}
	if err := s.CreateUser("carol", "hunter2", rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetUser("carol")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Handle != "carol" || got.RealName != "Carol Danvers" || got.City != "Boston" || got.SecurityLvl != 50 {
		t.Errorf("got %+v, want matching fields for carol", got)
	}

	hash, ok := s.StoredHash("carol")
	if !ok {
		t.Fatal("expected stored hash for carol")
	}

	hasher := s.hasher
	if err := hasher.Verify("hunter2", hash); err != nil {
		t.Errorf("verify correct password: %v", err)
	}
	if err := hasher.Verify("wrong", hash); err == nil {
		t.Error("expected verify failure for wrong password")
	}
}

func TestCreateUserAlreadyExists(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.CreateUser("dave", "first", pascal.UserRec{}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := s.CreateUser("dave", "second", pascal.UserRec{}); err != ErrAlreadyExists {
		t.Fatalf("second create = %v, want ErrAlreadyExists", err)
	}

	hash, _ := s.StoredHash("dave")
	if s.hasher.Verify("first", hash) != nil {
		t.Error("original hash should be unchanged after a rejected duplicate create")
	}
}

func TestGetUserNotFound(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.GetUser("ghost"); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestReopenPreservesUsers(t *testing.T) {
	dir := t.TempDir()
	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s1.CreateUser("erin", "pw", pascal.UserRec{RealName: "Erin"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := s2.GetUser("erin")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.RealName != "Erin" {
		t.Errorf("got RealName %q, want Erin", got.RealName)
	}
}
