// Package userstore bridges the Pascal-compatible user record file to the
// live authentication stack. Account records live in a flat sequential
// file of pascal.UserRec entries, one per username, position-addressed
// exactly as the legacy loader expects; a separate JSON side file carries
// Argon2id password hashes so UserRec.Password stays byte-compatible with
// whatever the original Pascal program would have written there.
package userstore

import "errors"

// ErrNotFound is returned when a username has no account record.
var ErrNotFound = errors.New("user not found")

// ErrAlreadyExists is returned by CreateUser for a username already on file.
var ErrAlreadyExists = errors.New("user already exists")
