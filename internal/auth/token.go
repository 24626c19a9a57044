package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// tokenBytes is 256 bits of entropy, matching the minimum the contract
// requires.
const tokenBytes = 32

// NewToken returns a hex-encoded 256-bit opaque session token drawn from
// a cryptographic RNG. Tokens are never derived from user data, so two
// tokens for the same user are unrelated strings.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generating token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
