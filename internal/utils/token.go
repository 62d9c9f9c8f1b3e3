// Package utils provides helpers for credential generation and hashing.
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// tokenBytes is the entropy of an auth token; hex encoding doubles its length.
const tokenBytes = 20

// NewToken returns a fresh opaque token of 40 hex characters.
func NewToken() (string, error) {
	return randomHex(tokenBytes)
}

// HashToken returns the SHA-256 hex digest of a raw token. Only the digest
// is persisted, so a leaked table cannot be replayed as credentials.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns n bytes of crypto/rand data, hex encoded.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
