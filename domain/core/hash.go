package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Short returns the first 12 hex characters, enough to tell runs apart in logs
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// ComputeFingerprint hashes the %v rendering of each part in order. Two runs
// with equal fingerprints and equal seeds reproduce the same numbers. Parts
// must not contain maps.
func ComputeFingerprint(parts ...interface{}) Hash {
	var data strings.Builder
	for _, part := range parts {
		data.WriteString(fmt.Sprintf("%v", part))
		data.WriteByte('|')
	}
	return NewHash([]byte(data.String()))
}
