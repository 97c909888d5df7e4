package rng

import (
	"context"
	"math/rand/v2"
)

// SeededAdapter implements ports.RNGPort with PCG streams. The stream name is
// hashed into the second PCG word, so two operations sharing a seed still
// draw independent sequences.
type SeededAdapter struct{}

// NewSeededAdapter creates the deterministic RNG adapter
func NewSeededAdapter() *SeededAdapter {
	return &SeededAdapter{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (a *SeededAdapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(hashString(name)))), nil
}

// DeriveSeed mixes scope and index into baseSeed
func (a *SeededAdapter) DeriveSeed(baseSeed int64, scope string, index int) int64 {
	seed := baseSeed
	if scope != "" {
		seed += int64(hashString(scope))
	}
	return seed + int64(index+1)*997
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2
	}
	return hash
}
