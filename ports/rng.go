package ports

import (
	"context"
	"math/rand/v2"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// DeriveSeed produces a child seed for an independent unit of work (a
	// sensitivity candidate, a sweep point) so that parallel units never share
	// a stream and the same unit always gets the same seed.
	DeriveSeed(baseSeed int64, scope string, index int) int64
}
