package ports

import (
	"context"

	"golang.org/x/exp/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// Stream creates a deterministic RNG stream for a specific run/stage/fold.
	// The same inputs always yield an identical stream so replication and
	// cross-validation results are reproducible run to run.
	Stream(ctx context.Context, runID, stageName string, foldIndex int, baseSeed int64) (*rand.Rand, error)
}
