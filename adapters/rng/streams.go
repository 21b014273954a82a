package rng

import (
	"context"
	"fmt"
	"hash/fnv"

	"golang.org/x/exp/rand"

	"ppcheck/ports"
)

// StreamFactory derives independent deterministic RNG streams from a base
// seed. Stream identity is hashed from the operation name so adding a new
// stage never perturbs the draws of existing ones.
type StreamFactory struct{}

// NewStreamFactory creates a deterministic stream factory
func NewStreamFactory() *StreamFactory {
	return &StreamFactory{}
}

var _ ports.RNGPort = (*StreamFactory)(nil)

// SeededStream creates a deterministic random number generator for a named operation
func (f *StreamFactory) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if name == "" {
		return nil, fmt.Errorf("stream name cannot be empty")
	}
	return rand.New(rand.NewSource(mix(name, seed))), nil
}

// Stream creates a deterministic RNG stream for a specific run/stage/fold
func (f *StreamFactory) Stream(ctx context.Context, runID, stageName string, foldIndex int, baseSeed int64) (*rand.Rand, error) {
	if stageName == "" {
		return nil, fmt.Errorf("stage name cannot be empty")
	}
	key := fmt.Sprintf("%s/%s/%d", runID, stageName, foldIndex)
	return rand.New(rand.NewSource(mix(key, baseSeed))), nil
}

func mix(key string, seed int64) uint64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return h.Sum64() ^ uint64(seed)
}
