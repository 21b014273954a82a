package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)

	// Validation errors
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrNegativeCount    = errors.New("count response must be non-negative")
	ErrLeakage          = errors.New("data leakage detected")
	ErrInvalidPolicy    = errors.New("replication policy is not valid for inference")

	// Sampler errors
	ErrNonConvergence = errors.New("sampler failed to converge")
	ErrZeroVariance   = errors.New("covariate has zero variance")
)

// NewNotFoundError builds a not-found error with resource context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewLeakageError records which statistic was computed over held-out rows
func NewLeakageError(statistic string, foldIndex int) error {
	return fmt.Errorf("%w: %s computed over held-out row in fold %d", ErrLeakage, statistic, foldIndex)
}

// NewConvergenceError wraps sampler diagnostics into a non-convergence error
func NewConvergenceError(divergences int, minESS float64) error {
	return fmt.Errorf("%w: %d divergent transitions, min ESS %.1f", ErrNonConvergence, divergences, minESS)
}

// IsNotFoundError reports whether err represents a missing resource
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConvergenceError reports whether err represents a failed sampler run
func IsConvergenceError(err error) bool {
	return errors.Is(err, ErrNonConvergence)
}
