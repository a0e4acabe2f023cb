// Package matcher resolves a face embedding to a registered student.
package matcher

import (
	"context"
	"fmt"

	"github.com/meetsight/attendance/internal/vector"
)

// Result is an accepted face-to-student match.
type Result struct {
	StudentID string
	Score     float64
}

// Resolver decides whether a face embedding belongs to a registered student.
// The decision is a pure single-candidate threshold check: the best stored
// neighbor wins if its similarity reaches the configured threshold.
type Resolver struct {
	store     vector.Store
	threshold float64
}

// NewResolver creates a resolver over the given embedding store.
func NewResolver(store vector.Store, threshold float64) *Resolver {
	return &Resolver{
		store:     store,
		threshold: threshold,
	}
}

// Threshold returns the configured similarity acceptance cutoff.
func (r *Resolver) Threshold() float64 {
	return r.threshold
}

// Resolve matches one embedding against the store. The boolean result is
// false when the store holds no candidates or the best score falls below
// the threshold; the comparison is inclusive, score == threshold matches.
func (r *Resolver) Resolve(ctx context.Context, embedding []float32) (Result, bool, error) {
	matches, err := r.store.Query(ctx, embedding, 1)
	if err != nil {
		return Result{}, false, fmt.Errorf("querying embedding store: %w", err)
	}

	if len(matches) == 0 || matches[0].Score < r.threshold {
		return Result{}, false, nil
	}

	return Result{
		StudentID: matches[0].StudentID,
		Score:     matches[0].Score,
	}, true, nil
}
