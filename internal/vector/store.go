// Package vector provides keyed nearest-neighbor storage for face embeddings.
//
// All stored vectors are expected to be L2-normalized 512-d embeddings, so
// backends score candidates by plain dot product (equal to cosine similarity
// for unit vectors). Backends must not renormalize stored vectors: doing so
// would silently change scores relative to backends that do not.
package vector

import (
	"context"
)

// Dim is the fixed embedding dimension produced by the face recognition model.
const Dim = 512

// Match is one nearest-neighbor query result.
type Match struct {
	StudentID string
	Score     float64 // Cosine similarity, higher is more similar
}

// Store is a keyed nearest-neighbor index over unit-norm embeddings.
// The backend is selected once at process start; implementations are
// interchangeable as long as score scale and descending sort order match.
// Order among exact score ties is unspecified.
type Store interface {
	// Store upserts the embedding for a student, overwriting on conflict
	Store(ctx context.Context, studentID string, embedding []float32) error
	// Query returns up to topK matches sorted by score descending
	Query(ctx context.Context, embedding []float32, topK int) ([]Match, error)
	// Delete removes a student's embedding. Deleting an absent ID is a no-op.
	Delete(ctx context.Context, studentID string) error
}
