package vector

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an exact in-memory store scanning every stored vector per
// query. O(n) per query, fine for classroom-sized enrollments, and the
// reference behavior the approximate backends are measured against.
type MemoryStore struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		vectors: make(map[string][]float32),
	}
}

// Store upserts the embedding for a student.
func (s *MemoryStore) Store(ctx context.Context, studentID string, embedding []float32) error {
	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[studentID] = vec
	return nil
}

// Query returns up to topK matches sorted by score descending.
func (s *MemoryStore) Query(ctx context.Context, embedding []float32, topK int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.vectors) == 0 || topK <= 0 {
		return nil, nil
	}

	matches := make([]Match, 0, len(s.vectors))
	for id, stored := range s.vectors {
		matches = append(matches, Match{
			StudentID: id,
			Score:     DotProduct(embedding, stored),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Delete removes a student's embedding. Absent IDs are a no-op.
func (s *MemoryStore) Delete(ctx context.Context, studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vectors, studentID)
	return nil
}

// Count returns the number of stored embeddings.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}
