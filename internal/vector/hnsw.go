package vector

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

const (
	// hnswMaxNeighbors is the M parameter of the HNSW graph.
	hnswMaxNeighbors = 16
	// hnswSearchMultiplier over-fetches candidates so that results filtered
	// out after deletions still leave topK live matches.
	hnswSearchMultiplier = 4
	// hnswMinSearchK is the minimum candidate count per graph search.
	hnswMinSearchK = 32
)

// HNSWStore is an approximate nearest-neighbor store backed by an in-memory
// HNSW graph, with optional persistence to disk.
//
// The graph does not support true deletion, so deleted IDs are removed from
// the side map and filtered out of query results. Scores are exact dot
// products recomputed from the stored vectors, so score scale matches the
// exact backends.
type HNSWStore struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[string]
	vectors map[string][]float32
	path    string // Path to persist the index, empty for in-memory only
}

// NewHNSWStore creates an empty HNSW store. If path is non-empty, a
// previously saved index is loaded from it when present.
func NewHNSWStore(path string) (*HNSWStore, error) {
	s := &HNSWStore{
		graph:   newGraph(),
		vectors: make(map[string][]float32),
		path:    path,
	}
	if path != "" {
		if err := s.load(path); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance
	return g
}

// Store upserts the embedding for a student.
func (s *HNSWStore) Store(ctx context.Context, studentID string, embedding []float32) error {
	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.graph.Add(hnsw.MakeNode(studentID, vec))
	s.vectors[studentID] = vec
	return nil
}

// Query returns up to topK matches sorted by score descending.
func (s *HNSWStore) Query(ctx context.Context, embedding []float32, topK int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.vectors) == 0 || topK <= 0 {
		return nil, nil
	}

	searchK := topK * hnswSearchMultiplier
	if searchK < hnswMinSearchK {
		searchK = hnswMinSearchK
	}

	neighbors := s.graph.Search(embedding, searchK)

	matches := make([]Match, 0, topK)
	for _, n := range neighbors {
		// Graph nodes for deleted students are filtered out here.
		vec, ok := s.vectors[n.Key]
		if !ok {
			continue
		}
		matches = append(matches, Match{
			StudentID: n.Key,
			Score:     DotProduct(embedding, vec),
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

// Delete removes a student's embedding from search results.
func (s *HNSWStore) Delete(ctx context.Context, studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vectors, studentID)
	return nil
}

// Count returns the number of live embeddings.
func (s *HNSWStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// Save persists the stored vectors to disk. No-op if no path is configured.
func (s *HNSWStore) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.path == "" {
		return nil
	}

	if len(s.vectors) == 0 {
		// Remove stale file if the index is empty (best-effort cleanup).
		_ = os.Remove(s.path)
		return nil
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("creating index file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(s.vectors); err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	return nil
}

// load restores vectors from disk and rebuilds the graph.
// A missing file is not an error; the index starts empty.
func (s *HNSWStore) load(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	vectors := make(map[string][]float32)
	if err := gob.NewDecoder(f).Decode(&vectors); err != nil {
		return fmt.Errorf("decoding index: %w", err)
	}

	g := newGraph()
	for id, vec := range vectors {
		g.Add(hnsw.MakeNode(id, vec))
	}

	s.graph = g
	s.vectors = vectors
	return nil
}
