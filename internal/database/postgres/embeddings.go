package postgres

import (
	"context"
	"fmt"

	"github.com/meetsight/attendance/internal/vector"
	"github.com/pgvector/pgvector-go"
)

// EmbeddingRepository provides PostgreSQL-backed embedding storage using
// pgvector. Similarity scores are computed as 1 - cosine distance, which
// for unit-norm vectors equals the dot product.
type EmbeddingRepository struct {
	pool *Pool
}

// NewEmbeddingRepository creates a new PostgreSQL embedding repository.
func NewEmbeddingRepository(pool *Pool) *EmbeddingRepository {
	return &EmbeddingRepository{pool: pool}
}

// Store saves an embedding under the given student identifier (upsert).
func (r *EmbeddingRepository) Store(ctx context.Context, studentID string, embedding []float32) error {
	if err := vector.Validate(embedding); err != nil {
		return fmt.Errorf("store embedding %s: %w", studentID, err)
	}

	query := `
		INSERT INTO embeddings (student_id, embedding)
		VALUES ($1, $2::vector)
		ON CONFLICT (student_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			created_at = NOW()
	`

	vec := pgvector.NewVector(embedding)
	if _, err := r.pool.Exec(ctx, query, studentID, vec); err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}

// Query returns up to topK stored embeddings ordered by descending
// cosine similarity to the probe.
func (r *EmbeddingRepository) Query(ctx context.Context, embedding []float32, topK int) ([]vector.Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	if err := vector.Validate(embedding); err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	query := `
		SELECT student_id, 1 - (embedding <=> $1::vector) AS score
		FROM embeddings
		ORDER BY embedding <=> $1::vector
		LIMIT $2
	`

	vec := pgvector.NewVector(embedding)
	rows, err := r.pool.Query(ctx, query, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("query similar embeddings: %w", err)
	}
	defer rows.Close()

	var matches []vector.Match
	for rows.Next() {
		var m vector.Match
		if err := rows.Scan(&m.StudentID, &m.Score); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return matches, nil
}

// Delete removes the embedding for a student. Deleting an absent
// identifier is a no-op.
func (r *EmbeddingRepository) Delete(ctx context.Context, studentID string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM embeddings WHERE student_id = $1", studentID); err != nil {
		return fmt.Errorf("delete embedding: %w", err)
	}
	return nil
}

// Count returns the total number of embeddings stored.
func (r *EmbeddingRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&count); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return count, nil
}

// Verify interface compliance.
var _ vector.Store = (*EmbeddingRepository)(nil)
