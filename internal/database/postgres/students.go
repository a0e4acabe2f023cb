package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/meetsight/attendance/internal/database"
)

// uniqueViolation is the PostgreSQL error code for unique constraint failures.
const uniqueViolation = "23505"

// StudentRepository provides PostgreSQL-backed student storage.
type StudentRepository struct {
	pool *Pool
}

// NewStudentRepository creates a new PostgreSQL student repository.
func NewStudentRepository(pool *Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// Create inserts a new student and fills in the assigned row ID.
func (r *StudentRepository) Create(ctx context.Context, student *database.Student) error {
	query := `
		INSERT INTO students (student_id, name, embedding_id, photo_path)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		student.StudentID,
		student.Name,
		student.EmbeddingID,
		student.PhotoPath,
	).Scan(&student.ID, &student.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return database.ErrDuplicateStudent
		}
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// GetByStudentID retrieves a student by external identifier, returns nil if not found.
func (r *StudentRepository) GetByStudentID(ctx context.Context, studentID string) (*database.Student, error) {
	query := `
		SELECT id, student_id, name, embedding_id, photo_path, created_at
		FROM students
		WHERE student_id = $1
	`

	var s database.Student
	err := r.pool.QueryRow(ctx, query, studentID).Scan(
		&s.ID,
		&s.StudentID,
		&s.Name,
		&s.EmbeddingID,
		&s.PhotoPath,
		&s.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query student: %w", err)
	}
	return &s, nil
}

// List returns all students ordered by external identifier.
func (r *StudentRepository) List(ctx context.Context) ([]database.Student, error) {
	query := `
		SELECT id, student_id, name, embedding_id, photo_path, created_at
		FROM students
		ORDER BY student_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var students []database.Student
	for rows.Next() {
		var s database.Student
		if err := rows.Scan(
			&s.ID,
			&s.StudentID,
			&s.Name,
			&s.EmbeddingID,
			&s.PhotoPath,
			&s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}

// Delete removes a student row by its primary key.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student rows affected: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// Verify interface compliance.
var _ database.StudentStore = (*StudentRepository)(nil)
