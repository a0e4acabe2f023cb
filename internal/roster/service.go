// Package roster manages student enrollment: photos, embeddings, and the
// relational records that tie them together.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/meetsight/attendance/internal/database"
	"github.com/meetsight/attendance/internal/detector"
	"github.com/meetsight/attendance/internal/vector"
)

// ErrInvalidRegistration marks failures the caller can correct (missing
// fields, unusable photo). Anything else coming out of Register is a
// backend failure worth retrying.
var ErrInvalidRegistration = errors.New("invalid registration")

// Service registers and removes students. Registration orders its side
// effects so that a failure before the final step leaves no orphaned
// relational row: extract and validate the embedding, persist the photo,
// store the embedding, create the record last.
type Service struct {
	students  database.StudentStore
	vectors   vector.Store
	detector  detector.Detector
	uploadDir string
}

// NewService creates a roster service.
func NewService(students database.StudentStore, vectors vector.Store, det detector.Detector, uploadDir string) *Service {
	return &Service{
		students:  students,
		vectors:   vectors,
		detector:  det,
		uploadDir: uploadDir,
	}
}

// Register enrolls a new student from a selfie. The photo must contain
// exactly one face. Returns database.ErrDuplicateStudent if the external ID
// is already registered.
func (s *Service) Register(ctx context.Context, name, studentID string, photo []byte, filename string) (*database.Student, error) {
	if name == "" || studentID == "" {
		return nil, fmt.Errorf("%w: name and student ID are required", ErrInvalidRegistration)
	}
	if len(photo) == 0 {
		return nil, fmt.Errorf("%w: uploaded photo is empty", ErrInvalidRegistration)
	}

	existing, err := s.students.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("checking student ID: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("student ID %q: %w", studentID, database.ErrDuplicateStudent)
	}

	face, err := detector.Single(ctx, s.detector, photo)
	if err != nil {
		if errors.Is(err, detector.ErrNoFace) || errors.Is(err, detector.ErrTooManyFaces) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRegistration, err)
		}
		return nil, fmt.Errorf("detecting face: %w", err)
	}

	photoPath, err := s.savePhoto(studentID, photo, filename)
	if err != nil {
		return nil, err
	}

	if err := s.vectors.Store(ctx, studentID, face.Embedding); err != nil {
		s.removePhoto(photoPath)
		return nil, fmt.Errorf("storing embedding: %w", err)
	}

	student := &database.Student{
		StudentID:   studentID,
		Name:        name,
		EmbeddingID: studentID, // same key used in the vector store
		PhotoPath:   photoPath,
	}
	if err := s.students.Create(ctx, student); err != nil {
		// Roll back the earlier steps so a lost registration race leaves
		// nothing behind.
		if derr := s.vectors.Delete(ctx, studentID); derr != nil {
			log.Printf("warning: could not clean up embedding for %s: %v", studentID, derr)
		}
		s.removePhoto(photoPath)
		if errors.Is(err, database.ErrDuplicateStudent) {
			return nil, fmt.Errorf("student ID %q: %w", studentID, database.ErrDuplicateStudent)
		}
		return nil, fmt.Errorf("creating student record: %w", err)
	}

	return student, nil
}

// Delete removes a student, their embedding, and their photo. Embedding
// deletion is best effort: a failing vector backend is logged but does not
// block removal of the relational record.
func (s *Service) Delete(ctx context.Context, studentID string) error {
	student, err := s.students.GetByStudentID(ctx, studentID)
	if err != nil {
		return fmt.Errorf("looking up student: %w", err)
	}
	if student == nil {
		return fmt.Errorf("student %q: %w", studentID, database.ErrNotFound)
	}

	if err := s.vectors.Delete(ctx, student.EmbeddingID); err != nil {
		log.Printf("warning: could not delete embedding for %s: %v", studentID, err)
	}

	if student.PhotoPath != "" {
		s.removePhoto(student.PhotoPath)
	}

	if err := s.students.Delete(ctx, student.ID); err != nil {
		return fmt.Errorf("deleting student record: %w", err)
	}
	return nil
}

// List returns registered students, optionally filtered by a
// diacritics-insensitive name query.
func (s *Service) List(ctx context.Context, query string) ([]database.Student, error) {
	students, err := s.students.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing students: %w", err)
	}
	if query == "" {
		return students, nil
	}

	filtered := make([]database.Student, 0, len(students))
	for _, student := range students {
		if database.MatchesName(student.Name, query) {
			filtered = append(filtered, student)
		}
	}
	return filtered, nil
}

func (s *Service) savePhoto(studentID string, photo []byte, filename string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o750); err != nil {
		return "", fmt.Errorf("creating upload directory: %w", err)
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".jpg"
	}
	name := fmt.Sprintf("%s_%s%s", studentID, uuid.New().String()[:8], ext)
	path := filepath.Join(s.uploadDir, name)

	if err := os.WriteFile(path, photo, 0o640); err != nil {
		return "", fmt.Errorf("saving photo: %w", err)
	}
	return path, nil
}

func (s *Service) removePhoto(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not remove photo %s: %v", path, err)
	}
}
