package database

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared by all relational backends.
var (
	// ErrNotFound is returned when a mutation targets a row that does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateStudent is returned when a student_id is already registered.
	ErrDuplicateStudent = errors.New("student ID already registered")
)

// StudentStore provides durable storage for students.
type StudentStore interface {
	// Create inserts a new student and fills in its row ID.
	// Returns ErrDuplicateStudent if the external student ID is taken.
	Create(ctx context.Context, student *Student) error
	// GetByStudentID retrieves a student by external ID, returns nil if not found
	GetByStudentID(ctx context.Context, studentID string) (*Student, error)
	// List returns all registered students
	List(ctx context.Context) ([]Student, error)
	// Delete removes a student by row ID. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id int64) error
}

// SessionStore provides durable storage for attendance sessions.
type SessionStore interface {
	// Create inserts a new session and fills in its row ID.
	Create(ctx context.Context, session *Session) error
	// Get retrieves a session by ID, returns nil if not found
	Get(ctx context.Context, id int64) (*Session, error)
	// Close sets ended_at on an open session. Returns ErrNotFound if absent.
	Close(ctx context.Context, id int64, endedAt time.Time) error
	// List returns all sessions, newest first
	List(ctx context.Context) ([]Session, error)
}

// PingStore provides durable storage for pings.
type PingStore interface {
	// SaveBatch persists all pings produced by one frame as a single batch
	SaveBatch(ctx context.Context, pings []Ping) error
	// ListBySession returns all pings recorded for a session
	ListBySession(ctx context.Context, sessionID int64) ([]Ping, error)
}
