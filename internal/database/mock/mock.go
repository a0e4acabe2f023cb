// Package mock provides in-memory implementations of the database interfaces
// for testing.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/meetsight/attendance/internal/database"
)

// StudentStore is an in-memory implementation of database.StudentStore.
type StudentStore struct {
	mu       sync.RWMutex
	students map[int64]database.Student
	nextID   int64

	// Error injection
	CreateError error
	GetError    error
	ListError   error
	DeleteError error
}

// NewStudentStore creates an empty mock student store.
func NewStudentStore() *StudentStore {
	return &StudentStore{
		students: make(map[int64]database.Student),
		nextID:   1,
	}
}

// Create inserts a new student, enforcing student_id uniqueness.
func (s *StudentStore) Create(ctx context.Context, student *database.Student) error {
	if s.CreateError != nil {
		return s.CreateError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.students {
		if existing.StudentID == student.StudentID {
			return database.ErrDuplicateStudent
		}
	}

	student.ID = s.nextID
	s.nextID++
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now()
	}
	s.students[student.ID] = *student
	return nil
}

// GetByStudentID retrieves a student by external ID, nil if not found.
func (s *StudentStore) GetByStudentID(ctx context.Context, studentID string) (*database.Student, error) {
	if s.GetError != nil {
		return nil, s.GetError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, student := range s.students {
		if student.StudentID == studentID {
			copied := student
			return &copied, nil
		}
	}
	return nil, nil
}

// List returns all students ordered by row ID.
func (s *StudentStore) List(ctx context.Context) ([]database.Student, error) {
	if s.ListError != nil {
		return nil, s.ListError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	students := make([]database.Student, 0, len(s.students))
	for id := int64(1); id < s.nextID; id++ {
		if student, ok := s.students[id]; ok {
			students = append(students, student)
		}
	}
	return students, nil
}

// Delete removes a student by row ID.
func (s *StudentStore) Delete(ctx context.Context, id int64) error {
	if s.DeleteError != nil {
		return s.DeleteError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.students[id]; !ok {
		return database.ErrNotFound
	}
	delete(s.students, id)
	return nil
}

// SessionStore is an in-memory implementation of database.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]database.Session
	nextID   int64

	// Error injection
	CreateError error
	GetError    error
	CloseError  error
	ListError   error
}

// NewSessionStore creates an empty mock session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]database.Session),
		nextID:   1,
	}
}

// Create inserts a new session.
func (s *SessionStore) Create(ctx context.Context, session *database.Session) error {
	if s.CreateError != nil {
		return s.CreateError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	session.ID = s.nextID
	s.nextID++
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}
	s.sessions[session.ID] = *session
	return nil
}

// Get retrieves a session by ID, nil if not found.
func (s *SessionStore) Get(ctx context.Context, id int64) (*database.Session, error) {
	if s.GetError != nil {
		return nil, s.GetError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := session
	return &copied, nil
}

// Close sets ended_at on a session.
func (s *SessionStore) Close(ctx context.Context, id int64, endedAt time.Time) error {
	if s.CloseError != nil {
		return s.CloseError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return database.ErrNotFound
	}
	session.EndedAt = &endedAt
	s.sessions[id] = session
	return nil
}

// List returns all sessions, newest first.
func (s *SessionStore) List(ctx context.Context) ([]database.Session, error) {
	if s.ListError != nil {
		return nil, s.ListError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]database.Session, 0, len(s.sessions))
	for id := s.nextID - 1; id >= 1; id-- {
		if session, ok := s.sessions[id]; ok {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

// PingStore is an in-memory implementation of database.PingStore.
type PingStore struct {
	mu     sync.RWMutex
	pings  []database.Ping
	nextID int64

	// Error injection
	SaveError error
	ListError error
}

// NewPingStore creates an empty mock ping store.
func NewPingStore() *PingStore {
	return &PingStore{nextID: 1}
}

// SaveBatch appends a batch of pings.
func (s *PingStore) SaveBatch(ctx context.Context, pings []database.Ping) error {
	if s.SaveError != nil {
		return s.SaveError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range pings {
		p.ID = s.nextID
		s.nextID++
		s.pings = append(s.pings, p)
	}
	return nil
}

// ListBySession returns all pings for a session in insertion order.
func (s *PingStore) ListBySession(ctx context.Context, sessionID int64) ([]database.Ping, error) {
	if s.ListError != nil {
		return nil, s.ListError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []database.Ping
	for _, p := range s.pings {
		if p.SessionID == sessionID {
			result = append(result, p)
		}
	}
	return result, nil
}

// Count returns the total number of stored pings across sessions.
func (s *PingStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pings)
}
