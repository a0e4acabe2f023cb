package database

import (
	"time"
)

// Student represents a registered student with a stored face embedding.
type Student struct {
	ID          int64
	StudentID   string // External identifier, unique across the roster
	Name        string
	EmbeddingID string // Key of the embedding in the vector store (same as StudentID)
	PhotoPath   string
	CreatedAt   time.Time
}

// Session represents one meeting instance being tracked for attendance.
type Session struct {
	ID         int64
	MeetingURL string
	BotID      string // Bot assigned to the meeting, empty if none dispatched
	StartedAt  time.Time
	EndedAt    *time.Time // nil while the session is open
}

// Closed reports whether the session has been ended.
func (s *Session) Closed() bool {
	return s.EndedAt != nil
}

// Ping is one matched observation of a student during a session.
// Pings are immutable once written; only matched pings are ever persisted.
type Ping struct {
	ID         int64
	SessionID  int64
	StudentID  int64 // Internal student row ID, not the external identifier
	Timestamp  time.Time
	Matched    bool
	Confidence float64
}
