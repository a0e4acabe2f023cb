package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/meetsight/attendance/internal/database"
)

// SessionRepository provides PostgreSQL-backed session storage.
type SessionRepository struct {
	pool *Pool
}

// NewSessionRepository creates a new PostgreSQL session repository.
func NewSessionRepository(pool *Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a new session and fills in the assigned row ID.
func (r *SessionRepository) Create(ctx context.Context, session *database.Session) error {
	query := `
		INSERT INTO attendance_sessions (meeting_url, bot_id, started_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	startedAt := session.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
		session.StartedAt = startedAt
	}

	err := r.pool.QueryRow(ctx, query, session.MeetingURL, session.BotID, startedAt).Scan(&session.ID)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID, returns nil if not found.
func (r *SessionRepository) Get(ctx context.Context, id int64) (*database.Session, error) {
	query := `
		SELECT id, meeting_url, bot_id, started_at, ended_at
		FROM attendance_sessions
		WHERE id = $1
	`

	var s database.Session
	var endedAt sql.NullTime
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.MeetingURL,
		&s.BotID,
		&s.StartedAt,
		&endedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	if endedAt.Valid {
		t := endedAt.Time
		s.EndedAt = &t
	}
	return &s, nil
}

// Close marks a session as ended. Closing an already closed session keeps
// the original end time.
func (r *SessionRepository) Close(ctx context.Context, id int64, endedAt time.Time) error {
	query := `
		UPDATE attendance_sessions
		SET ended_at = $2
		WHERE id = $1 AND ended_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, id, endedAt)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("close session rows affected: %w", err)
	}
	if affected == 0 {
		// Distinguish a missing session from one that is already closed.
		existing, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return database.ErrNotFound
		}
	}
	return nil
}

// List returns all sessions, newest first.
func (r *SessionRepository) List(ctx context.Context) ([]database.Session, error) {
	query := `
		SELECT id, meeting_url, bot_id, started_at, ended_at
		FROM attendance_sessions
		ORDER BY started_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []database.Session
	for rows.Next() {
		var s database.Session
		var endedAt sql.NullTime
		if err := rows.Scan(&s.ID, &s.MeetingURL, &s.BotID, &s.StartedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if endedAt.Valid {
			t := endedAt.Time
			s.EndedAt = &t
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Verify interface compliance.
var _ database.SessionStore = (*SessionRepository)(nil)
