package postgres

import (
	"context"
	"fmt"

	"github.com/meetsight/attendance/internal/database"
)

// PingRepository provides PostgreSQL-backed ping storage.
type PingRepository struct {
	pool *Pool
}

// NewPingRepository creates a new PostgreSQL ping repository.
func NewPingRepository(pool *Pool) *PingRepository {
	return &PingRepository{pool: pool}
}

// SaveBatch inserts all pings from a single frame in one transaction.
func (r *PingRepository) SaveBatch(ctx context.Context, pings []database.Ping) error {
	if len(pings) == 0 {
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pings (session_id, student_id, captured_at, matched, confidence)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range pings {
		if _, err := stmt.ExecContext(ctx, p.SessionID, p.StudentID, p.Timestamp, p.Matched, p.Confidence); err != nil {
			return fmt.Errorf("insert ping for student %d: %w", p.StudentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListBySession returns all pings recorded for a session in capture order.
func (r *PingRepository) ListBySession(ctx context.Context, sessionID int64) ([]database.Ping, error) {
	query := `
		SELECT id, session_id, student_id, captured_at, matched, confidence
		FROM pings
		WHERE session_id = $1
		ORDER BY captured_at, id
	`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query pings: %w", err)
	}
	defer rows.Close()

	var pings []database.Ping
	for rows.Next() {
		var p database.Ping
		if err := rows.Scan(&p.ID, &p.SessionID, &p.StudentID, &p.Timestamp, &p.Matched, &p.Confidence); err != nil {
			return nil, fmt.Errorf("scan ping: %w", err)
		}
		pings = append(pings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pings: %w", err)
	}
	return pings, nil
}

// Verify interface compliance.
var _ database.PingStore = (*PingRepository)(nil)
