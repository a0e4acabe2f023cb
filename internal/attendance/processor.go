// Package attendance implements the temporal-persistence attendance engine:
// it turns per-frame face matches into durable ping records and aggregates
// them into a per-student presence verdict for a session.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meetsight/attendance/internal/database"
	"github.com/meetsight/attendance/internal/detector"
	"github.com/meetsight/attendance/internal/matcher"
)

// ErrSessionClosed reports a frame submitted for a session that already
// ended. Only returned when the processor runs with the closed-session
// guard enabled.
var ErrSessionClosed = errors.New("session closed")

// FrameResult is one accepted match from a processed frame.
type FrameResult struct {
	StudentID  string  `json:"student_id"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Matched    bool    `json:"matched"`
}

// Processor resolves the faces of one frame to students and records pings.
type Processor struct {
	detector detector.Detector
	resolver *matcher.Resolver
	students database.StudentStore
	sessions database.SessionStore
	pings    database.PingStore

	// rejectClosed makes the processor refuse frames for closed sessions.
	// Off by default: historically pings could post-date a session's end and
	// reports are still expected to include them.
	rejectClosed bool

	now func() time.Time
}

// NewProcessor creates a frame processor.
func NewProcessor(
	det detector.Detector,
	resolver *matcher.Resolver,
	students database.StudentStore,
	sessions database.SessionStore,
	pings database.PingStore,
	rejectClosed bool,
) *Processor {
	return &Processor{
		detector:     det,
		resolver:     resolver,
		students:     students,
		sessions:     sessions,
		pings:        pings,
		rejectClosed: rejectClosed,
		now:          time.Now,
	}
}

// SetClock overrides the timestamp source for recorded pings. Replay tooling
// uses it to space simulated frames over virtual capture time.
func (p *Processor) SetClock(now func() time.Time) {
	if now != nil {
		p.now = now
	}
}

// ProcessFrame detects faces in one frame image and records pings for every
// accepted match. See ProcessFaces for the matching semantics.
func (p *Processor) ProcessFrame(ctx context.Context, image []byte, sessionID int64) ([]FrameResult, error) {
	faces, err := p.detector.Detect(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("detecting faces: %w", err)
	}
	return p.ProcessFaces(ctx, faces, sessionID)
}

// ProcessFaces resolves each detected face independently and persists one
// matched ping per accepted face, all sharing the session and the frame's
// capture timestamp, committed as a single batch once the frame is fully
// processed. Unmatched faces and matches pointing at students no longer in
// the roster are skipped silently; they are expected noise, not errors.
func (p *Processor) ProcessFaces(ctx context.Context, faces []detector.Face, sessionID int64) ([]FrameResult, error) {
	if p.rejectClosed {
		session, err := p.sessions.Get(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("loading session %d: %w", sessionID, err)
		}
		if session == nil {
			return nil, fmt.Errorf("session %d: %w", sessionID, database.ErrNotFound)
		}
		if session.Closed() {
			return nil, fmt.Errorf("session %d: %w", sessionID, ErrSessionClosed)
		}
	}

	capturedAt := p.now()
	results := make([]FrameResult, 0, len(faces))
	batch := make([]database.Ping, 0, len(faces))

	for _, face := range faces {
		match, ok, err := p.resolver.Resolve(ctx, face.Embedding)
		if err != nil {
			return nil, fmt.Errorf("resolving face: %w", err)
		}
		if !ok {
			continue
		}

		student, err := p.students.GetByStudentID(ctx, match.StudentID)
		if err != nil {
			return nil, fmt.Errorf("looking up student %s: %w", match.StudentID, err)
		}
		if student == nil {
			// Stale embedding for a deleted student; benign race, skip.
			continue
		}

		batch = append(batch, database.Ping{
			SessionID:  sessionID,
			StudentID:  student.ID,
			Timestamp:  capturedAt,
			Matched:    true,
			Confidence: match.Score,
		})
		results = append(results, FrameResult{
			StudentID:  student.StudentID,
			Name:       student.Name,
			Confidence: match.Score,
			Matched:    true,
		})
	}

	if len(batch) > 0 {
		if err := p.pings.SaveBatch(ctx, batch); err != nil {
			return nil, fmt.Errorf("saving pings: %w", err)
		}
	}

	return results, nil
}
