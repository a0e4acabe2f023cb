package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/meetsight/attendance/internal/database"
)

// Attendance statuses.
const (
	StatusPresent = "Present"
	StatusAbsent  = "Absent"
)

// Entry is one student's row in an attendance report. Ratio and confidence
// keep full precision; rounding happens only at export time.
type Entry struct {
	StudentID     string  `json:"student_id"`
	Name          string  `json:"name"`
	Status        string  `json:"status"`
	PingsMatched  int     `json:"pings_matched"`
	TotalPings    int     `json:"total_pings"`
	PresenceRatio float64 `json:"presence_ratio"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// Reporter computes attendance reports from the pings of a session.
// It is stateless: calling it twice on an unchanged ping set yields an
// identical report, and it may be invoked on open or closed sessions alike.
type Reporter struct {
	students          database.StudentStore
	pings             database.PingStore
	presenceThreshold float64
}

// NewReporter creates a reporter with the given presence cutoff.
func NewReporter(students database.StudentStore, pings database.PingStore, presenceThreshold float64) *Reporter {
	return &Reporter{
		students:          students,
		pings:             pings,
		presenceThreshold: presenceThreshold,
	}
}

// Calculate builds the attendance report for a session.
//
// Capture events are reconstructed by truncating ping timestamps to the
// minute: each distinct minute bucket counts as one capture, on the
// assumption that every real capture produced at least one matched ping.
// A capture where nobody matched is invisible and undercounts the
// denominator; that is a documented limitation of the reconstruction.
//
// A student's numerator is their raw matched-ping count. Duplicate pings
// inside one minute bucket are deliberately not de-duplicated, so a student
// seen twice in one bucket counts twice against a denominator that grew by
// one; the resulting ratio can exceed 1.0 and is reported as computed.
//
// A session with no pings at all yields an empty report rather than one
// Absent row per student.
func (r *Reporter) Calculate(ctx context.Context, sessionID int64) ([]Entry, error) {
	pings, err := r.pings.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading pings for session %d: %w", sessionID, err)
	}
	if len(pings) == 0 {
		return []Entry{}, nil
	}

	buckets := make(map[time.Time]struct{})
	for _, p := range pings {
		buckets[p.Timestamp.Truncate(time.Minute)] = struct{}{}
	}
	totalPings := len(buckets)
	if totalPings < 1 {
		totalPings = 1
	}

	counts := make(map[int64]int)
	confidences := make(map[int64][]float64)
	for _, p := range pings {
		if !p.Matched {
			continue
		}
		counts[p.StudentID]++
		confidences[p.StudentID] = append(confidences[p.StudentID], p.Confidence)
	}

	roster, err := r.students.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading roster: %w", err)
	}

	report := make([]Entry, 0, len(roster))
	for _, student := range roster {
		matchCount := counts[student.ID]
		ratio := float64(matchCount) / float64(totalPings)

		avgConfidence := 0.0
		if matchCount > 0 {
			var sum float64
			for _, c := range confidences[student.ID] {
				sum += c
			}
			avgConfidence = sum / float64(matchCount)
		}

		status := StatusAbsent
		if ratio >= r.presenceThreshold {
			status = StatusPresent
		}

		report = append(report, Entry{
			StudentID:     student.StudentID,
			Name:          student.Name,
			Status:        status,
			PingsMatched:  matchCount,
			TotalPings:    totalPings,
			PresenceRatio: ratio,
			AvgConfidence: avgConfidence,
		})
	}

	return report, nil
}
