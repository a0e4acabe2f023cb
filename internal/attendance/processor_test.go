package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meetsight/attendance/internal/database"
	"github.com/meetsight/attendance/internal/database/mock"
	"github.com/meetsight/attendance/internal/detector"
	"github.com/meetsight/attendance/internal/matcher"
	"github.com/meetsight/attendance/internal/vector"
)

// stubDetector returns canned faces for every frame.
type stubDetector struct {
	faces []detector.Face
	err   error
}

func (d *stubDetector) Detect(ctx context.Context, image []byte) ([]detector.Face, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.faces, nil
}

// axisVec returns a unit vector along the given axis.
func axisVec(axis int) []float32 {
	v := make([]float32, vector.Dim)
	v[axis] = 1
	return v
}

type processorFixture struct {
	processor *Processor
	students  *mock.StudentStore
	sessions  *mock.SessionStore
	pings     *mock.PingStore
	store     *vector.MemoryStore
}

func newProcessorFixture(t *testing.T, det detector.Detector, rejectClosed bool) *processorFixture {
	t.Helper()

	store := vector.NewMemoryStore()
	students := mock.NewStudentStore()
	sessions := mock.NewSessionStore()
	pings := mock.NewPingStore()
	resolver := matcher.NewResolver(store, 0.6)

	return &processorFixture{
		processor: NewProcessor(det, resolver, students, sessions, pings, rejectClosed),
		students:  students,
		sessions:  sessions,
		pings:     pings,
		store:     store,
	}
}

func (f *processorFixture) enroll(t *testing.T, studentID, name string, axis int) {
	t.Helper()
	ctx := context.Background()
	if err := f.store.Store(ctx, studentID, axisVec(axis)); err != nil {
		t.Fatalf("storing embedding: %v", err)
	}
	if err := f.students.Create(ctx, &database.Student{
		StudentID:   studentID,
		Name:        name,
		EmbeddingID: studentID,
	}); err != nil {
		t.Fatalf("creating student: %v", err)
	}
}

func TestProcessFaces_MatchedFaceCreatesPing(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t, nil, false)
	f.enroll(t, "s-001", "Alice", 0)

	results, err := f.processor.ProcessFaces(ctx, []detector.Face{
		{Embedding: axisVec(0), Confidence: 0.99},
	}, 1)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].StudentID != "s-001" || results[0].Name != "Alice" {
		t.Errorf("unexpected result %+v", results[0])
	}
	if !results[0].Matched {
		t.Error("result should be matched")
	}
	if results[0].Confidence < 0.999 {
		t.Errorf("expected confidence ~1.0, got %f", results[0].Confidence)
	}

	pings, err := f.pings.ListBySession(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(pings) != 1 {
		t.Fatalf("expected 1 ping, got %d", len(pings))
	}
	if !pings[0].Matched {
		t.Error("persisted ping must carry matched=true")
	}
	if pings[0].Confidence != results[0].Confidence {
		t.Error("ping confidence should equal resolved score")
	}
}

func TestProcessFaces_BelowThresholdIsSilentSkip(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t, nil, false)
	f.enroll(t, "s-001", "Alice", 0)

	// Orthogonal embedding: similarity 0, well below threshold.
	results, err := f.processor.ProcessFaces(ctx, []detector.Face{
		{Embedding: axisVec(7), Confidence: 0.9},
	}, 1)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(results) != 0 {
		t.Errorf("expected no results for unmatched face, got %d", len(results))
	}
	if f.pings.Count() != 0 {
		t.Errorf("unmatched face must not produce a ping, got %d", f.pings.Count())
	}
}

func TestProcessFaces_StaleStudentIsSilentSkip(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t, nil, false)

	// Embedding present in the vector store but no relational record:
	// simulates a frame in flight while the student was being deleted.
	if err := f.store.Store(ctx, "ghost", axisVec(0)); err != nil {
		t.Fatal(err)
	}

	results, err := f.processor.ProcessFaces(ctx, []detector.Face{
		{Embedding: axisVec(0), Confidence: 0.9},
	}, 1)
	if err != nil {
		t.Fatalf("stale student must not fail the frame: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
	if f.pings.Count() != 0 {
		t.Errorf("stale match must not produce a ping")
	}
}

func TestProcessFaces_MultipleFacesOneBatch(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t, nil, false)
	f.enroll(t, "s-001", "Alice", 0)
	f.enroll(t, "s-002", "Bob", 3)

	results, err := f.processor.ProcessFaces(ctx, []detector.Face{
		{Embedding: axisVec(0), Confidence: 0.95},
		{Embedding: axisVec(3), Confidence: 0.91},
		{Embedding: axisVec(9), Confidence: 0.88}, // nobody
	}, 1)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	pings, err := f.pings.ListBySession(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(pings) != 2 {
		t.Fatalf("expected 2 pings, got %d", len(pings))
	}
	// All pings of one frame share the capture timestamp.
	if !pings[0].Timestamp.Equal(pings[1].Timestamp) {
		t.Error("pings from one frame should share a timestamp")
	}
}

func TestProcessFaces_ClosedSessionGuard(t *testing.T) {
	ctx := context.Background()

	face := []detector.Face{{Embedding: axisVec(0), Confidence: 0.9}}

	t.Run("permissive default accepts closed sessions", func(t *testing.T) {
		f := newProcessorFixture(t, nil, false)
		f.enroll(t, "s-001", "Alice", 0)
		if err := f.sessions.Create(ctx, &database.Session{MeetingURL: "test"}); err != nil {
			t.Fatal(err)
		}
		if err := f.sessions.Close(ctx, 1, time.Now()); err != nil {
			t.Fatal(err)
		}

		if _, err := f.processor.ProcessFaces(ctx, face, 1); err != nil {
			t.Errorf("permissive mode should accept frames for closed sessions: %v", err)
		}
	})

	t.Run("guard rejects closed sessions", func(t *testing.T) {
		f := newProcessorFixture(t, nil, true)
		f.enroll(t, "s-001", "Alice", 0)
		if err := f.sessions.Create(ctx, &database.Session{MeetingURL: "test"}); err != nil {
			t.Fatal(err)
		}
		if err := f.sessions.Close(ctx, 1, time.Now()); err != nil {
			t.Fatal(err)
		}

		if _, err := f.processor.ProcessFaces(ctx, face, 1); !errors.Is(err, ErrSessionClosed) {
			t.Errorf("expected ErrSessionClosed, got %v", err)
		}
	})

	t.Run("guard rejects unknown sessions", func(t *testing.T) {
		f := newProcessorFixture(t, nil, true)
		if _, err := f.processor.ProcessFaces(ctx, face, 42); !errors.Is(err, database.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestProcessFaces_PingStoreFailurePropagates(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t, nil, false)
	f.enroll(t, "s-001", "Alice", 0)
	f.pings.SaveError = errors.New("connection refused")

	_, err := f.processor.ProcessFaces(ctx, []detector.Face{
		{Embedding: axisVec(0), Confidence: 0.9},
	}, 1)
	if err == nil {
		t.Fatal("expected backend failure to propagate")
	}
}

func TestProcessFrame_DetectorFailurePropagates(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t, &stubDetector{err: errors.New("model timeout")}, false)

	if _, err := f.processor.ProcessFrame(ctx, []byte("frame"), 1); err == nil {
		t.Fatal("expected detector failure to propagate")
	}
}

func TestProcessFrame_UsesDetector(t *testing.T) {
	ctx := context.Background()
	det := &stubDetector{faces: []detector.Face{{Embedding: axisVec(0), Confidence: 0.9}}}
	f := newProcessorFixture(t, det, false)
	f.enroll(t, "s-001", "Alice", 0)

	results, err := f.processor.ProcessFrame(ctx, []byte("frame"), 1)
	if err != nil {
		t.Fatalf("process frame: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}
