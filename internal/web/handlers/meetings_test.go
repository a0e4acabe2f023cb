package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/meetsight/attendance/internal/attendance"
	"github.com/meetsight/attendance/internal/bot"
	"github.com/meetsight/attendance/internal/database"
	"github.com/meetsight/attendance/internal/detector"
	"github.com/meetsight/attendance/internal/matcher"
)

// stubDispatcher records dispatch calls and returns canned bot info.
type stubDispatcher struct {
	dispatched []string
	err        error
}

func (d *stubDispatcher) Dispatch(ctx context.Context, meetingURL string) (*bot.Info, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.dispatched = append(d.dispatched, meetingURL)
	return &bot.Info{ID: "bot-1", Status: "joining"}, nil
}

func (d *stubDispatcher) Status(ctx context.Context, botID string) (*bot.Info, error) {
	if d.err != nil {
		return nil, d.err
	}
	return &bot.Info{ID: botID, Status: "in_call"}, nil
}

func TestMeetingHandler_Start(t *testing.T) {
	f := newFixture(t)
	dispatcher := &stubDispatcher{}
	handler := NewMeetingHandler(f.sessions, f.processor, dispatcher)

	req := httptest.NewRequest("POST", "/api/v1/meetings",
		strings.NewReader(`{"meeting_url": "https://meet.example.com/abc"}`))
	recorder := httptest.NewRecorder()
	handler.Start(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)

	var resp SessionResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.BotID != "bot-1" {
		t.Errorf("expected bot-1 assigned, got %q", resp.BotID)
	}
	if resp.Closed {
		t.Error("new session should not be closed")
	}
	if len(dispatcher.dispatched) != 1 || dispatcher.dispatched[0] != "https://meet.example.com/abc" {
		t.Errorf("unexpected dispatch calls: %v", dispatcher.dispatched)
	}
}

func TestMeetingHandler_Start_NoDispatcher(t *testing.T) {
	f := newFixture(t)
	handler := NewMeetingHandler(f.sessions, f.processor, nil)

	req := httptest.NewRequest("POST", "/api/v1/meetings",
		strings.NewReader(`{"meeting_url": "https://meet.example.com/abc"}`))
	recorder := httptest.NewRecorder()
	handler.Start(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)

	var resp SessionResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.BotID != "" {
		t.Errorf("expected no bot, got %q", resp.BotID)
	}
}

func TestMeetingHandler_Start_DispatchFailure(t *testing.T) {
	f := newFixture(t)
	handler := NewMeetingHandler(f.sessions, f.processor, &stubDispatcher{err: errors.New("recall down")})

	req := httptest.NewRequest("POST", "/api/v1/meetings",
		strings.NewReader(`{"meeting_url": "https://meet.example.com/abc"}`))
	recorder := httptest.NewRecorder()
	handler.Start(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadGateway)

	// No half-created session.
	sessions, err := f.sessions.List(t.Context())
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("expected no sessions, got %d", len(sessions))
	}
}

func TestMeetingHandler_Start_BadBody(t *testing.T) {
	f := newFixture(t)
	handler := NewMeetingHandler(f.sessions, f.processor, nil)

	req := httptest.NewRequest("POST", "/api/v1/meetings", strings.NewReader("{not json"))
	recorder := httptest.NewRecorder()
	handler.Start(recorder, req)
	assertStatusCode(t, recorder, http.StatusBadRequest)

	req = httptest.NewRequest("POST", "/api/v1/meetings", strings.NewReader(`{}`))
	recorder = httptest.NewRecorder()
	handler.Start(recorder, req)
	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "meeting_url is required")
}

func TestMeetingHandler_End(t *testing.T) {
	f := newFixture(t)
	handler := NewMeetingHandler(f.sessions, f.processor, nil)

	session := &database.Session{MeetingURL: "https://meet.example.com/abc"}
	if err := f.sessions.Create(t.Context(), session); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	req := requestWithChiParams(
		httptest.NewRequest("POST", "/api/v1/meetings/1/end", nil),
		map[string]string{"id": "1"},
	)
	recorder := httptest.NewRecorder()
	handler.End(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var resp SessionResponse
	parseJSONResponse(t, recorder, &resp)
	if !resp.Closed || resp.EndedAt == nil {
		t.Errorf("expected closed session, got %+v", resp)
	}
}

func TestMeetingHandler_End_NotFound(t *testing.T) {
	f := newFixture(t)
	handler := NewMeetingHandler(f.sessions, f.processor, nil)

	req := requestWithChiParams(
		httptest.NewRequest("POST", "/api/v1/meetings/42/end", nil),
		map[string]string{"id": "42"},
	)
	recorder := httptest.NewRecorder()
	handler.End(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestMeetingHandler_Frame_RecordsPings(t *testing.T) {
	f := newFixture(t)
	handler := NewMeetingHandler(f.sessions, f.processor, nil)

	// Enroll a student directly in the stores.
	alice := &database.Student{StudentID: "s-1", Name: "Alice", EmbeddingID: "s-1"}
	if err := f.students.Create(t.Context(), alice); err != nil {
		t.Fatalf("failed to create student: %v", err)
	}
	if err := f.vectors.Store(t.Context(), "s-1", axisVec(0, 0)); err != nil {
		t.Fatalf("failed to store embedding: %v", err)
	}

	session := &database.Session{MeetingURL: "https://meet.example.com/abc"}
	if err := f.sessions.Create(t.Context(), session); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	f.detector.faces = []detector.Face{{Embedding: axisVec(0, 0.05), Confidence: 0.95}}

	req := requestWithChiParams(
		httptest.NewRequest("POST", "/api/v1/meetings/1/frames", bytes.NewReader([]byte("frame-bytes"))),
		map[string]string{"id": "1"},
	)
	req.Header.Set("Content-Type", "image/jpeg")
	recorder := httptest.NewRecorder()
	handler.Frame(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp struct {
		SessionID int64                    `json:"session_id"`
		Matches   []attendance.FrameResult `json:"matches"`
	}
	parseJSONResponse(t, recorder, &resp)
	if len(resp.Matches) != 1 || resp.Matches[0].StudentID != "s-1" {
		t.Fatalf("unexpected matches: %+v", resp.Matches)
	}

	if f.pings.Count() != 1 {
		t.Errorf("expected 1 persisted ping, got %d", f.pings.Count())
	}
}

func TestMeetingHandler_Frame_Multipart(t *testing.T) {
	f := newFixture(t)
	handler := NewMeetingHandler(f.sessions, f.processor, nil)

	session := &database.Session{MeetingURL: "https://meet.example.com/abc"}
	if err := f.sessions.Create(t.Context(), session); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	body, contentType := multipartBody(t, nil, "frame", "frame.jpg", []byte("frame-bytes"))
	req := requestWithChiParams(
		httptest.NewRequest("POST", "/api/v1/meetings/1/frames", body),
		map[string]string{"id": "1"},
	)
	req.Header.Set("Content-Type", contentType)
	recorder := httptest.NewRecorder()
	handler.Frame(recorder, req)

	// No faces detected, still a successful frame with zero matches.
	assertStatusCode(t, recorder, http.StatusOK)
}

func TestMeetingHandler_Frame_InvalidID(t *testing.T) {
	f := newFixture(t)
	handler := NewMeetingHandler(f.sessions, f.processor, nil)

	req := requestWithChiParams(
		httptest.NewRequest("POST", "/api/v1/meetings/abc/frames", bytes.NewReader([]byte("x"))),
		map[string]string{"id": "abc"},
	)
	recorder := httptest.NewRecorder()
	handler.Frame(recorder, req)
	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestMeetingHandler_Frame_ClosedSessionGuard(t *testing.T) {
	f := newFixture(t)

	// Processor with the closed-session guard enabled.
	resolver := matcher.NewResolver(f.vectors, 0.6)
	guarded := attendance.NewProcessor(f.detector, resolver, f.students, f.sessions, f.pings, true)
	handler := NewMeetingHandler(f.sessions, guarded, nil)

	session := &database.Session{MeetingURL: "https://meet.example.com/abc"}
	if err := f.sessions.Create(t.Context(), session); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if err := f.sessions.Close(t.Context(), session.ID, time.Now()); err != nil {
		t.Fatalf("failed to close session: %v", err)
	}

	req := requestWithChiParams(
		httptest.NewRequest("POST", "/api/v1/meetings/1/frames", bytes.NewReader([]byte("x"))),
		map[string]string{"id": "1"},
	)
	recorder := httptest.NewRecorder()
	handler.Frame(recorder, req)
	assertStatusCode(t, recorder, http.StatusConflict)

	// Unknown session is a 404 when the guard is on.
	req = requestWithChiParams(
		httptest.NewRequest("POST", "/api/v1/meetings/42/frames", bytes.NewReader([]byte("x"))),
		map[string]string{"id": "42"},
	)
	recorder = httptest.NewRecorder()
	handler.Frame(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestMeetingHandler_Frame_StorageFailureIsNotConflict(t *testing.T) {
	f := newFixture(t)
	handler := NewMeetingHandler(f.sessions, f.processor, nil)

	alice := &database.Student{StudentID: "s-1", Name: "Alice", EmbeddingID: "s-1"}
	if err := f.students.Create(t.Context(), alice); err != nil {
		t.Fatalf("failed to create student: %v", err)
	}
	if err := f.vectors.Store(t.Context(), "s-1", axisVec(0, 0)); err != nil {
		t.Fatalf("failed to store embedding: %v", err)
	}
	session := &database.Session{MeetingURL: "https://meet.example.com/abc"}
	if err := f.sessions.Create(t.Context(), session); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	f.detector.faces = []detector.Face{{Embedding: axisVec(0, 0.05), Confidence: 0.95}}

	// A storage outage can mention a closed pool; it must surface as a
	// server error, not as a closed-session conflict.
	f.pings.SaveError = errors.New("sql: database is closed")

	req := requestWithChiParams(
		httptest.NewRequest("POST", "/api/v1/meetings/1/frames", bytes.NewReader([]byte("frame-bytes"))),
		map[string]string{"id": "1"},
	)
	req.Header.Set("Content-Type", "image/jpeg")
	recorder := httptest.NewRecorder()
	handler.Frame(recorder, req)
	assertStatusCode(t, recorder, http.StatusInternalServerError)
}

func TestMeetingHandler_List(t *testing.T) {
	f := newFixture(t)
	handler := NewMeetingHandler(f.sessions, f.processor, nil)

	for _, url := range []string{"https://meet.example.com/a", "https://meet.example.com/b"} {
		if err := f.sessions.Create(t.Context(), &database.Session{MeetingURL: url}); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}
	}

	req := httptest.NewRequest("GET", "/api/v1/meetings", nil)
	recorder := httptest.NewRecorder()
	handler.List(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var resp []SessionResponse
	parseJSONResponse(t, recorder, &resp)
	if len(resp) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(resp))
	}
	// Newest first.
	if resp[0].MeetingURL != "https://meet.example.com/b" {
		t.Errorf("expected newest session first, got %s", resp[0].MeetingURL)
	}
}

func TestMeetingHandler_BotStatus(t *testing.T) {
	f := newFixture(t)
	dispatcher := &stubDispatcher{}
	handler := NewMeetingHandler(f.sessions, f.processor, dispatcher)

	session := &database.Session{MeetingURL: "https://meet.example.com/abc", BotID: "bot-1"}
	if err := f.sessions.Create(t.Context(), session); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	req := requestWithChiParams(
		httptest.NewRequest("GET", "/api/v1/meetings/1/bot", nil),
		map[string]string{"id": "1"},
	)
	recorder := httptest.NewRecorder()
	handler.BotStatus(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var info bot.Info
	parseJSONResponse(t, recorder, &info)
	if info.ID != "bot-1" || info.Status != "in_call" {
		t.Errorf("unexpected bot info: %+v", info)
	}
}

func TestMeetingHandler_BotStatus_NoBot(t *testing.T) {
	f := newFixture(t)
	handler := NewMeetingHandler(f.sessions, f.processor, &stubDispatcher{})

	session := &database.Session{MeetingURL: "https://meet.example.com/abc"}
	if err := f.sessions.Create(t.Context(), session); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	req := requestWithChiParams(
		httptest.NewRequest("GET", "/api/v1/meetings/1/bot", nil),
		map[string]string{"id": "1"},
	)
	recorder := httptest.NewRecorder()
	handler.BotStatus(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)
}
