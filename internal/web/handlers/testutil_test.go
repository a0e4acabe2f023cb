package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/meetsight/attendance/internal/attendance"
	"github.com/meetsight/attendance/internal/database/mock"
	"github.com/meetsight/attendance/internal/detector"
	"github.com/meetsight/attendance/internal/matcher"
	"github.com/meetsight/attendance/internal/roster"
	"github.com/meetsight/attendance/internal/vector"
)

// fixture wires real services over in-memory stores for handler tests.
type fixture struct {
	students *mock.StudentStore
	sessions *mock.SessionStore
	pings    *mock.PingStore
	vectors  *vector.MemoryStore
	detector *stubDetector

	roster    *roster.Service
	processor *attendance.Processor
	reporter  *attendance.Reporter
}

// stubDetector returns canned faces instead of calling the detection service.
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

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		students: mock.NewStudentStore(),
		sessions: mock.NewSessionStore(),
		pings:    mock.NewPingStore(),
		vectors:  vector.NewMemoryStore(),
		detector: &stubDetector{},
	}

	resolver := matcher.NewResolver(f.vectors, 0.6)
	f.roster = roster.NewService(f.students, f.vectors, f.detector, t.TempDir())
	f.processor = attendance.NewProcessor(f.detector, resolver, f.students, f.sessions, f.pings, false)
	f.reporter = attendance.NewReporter(f.students, f.pings, 0.6)
	return f
}

// axisVec returns a unit vector with weight split between two axes.
func axisVec(axis int, blend float32) []float32 {
	v := make([]float32, vector.Dim)
	other := (axis + 1) % vector.Dim
	v[axis] = 1 - blend
	v[other] = blend
	norm := float32(math.Sqrt(float64(v[axis]*v[axis] + v[other]*v[other])))
	v[axis] /= norm
	v[other] /= norm
	return v
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// multipartBody builds a multipart form with string fields and one file field.
func multipartBody(t *testing.T, fields map[string]string, fileField, filename string, file []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("failed to write form field: %v", err)
		}
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := fw.Write(file); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
