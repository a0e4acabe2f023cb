package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestSimClient_Dispatch(t *testing.T) {
	dir := t.TempDir()
	// Out-of-order creation; listing must sort by filename.
	for _, name := range []string{"frame_03.jpg", "frame_01.jpg", "frame_02.png", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	client := NewSimClient()
	info, err := client.Dispatch(context.Background(), dir)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if info.FrameCount != 3 {
		t.Errorf("expected 3 frames (txt excluded), got %d", info.FrameCount)
	}
	if info.Status != "active" {
		t.Errorf("expected active status, got %s", info.Status)
	}

	frames := client.Frames(info.ID)
	want := []string{"frame_01.jpg", "frame_02.png", "frame_03.jpg"}
	for i, f := range frames {
		if filepath.Base(f) != want[i] {
			t.Errorf("frame %d: expected %s, got %s", i, want[i], filepath.Base(f))
		}
	}
}

func TestSimClient_DispatchMissingDir(t *testing.T) {
	client := NewSimClient()
	if _, err := client.Dispatch(context.Background(), "/does/not/exist"); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestSimClient_Status(t *testing.T) {
	client := NewSimClient()
	info, err := client.Dispatch(context.Background(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	status, err := client.Status(context.Background(), info.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Status != "done" {
		t.Errorf("expected done, got %s", status.Status)
	}

	if _, err := client.Status(context.Background(), "bogus"); err == nil {
		t.Error("expected error for unknown bot")
	}
}

func TestRecallClient_Dispatch(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/bot" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		gotAuth = r.Header.Get("Authorization")

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if payload["meeting_url"] != "https://meet.example.com/abc" {
			http.Error(w, "wrong meeting URL", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Info{ID: "bot-123", Status: "joining"})
	}))
	defer server.Close()

	client := NewRecallClient(server.URL, "secret-key")
	info, err := client.Dispatch(context.Background(), "https://meet.example.com/abc")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if info.ID != "bot-123" {
		t.Errorf("expected bot-123, got %s", info.ID)
	}
	if gotAuth != "Token secret-key" {
		t.Errorf("expected Token auth header, got %q", gotAuth)
	}
}

func TestRecallClient_DispatchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid meeting url", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewRecallClient(server.URL, "key")
	if _, err := client.Dispatch(context.Background(), "bad"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
