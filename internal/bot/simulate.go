package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// SimClient simulates a meeting bot for local development. Instead of
// joining a real meeting, it reads a directory of images; each image plays
// one captured frame, in filename order.
type SimClient struct {
	mu       sync.Mutex
	sessions map[string][]string // bot ID -> ordered frame paths
	counter  int
}

// NewSimClient creates a simulation client.
func NewSimClient() *SimClient {
	return &SimClient{
		sessions: make(map[string][]string),
	}
}

// Dispatch treats meetingURL as a path to a directory of frame images.
func (c *SimClient) Dispatch(ctx context.Context, meetingURL string) (*Info, error) {
	frames, err := ListFrames(meetingURL)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.counter++
	botID := fmt.Sprintf("sim-bot-%d", c.counter)
	c.sessions[botID] = frames
	c.mu.Unlock()

	return &Info{
		ID:         botID,
		Status:     "active",
		FrameCount: len(frames),
		Message:    fmt.Sprintf("Simulated bot created with %d frames.", len(frames)),
	}, nil
}

// Status reports a simulated bot as done.
func (c *SimClient) Status(ctx context.Context, botID string) (*Info, error) {
	c.mu.Lock()
	frames, ok := c.sessions[botID]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown bot %q", botID)
	}
	return &Info{ID: botID, Status: "done", FrameCount: len(frames)}, nil
}

// Frames returns the frame paths recorded for a simulated bot.
func (c *SimClient) Frames(botID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[botID]
}

// ListFrames returns the image files in a directory sorted by filename,
// which defines the simulated capture order.
func ListFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading frame directory: %w", err)
	}

	var frames []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			frames = append(frames, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(frames)
	return frames, nil
}
