// Package bot dispatches meeting bots that supply video frames for
// attendance tracking. The pipeline's only contract with it is receiving
// frames in capture order for a session.
package bot

import (
	"context"
)

// Info describes a dispatched bot.
type Info struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	FrameCount int    `json:"frame_count,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Dispatcher sends a bot to a meeting and reports its status.
type Dispatcher interface {
	// Dispatch sends a bot to join the meeting at the given URL
	Dispatch(ctx context.Context, meetingURL string) (*Info, error)
	// Status checks on a previously dispatched bot
	Status(ctx context.Context, botID string) (*Info, error)
}
