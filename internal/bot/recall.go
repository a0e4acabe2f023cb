package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RecallClient dispatches real bots through the Recall API.
type RecallClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewRecallClient creates a Recall API client with a bounded request timeout.
func NewRecallClient(baseURL, apiKey string) *RecallClient {
	return &RecallClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Dispatch sends a bot to join a meeting.
func (c *RecallClient) Dispatch(ctx context.Context, meetingURL string) (*Info, error) {
	payload := map[string]any{
		"meeting_url": meetingURL,
		"bot_name":    "Attendance Bot",
		"real_time_media": map[string]any{
			"websocket_video_output_enabled": true,
		},
	}

	var info Info
	if err := c.doJSON(ctx, http.MethodPost, "/bot", payload, &info); err != nil {
		return nil, fmt.Errorf("dispatching bot: %w", err)
	}
	return &info, nil
}

// Status checks the status of a dispatched bot.
func (c *RecallClient) Status(ctx context.Context, botID string) (*Info, error) {
	var info Info
	if err := c.doJSON(ctx, http.MethodGet, "/bot/"+botID, nil, &info); err != nil {
		return nil, fmt.Errorf("fetching bot status: %w", err)
	}
	return &info, nil
}

func (c *RecallClient) doJSON(ctx context.Context, method, endpoint string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(errBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
