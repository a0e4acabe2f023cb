package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/meetsight/attendance/internal/vector"
)

// maxFrameSize is the longest image edge sent to the detection service.
// Larger frames are downscaled first to keep uploads fast.
const maxFrameSize = 1280

// Client talks to the face detection service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a detector client with a bounded request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Detect posts an image to the detection service and returns the faces it
// found. Embeddings are validated at this boundary: the rest of the pipeline
// assumes unit-normalized 512-d vectors and scores would corrupt silently
// otherwise.
func (c *Client) Detect(ctx context.Context, image []byte) ([]Face, error) {
	resized, err := ResizeImage(image, maxFrameSize)
	if err != nil {
		return nil, fmt.Errorf("preparing frame: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", bytes.NewReader(resized))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling detector: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("detector returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Faces []Face `json:"faces"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding detector response: %w", err)
	}

	for i, face := range result.Faces {
		if err := vector.Validate(face.Embedding); err != nil {
			return nil, fmt.Errorf("face %d: %w", i, err)
		}
	}

	return result.Faces, nil
}
