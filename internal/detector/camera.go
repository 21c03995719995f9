package detector

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxFrameBytes caps a single snapshot download; frames larger than this
// indicate a misconfigured source, not a camera.
const maxFrameBytes = 32 << 20

// FrameSource fetches snapshot frames from an IP-camera style HTTP
// endpoint that returns one encoded image per GET.
type FrameSource struct {
	url    string
	client *http.Client
}

// NewFrameSource creates a frame source for the given snapshot URL.
func NewFrameSource(url string) *FrameSource {
	return &FrameSource{url: url, client: &http.Client{}}
}

// Snapshot fetches one frame. The bytes are the encoded image as served
// by the camera, suitable for forwarding to the detector.
func (f *FrameSource) Snapshot(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("camera request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("camera error (status %d)", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("camera returned empty frame")
	}
	return data, nil
}
