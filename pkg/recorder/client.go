// Package recorder wraps the external recording service. The service is an
// opaque collaborator: this client only starts and stops recordings and reads
// back their metadata.
package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"session-gateway/config"
	"session-gateway/constant"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.Recorder) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// StartRequest configures a new recording.
type StartRequest struct {
	SessionID string `json:"session_id"`
	RoomName  string `json:"room_name"`
	Format    string `json:"format,omitempty"`
	Quality   string `json:"quality,omitempty"`
}

type startResponse struct {
	RecordingID string `json:"recording_id"`
}

// InfoResponse is the recorder's view of a recording.
type InfoResponse struct {
	RecordingID string `json:"recording_id"`
	SessionID   string `json:"session_id"`
	Status      string `json:"status"`
	Duration    int    `json:"duration"`
	URL         string `json:"url"`
	FileSize    int64  `json:"file_size"`
	Format      string `json:"format"`
}

// Start begins a recording and returns its id.
func (c *Client) Start(ctx context.Context, req StartRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recordings", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("recorder returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var response startResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if response.RecordingID == "" {
		return "", fmt.Errorf("recorder reply missing recording id")
	}
	return response.RecordingID, nil
}

// Stop ends a recording; the recorder processes it asynchronously afterwards.
func (c *Client) Stop(ctx context.Context, recordingID string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recordings/"+recordingID+"/stop", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("recorder returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}

// Info fetches recording metadata.
func (c *Client) Info(ctx context.Context, recordingID string) (*InfoResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/recordings/"+recordingID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("recorder returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var response InfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &response, nil
}

// URL returns the playback URL for a completed recording.
func (c *Client) URL(ctx context.Context, recordingID string) (string, error) {
	info, err := c.Info(ctx, recordingID)
	if err != nil {
		return "", err
	}
	if info.Status != constant.RecordingStatusCompleted.String() {
		return "", fmt.Errorf("recording %s is not completed (status %s)", recordingID, info.Status)
	}
	return info.URL, nil
}

// Download streams the recording artifact. The caller owns the returned
// reader.
func (c *Client) Download(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to download recording: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, 0, fmt.Errorf("recording download returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return resp.Body, resp.ContentLength, nil
}
