// internal/infra/imagehost/client.go
package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"procurement_digest_bot/internal/domain/snapshot"
)

const (
	defaultTimeout = 60 * time.Second
	// maxResponseBytes caps the response body; upload answers are small JSON documents.
	maxResponseBytes = 1 << 20
)

// Client uploads base64 images to an Imgur-compatible host.
type Client struct {
	Endpoint   string
	ClientID   string
	HTTPClient *http.Client
}

var _ snapshot.ImageHost = (*Client)(nil)

func NewClient(endpoint, clientID string) *Client {
	return &Client{
		Endpoint:   endpoint,
		ClientID:   clientID,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type uploadRequest struct {
	Image string `json:"image"`
	Type  string `json:"type"`
}

type uploadResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Link  string          `json:"link"`
		Error json.RawMessage `json:"error,omitempty"`
	} `json:"data"`
	Error json.RawMessage `json:"error,omitempty"`
}

// Upload makes exactly one request. Failures wrap one of the snapshot host sentinels.
func (c *Client) Upload(ctx context.Context, base64Image string) (string, error) {
	body, err := json.Marshal(uploadRequest{Image: base64Image, Type: "base64"})
	if err != nil {
		return "", fmt.Errorf("%w: %v", snapshot.ErrEncoding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", snapshot.ErrHostUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.ClientID != "" {
		req.Header.Set("Authorization", "Client-ID "+c.ClientID)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", snapshot.ErrHostUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", snapshot.ErrHostUnavailable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("%w: status %d", snapshot.ErrHostUnavailable, resp.StatusCode)
	}
	if len(raw) > maxResponseBytes {
		return "", fmt.Errorf("%w: response larger than %d bytes", snapshot.ErrHostMalformedResponse, maxResponseBytes)
	}

	var data uploadResponse
	if err := json.Unmarshal(raw, &data); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return "", fmt.Errorf("%w: status %d", snapshot.ErrHostRejected, resp.StatusCode)
		}
		return "", fmt.Errorf("%w: %v", snapshot.ErrHostMalformedResponse, err)
	}

	if resp.StatusCode >= http.StatusBadRequest || !data.Success {
		return "", fmt.Errorf("%w: status %d: %s", snapshot.ErrHostRejected, resp.StatusCode, data.errorMessage())
	}
	if data.Data.Link == "" {
		return "", fmt.Errorf("%w: response has no link", snapshot.ErrHostMalformedResponse)
	}
	return data.Data.Link, nil
}

// errorMessage reads the error field, which hosts send either as a string or an object.
func (r uploadResponse) errorMessage() string {
	for _, raw := range []json.RawMessage{r.Error, r.Data.Error} {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			return text
		}
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
			return obj.Message
		}
		return strings.TrimSpace(string(raw))
	}
	return "upload not accepted"
}
