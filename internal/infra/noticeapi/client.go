// internal/infra/noticeapi/client.go
package noticeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"procurement_digest_bot/internal/domain/notice"
)

const defaultTimeout = 30 * time.Second

// Client fetches notices from the scraping service's HTTP endpoint.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// Ensure Client implements the notice repository
var _ notice.Repository = (*Client)(nil)

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type fetchResponse struct {
	Results []notice.Record `json:"results"`
}

// Fetch posts {from, to, ...filters} and returns the notices in the response.
func (c *Client) Fetch(ctx context.Context, window notice.Window) ([]notice.Record, error) {
	payload := make(map[string]string, len(window.Filters)+2)
	for k, v := range window.Filters {
		payload[k] = v
	}
	payload["from"] = window.From.Format(notice.DateLayout)
	payload["to"] = window.To.Format(notice.DateLayout)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notice query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build notice request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notice service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("notice service returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var data fetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode notice response: %w", err)
	}
	if data.Results == nil {
		return []notice.Record{}, nil
	}
	return data.Results, nil
}
