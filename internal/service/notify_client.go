package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/classtalk-api/internal/dto"
)

// NotifyClient invokes the bot notify endpoint over HTTP. The deadline scan
// uses it when BOT_NOTIFY_URL points at a separately deployed notifier;
// otherwise the scan calls BotService in process.
type NotifyClient struct {
	url        string
	httpClient *http.Client
}

// NewNotifyClient constructs a client for the given notify endpoint URL.
func NewNotifyClient(url string, timeout time.Duration) *NotifyClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NotifyClient{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NotifyOverdue posts the notification request and interprets the endpoint's
// contract: any non-2xx status is a failure whose message is the payload's
// error field, falling back to the raw body text.
func (c *NotifyClient) NotifyOverdue(ctx context.Context, req dto.NotifyRequest) (*dto.NotifyResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal notify request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build notify request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("notify call: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read notify response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload dto.NotifyError
		if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
			return nil, fmt.Errorf("notify failed: %s", payload.Error)
		}
		return nil, fmt.Errorf("notify failed: %s", strings.TrimSpace(string(raw)))
	}

	var result dto.NotifyResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode notify response: %w", err)
	}
	return &result, nil
}
