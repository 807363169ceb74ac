package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the hosted GoTrue admin API. All calls require the
// service-role key; regular user tokens are rejected by the admin surface.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// APIError carries the upstream status and message for a failed admin call.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gotrue: %s (status %d)", e.Message, e.Status)
}

// NewClient constructs an admin client against the given Supabase project URL.
func NewClient(baseURL, serviceKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateUserParams describes a verified identity to provision.
type CreateUserParams struct {
	Email        string                 `json:"email"`
	Password     string                 `json:"password"`
	EmailConfirm bool                   `json:"email_confirm"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
}

// AdminUser is the subset of the admin user payload the caller needs.
type AdminUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// CreateUser provisions a pre-verified identity and returns it. The backend
// trigger on the auth users table materializes the matching profile row.
func (c *Client) CreateUser(ctx context.Context, params CreateUserParams) (*AdminUser, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal create user payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/admin/users", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build create user request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read create user response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Message: extractMessage(raw)}
	}

	var user AdminUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode create user response: %w", err)
	}
	if user.ID == "" {
		return nil, &APIError{Status: resp.StatusCode, Message: "missing user id in response"}
	}
	return &user, nil
}

func extractMessage(raw []byte) string {
	var payload struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		for _, candidate := range []string{payload.Msg, payload.Message, payload.Error} {
			if candidate != "" {
				return candidate
			}
		}
	}
	if len(raw) > 0 {
		return string(raw)
	}
	return "unknown error"
}
