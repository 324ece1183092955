package pushover

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"switchbot/internal/infra"
)

const defaultEndpoint = "https://api.pushover.net/1/messages.json"

// Client sends command results as Pushover notifications.
type Client struct {
	token      string
	userKey    string
	endpoint   string
	title      string
	httpClient *http.Client
	retry      infra.RetryConfig
}

func NewClient(token, userKey string) *Client {
	return NewClientWithURL(token, userKey, defaultEndpoint)
}

func NewClientWithURL(token, userKey, endpoint string) *Client {
	return &Client{
		token:      token,
		userKey:    userKey,
		endpoint:   endpoint,
		title:      "SwitchBot",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry:      infra.DefaultRetryConfig(),
	}
}

// apiError carries the messages Pushover returns with a non-200 status.
type apiError struct {
	StatusCode int
	Errors     []string
}

func (e *apiError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("pushover: status %d", e.StatusCode)
	}
	return fmt.Sprintf("pushover: status %d: %s", e.StatusCode, strings.Join(e.Errors, "; "))
}

func (e *apiError) Temporary() bool {
	return infra.IsRetryableHTTPStatus(e.StatusCode)
}

// Notify is a no-op when the client has no credentials.
func (c *Client) Notify(ctx context.Context, message string) error {
	if c.token == "" || c.userKey == "" {
		return nil
	}

	form := url.Values{}
	form.Set("token", c.token)
	form.Set("user", c.userKey)
	form.Set("title", c.title)
	form.Set("message", message)
	encoded := form.Encode()

	return infra.WithRetry(ctx, c.retry, func() error {
		return c.send(ctx, encoded)
	})
}

func (c *Client) send(ctx context.Context, form string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	apiErr := &apiError{StatusCode: resp.StatusCode}
	var body struct {
		Errors []string `json:"errors"`
	}
	if data, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil && json.Unmarshal(data, &body) == nil {
		apiErr.Errors = body.Errors
	}
	return apiErr
}
