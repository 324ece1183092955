package switchbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"switchbot/internal/infra"
)

const (
	DefaultBaseURL = "https://api.switch-bot.com"
	DefaultTimeout = 10 * time.Second

	maxResponseSize = 4 << 20
)

type Client struct {
	creds      Credentials
	baseURL    string
	httpClient *http.Client
	retry      infra.RetryConfig
	logger     *slog.Logger
	metrics    *Metrics
	now        func() time.Time
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if c.httpClient == nil {
			c.httpClient = &http.Client{}
		}
		c.httpClient.Timeout = timeout
	}
}

// WithRetry sets the backoff used for GET requests. Commands are always sent once.
func WithRetry(cfg infra.RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithClock replaces the time source used for the t header.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a client for the given credentials. An empty nonce is replaced
// by a random UUID that stays fixed for the client's lifetime.
func NewClient(creds Credentials, opts ...Option) (*Client, error) {
	if creds.Token == "" {
		return nil, ErrEmptyToken
	}
	if creds.Secret == "" {
		return nil, ErrEmptySecret
	}
	if creds.Nonce == "" {
		creds.Nonce = uuid.NewString()
	}

	c := &Client{
		creds:      creds,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		retry:      infra.DefaultRetryConfig(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return c, nil
}

// Nonce returns the nonce sent with every request.
func (c *Client) Nonce() string {
	return c.creds.Nonce
}

// Get fetches path and returns the "body" field of the response envelope.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	var body json.RawMessage

	err := infra.WithRetry(ctx, c.retry, func() error {
		payload, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}

		var envelope struct {
			Body json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(payload, &envelope); err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
		// An explicit null is a present body; only a missing field is ErrNoBody.
		if len(envelope.Body) == 0 {
			return ErrNoBody
		}

		body = envelope.Body
		return nil
	})
	if err != nil {
		return nil, err
	}

	return body, nil
}

// Post sends payload as JSON. It succeeds only on HTTP 200.
func (c *Client) Post(ctx context.Context, path string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	_, err = c.do(ctx, http.MethodPost, path, data)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range c.creds.Headers(c.now()) {
		req.Header[k] = v
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.observe(method, path, "error", elapsed)
		c.logger.Debug("switchbot request failed", "method", method, "path", path, "error", err)
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	c.metrics.observe(method, path, strconv.Itoa(resp.StatusCode), elapsed)
	c.logger.Debug("switchbot request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", elapsed,
	)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    vendorMessage(respBody),
		}
	}

	return respBody, nil
}

func vendorMessage(body []byte) string {
	var v struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return ""
	}
	return v.Message
}
