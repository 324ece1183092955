package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

type Config struct {
	// Broker is a URL such as tcp://localhost:1883 or mqtts://broker:8883.
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// Client publishes device statuses and command notifications.
type Client struct {
	cli    paho.Client
	prefix string
	qos    byte
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Client, error) {
	broker, err := brokerAddress(cfg.Broker)
	if err != nil {
		return nil, err
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "switchbot-" + uuid.NewString()[:8]
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.OnConnect = func(_ paho.Client) {
		logger.Info("mqtt connected", "broker", broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		logger.Error("mqtt connection lost", "error", err)
	}

	cli := paho.NewClient(opts)
	token := cli.Connect()
	if !token.WaitTimeout(15*time.Second) {
		return nil, fmt.Errorf("connecting to %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", broker, err)
	}

	return NewWithClient(cli, cfg.TopicPrefix, logger), nil
}

// NewWithClient wraps an already configured paho client.
func NewWithClient(cli paho.Client, prefix string, logger *slog.Logger) *Client {
	return &Client{
		cli:    cli,
		prefix: strings.TrimSuffix(prefix, "/"),
		qos:    1,
		logger: logger,
	}
}

// Publish sends a retained message so late subscribers see the last status.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	return c.publish(ctx, topic, payload, true)
}

// Notify publishes a command result to <prefix>/events.
func (c *Client) Notify(ctx context.Context, message string) error {
	payload, err := json.Marshal(struct {
		Message string    `json:"message"`
		Time    time.Time `json:"time"`
	}{Message: message, Time: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	return c.publish(ctx, c.prefix+"/events", payload, false)
}

func (c *Client) publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	token := c.cli.Publish(topic, c.qos, retain, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publishing to %s: %w", topic, ctx.Err())
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	c.logger.Debug("mqtt published", "topic", topic, "bytes", len(payload))
	return nil
}

func (c *Client) Close() {
	c.cli.Disconnect(250)
}

func brokerAddress(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("mqtt broker is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing broker url: %w", err)
	}

	switch u.Scheme {
	case "mqtt", "tcp":
		return "tcp://" + u.Host, nil
	case "mqtts", "ssl", "tls":
		return "ssl://" + u.Host, nil
	case "ws", "wss":
		return u.Scheme + "://" + u.Host + u.Path, nil
	default:
		return "", fmt.Errorf("unsupported broker scheme %q", u.Scheme)
	}
}
