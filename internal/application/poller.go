package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// StatusPoller periodically publishes the status of every device to
// <prefix>/<deviceId>/status.
type StatusPoller struct {
	directory DeviceDirectory
	publisher Publisher
	prefix    string
	logger    *slog.Logger
}

func NewStatusPoller(directory DeviceDirectory, publisher Publisher, prefix string, logger *slog.Logger) *StatusPoller {
	return &StatusPoller{
		directory: directory,
		publisher: publisher,
		prefix:    strings.TrimSuffix(prefix, "/"),
		logger:    logger,
	}
}

// Poll publishes one round of statuses and returns how many were published.
// Failures for a single device are logged and skipped.
func (p *StatusPoller) Poll(ctx context.Context) (int, error) {
	devices, err := p.directory.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing devices: %w", err)
	}

	published := 0
	for _, d := range devices {
		if ctx.Err() != nil {
			return published, ctx.Err()
		}

		status, err := p.directory.GetStatus(ctx, d.ID)
		if err != nil {
			p.logger.Warn("fetching status", "deviceID", d.ID, "error", err)
			continue
		}

		payload, err := json.Marshal(status)
		if err != nil {
			p.logger.Warn("encoding status", "deviceID", d.ID, "error", err)
			continue
		}

		if err := p.publisher.Publish(ctx, p.Topic(d.ID), payload); err != nil {
			p.logger.Warn("publishing status", "deviceID", d.ID, "error", err)
			continue
		}
		published++
	}

	p.logger.Debug("status poll complete", "devices", len(devices), "published", published)
	return published, nil
}

func (p *StatusPoller) Topic(deviceID string) string {
	return p.prefix + "/" + deviceID + "/status"
}

// Start polls once immediately and then on every interval until ctx is done.
func (p *StatusPoller) Start(ctx context.Context, interval time.Duration) {
	go func() {
		if _, err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("status poll failed", "error", err)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := p.Poll(ctx); err != nil && ctx.Err() == nil {
					p.logger.Error("status poll failed", "error", err)
				}
			}
		}
	}()
}
