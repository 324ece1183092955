package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"switchbot/config"
	"switchbot/internal/application"
	"switchbot/internal/domain"
	"switchbot/internal/infra/httpapi"
	"switchbot/internal/infra/mqtt"
	"switchbot/internal/infra/pushover"
	"switchbot/internal/infra/switchbot"
)

var errUsage = errors.New("invalid arguments, run with -h for usage")

type cli struct {
	cfg       *config.Config
	directory application.DeviceDirectory
	metrics   *switchbot.Metrics
	logger    *slog.Logger
	out       io.Writer
}

func (c *cli) run(ctx context.Context, args []string) error {
	switch args[0] {
	case "devices":
		return c.devices(ctx, args[1:])
	case "status":
		return c.status(ctx, args[1:])
	case "command":
		return c.command(ctx, args[1:])
	case "light":
		return c.light(ctx, args[1:])
	case "serve":
		return c.serve(ctx)
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

func (c *cli) service(notifier application.Notifier) *application.Service {
	lights := func(id string) application.DimmableLight {
		return switchbot.NewCeilingLight(c.directory, id)
	}
	return application.NewService(c.directory, lights, notifier, c.logger)
}

func (c *cli) devices(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("devices", flag.ContinueOnError)
	name := fs.String("name", "", "exact device name")
	deviceType := fs.String("type", "", "exact device type, e.g. \"Ceiling Light\"")
	if err := fs.Parse(args); err != nil {
		return err
	}

	devices, err := c.service(nil).Devices(ctx, application.Filter{
		Name: *name,
		Type: domain.DeviceType(*deviceType),
	})
	if err != nil {
		return err
	}
	return c.print(devices)
}

func (c *cli) status(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	status, err := c.directory.GetStatus(ctx, args[0])
	if err != nil {
		return err
	}
	return c.print(status)
}

func (c *cli) command(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return errUsage
	}

	var parameter any = domain.DefaultParameter
	if len(args) == 3 {
		parameter = parseParameter(args[2])
	}

	if err := c.service(nil).Execute(ctx, args[0], domain.NewCommand(args[1], parameter)); err != nil {
		return err
	}
	return c.print(map[string]string{"status": "ok"})
}

func (c *cli) light(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	svc := c.service(nil)
	deviceID, action := args[0], args[1]

	if action == "get" {
		state, err := svc.LightState(ctx, deviceID)
		if err != nil {
			return err
		}
		return c.print(state)
	}

	value := 0
	switch application.LightAction(action) {
	case application.LightBrightness, application.LightColorTemperature:
		if len(args) != 3 {
			return fmt.Errorf("%s needs a value: %w", action, errUsage)
		}
		v, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("parsing %s value: %w", action, err)
		}
		value = v
	}

	if err := svc.ApplyLight(ctx, deviceID, application.LightAction(action), value); err != nil {
		return err
	}
	return c.print(map[string]string{"status": "ok"})
}

func (c *cli) serve(ctx context.Context) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		c.metrics,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	notifiers := application.MultiNotifier{}
	if c.cfg.Pushover.Enabled {
		notifiers = append(notifiers, pushover.NewClient(c.cfg.Pushover.Token, c.cfg.Pushover.UserKey))
	}

	if c.cfg.MQTT.Enabled {
		mc, err := mqtt.New(mqtt.Config{
			Broker:      c.cfg.MQTT.Broker,
			ClientID:    c.cfg.MQTT.ClientID,
			Username:    c.cfg.MQTT.Username,
			Password:    c.cfg.MQTT.Password,
			TopicPrefix: c.cfg.MQTT.TopicPrefix,
		}, c.logger)
		if err != nil {
			return fmt.Errorf("connecting mqtt: %w", err)
		}
		defer mc.Close()
		notifiers = append(notifiers, mc)

		interval, err := time.ParseDuration(c.cfg.MQTT.PollInterval)
		if err != nil {
			c.logger.Warn("invalid poll interval, using default", "error", err, "value", c.cfg.MQTT.PollInterval)
			interval = 5 * time.Minute
		}
		if interval > 0 {
			application.NewStatusPoller(c.directory, mc, c.cfg.MQTT.TopicPrefix, c.logger).Start(ctx, interval)
		}
	}

	var notifier application.Notifier = &application.NoopNotifier{}
	if len(notifiers) > 0 {
		notifier = notifiers
	}

	server := httpapi.NewServer(httpapi.Config{
		Addr:      c.cfg.HTTP.Addr,
		AuthToken: c.cfg.HTTP.AuthToken,
		RateLimit: c.cfg.HTTP.RateLimit,
	}, c.service(notifier), promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), c.logger)

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}

	c.logger.Info("switchbot bridge running",
		"addr", c.cfg.HTTP.Addr,
		"mqtt", c.cfg.MQTT.Enabled,
		"pushover", c.cfg.Pushover.Enabled,
	)

	<-ctx.Done()
	c.logger.Info("shutting down")
	return server.Stop()
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseParameter sends numeric arguments as JSON numbers and everything else as strings.
func parseParameter(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}
