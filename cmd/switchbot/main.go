package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"switchbot/config"
	"switchbot/internal/infra"
	"switchbot/internal/infra/switchbot"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Usage = func() { usage(flag.CommandLine.Output()) }
	flag.Parse()

	if flag.NArg() == 0 {
		usage(os.Stderr)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := switchbot.NewMetrics()
	client, err := newClient(cfg.SwitchBot, metrics, logger)
	if err != nil {
		logger.Error("creating client", "error", err)
		os.Exit(1)
	}

	app := &cli{
		cfg:       cfg,
		directory: switchbot.NewDirectory(client),
		metrics:   metrics,
		logger:    logger,
		out:       os.Stdout,
	}

	if err := app.run(ctx, flag.Args()); err != nil {
		logger.Error("command failed", "command", flag.Arg(0), "error", err)
		os.Exit(1)
	}
}

func newClient(cfg config.SwitchBotConfig, metrics *switchbot.Metrics, logger *slog.Logger) (*switchbot.Client, error) {
	retry := infra.DefaultRetryConfig()
	retry.MaxAttempts = cfg.RetryAttempts

	return switchbot.NewClient(
		switchbot.Credentials{
			Token:  cfg.Token,
			Secret: cfg.Secret,
			Nonce:  cfg.Nonce,
		},
		switchbot.WithBaseURL(cfg.BaseURL),
		switchbot.WithTimeout(cfg.TimeoutDuration()),
		switchbot.WithRetry(retry),
		switchbot.WithLogger(logger),
		switchbot.WithMetrics(metrics),
	)
}

func setupLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: switchbot [-config path] <command> [args]

commands:
  devices [-name NAME] [-type TYPE]        list devices
  status <device-id>                       show raw device status
  command <device-id> <command> [param]    send a command envelope
  light <device-id> <action> [value]       on, off, toggle, get,
                                           brightness 1-100,
                                           color-temperature 2700-6500
  serve                                    run the local HTTP/MQTT bridge
`)
}
