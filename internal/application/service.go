package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"switchbot/internal/domain"
)

var ErrUnknownAction = errors.New("unknown light action")

type LightAction string

const (
	LightOn               LightAction = "on"
	LightOff              LightAction = "off"
	LightToggle           LightAction = "toggle"
	LightBrightness       LightAction = "brightness"
	LightColorTemperature LightAction = "color-temperature"
)

// LightFactory returns the light facade for a device id.
type LightFactory func(deviceID string) DimmableLight

type Filter struct {
	Name string
	Type domain.DeviceType
}

type LightState struct {
	DeviceID         string       `json:"deviceId"`
	Power            domain.Power `json:"power"`
	Brightness       int          `json:"brightness"`
	ColorTemperature int          `json:"colorTemperature"`
}

// Service runs device operations and reports every command outcome to the notifier.
type Service struct {
	directory DeviceDirectory
	lights    LightFactory
	notifier  Notifier
	logger    *slog.Logger
}

func NewService(directory DeviceDirectory, lights LightFactory, notifier Notifier, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = &NoopNotifier{}
	}
	return &Service{
		directory: directory,
		lights:    lights,
		notifier:  notifier,
		logger:    logger,
	}
}

func (s *Service) Devices(ctx context.Context, f Filter) ([]domain.Device, error) {
	var (
		devices []domain.Device
		err     error
	)

	switch {
	case f.Name != "":
		devices, err = s.directory.GetByName(ctx, f.Name)
	case f.Type != "":
		devices, err = s.directory.GetByType(ctx, f.Type)
	default:
		devices, err = s.directory.GetAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	if f.Name != "" && f.Type != "" {
		filtered := devices[:0]
		for _, d := range devices {
			if d.Type == f.Type {
				filtered = append(filtered, d)
			}
		}
		devices = filtered
	}

	return devices, nil
}

func (s *Service) Status(ctx context.Context, deviceID string) (domain.Status, error) {
	return s.directory.GetStatus(ctx, deviceID)
}

func (s *Service) Execute(ctx context.Context, deviceID string, cmd domain.Command) error {
	err := s.directory.Control(ctx, deviceID, cmd)
	s.report(ctx, deviceID, cmd.Command, err)
	return err
}

// ApplyLight runs a light action. value is only read by brightness and color-temperature.
func (s *Service) ApplyLight(ctx context.Context, deviceID string, action LightAction, value int) error {
	light := s.lights(deviceID)

	var err error
	switch action {
	case LightOn:
		err = light.TurnOn(ctx)
	case LightOff:
		err = light.TurnOff(ctx)
	case LightToggle:
		err = light.Toggle(ctx)
	case LightBrightness:
		err = light.SetBrightness(ctx, value)
	case LightColorTemperature:
		err = light.SetColorTemperature(ctx, value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	s.report(ctx, deviceID, string(action), err)
	return err
}

// LightState reads power, brightness and color temperature from a single status fetch.
// Missing fields keep their defaults: unknown power, zero brightness and temperature.
func (s *Service) LightState(ctx context.Context, deviceID string) (LightState, error) {
	state := LightState{DeviceID: deviceID, Power: domain.PowerUnknown}

	status, err := s.directory.GetStatus(ctx, deviceID)
	if err != nil {
		return state, fmt.Errorf("reading light %s: %w", deviceID, err)
	}

	state.Power = status.Power()
	state.Brightness, _ = status.Int(domain.FieldBrightness)
	state.ColorTemperature, _ = status.Int(domain.FieldColorTemperature)
	return state, nil
}

func (s *Service) report(ctx context.Context, deviceID, command string, err error) {
	var message string
	if err != nil {
		s.logger.Error("command failed", "deviceID", deviceID, "command", command, "error", err)
		message = fmt.Sprintf("%s failed on %s: %v", command, deviceID, err)
	} else {
		s.logger.Info("command sent", "deviceID", deviceID, "command", command)
		message = fmt.Sprintf("%s sent to %s", command, deviceID)
	}

	if notifyErr := s.notifier.Notify(ctx, message); notifyErr != nil {
		s.logger.Error("notifying command result", "error", notifyErr)
	}
}
