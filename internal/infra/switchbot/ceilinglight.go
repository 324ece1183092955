package switchbot

import (
	"context"

	"switchbot/internal/domain"
)

const (
	MinBrightness       = 1
	MaxBrightness       = 100
	MinColorTemperature = 2700
	MaxColorTemperature = 6500
)

// DeviceAPI is the part of the directory a single-device facade uses.
type DeviceAPI interface {
	GetStatus(ctx context.Context, deviceID string) (domain.Status, error)
	Control(ctx context.Context, deviceID string, cmd domain.Command) error
}

// CeilingLight controls a Ceiling Light or Ceiling Light Pro.
type CeilingLight struct {
	api      DeviceAPI
	deviceID string
}

func NewCeilingLight(api DeviceAPI, deviceID string) *CeilingLight {
	return &CeilingLight{api: api, deviceID: deviceID}
}

func (l *CeilingLight) DeviceID() string {
	return l.deviceID
}

// Power returns PowerUnknown when the status has no power field.
func (l *CeilingLight) Power(ctx context.Context) (domain.Power, error) {
	return readPower(ctx, l.api, l.deviceID)
}

// Brightness returns 0 when the status has no brightness field.
func (l *CeilingLight) Brightness(ctx context.Context) (int, error) {
	return readInt(ctx, l.api, l.deviceID, domain.FieldBrightness)
}

// ColorTemperature returns 0 when the status has no colorTemperature field.
func (l *CeilingLight) ColorTemperature(ctx context.Context) (int, error) {
	return readInt(ctx, l.api, l.deviceID, domain.FieldColorTemperature)
}

func (l *CeilingLight) TurnOn(ctx context.Context) error {
	return l.send(ctx, domain.CommandTurnOn, domain.DefaultParameter)
}

func (l *CeilingLight) TurnOff(ctx context.Context) error {
	return l.send(ctx, domain.CommandTurnOff, domain.DefaultParameter)
}

func (l *CeilingLight) Toggle(ctx context.Context) error {
	return l.send(ctx, domain.CommandToggle, domain.DefaultParameter)
}

// SetBrightness accepts 1..100 inclusive. Other values return a *ValidationError
// and nothing is sent.
func (l *CeilingLight) SetBrightness(ctx context.Context, brightness int) error {
	if err := validateRange("brightness", brightness, MinBrightness, MaxBrightness); err != nil {
		return err
	}
	return l.send(ctx, domain.CommandSetBrightness, brightness)
}

// SetColorTemperature accepts 2700..6500 kelvin inclusive.
func (l *CeilingLight) SetColorTemperature(ctx context.Context, kelvin int) error {
	if err := validateRange("color temperature", kelvin, MinColorTemperature, MaxColorTemperature); err != nil {
		return err
	}
	return l.send(ctx, domain.CommandSetColorTemperature, kelvin)
}

func (l *CeilingLight) send(ctx context.Context, command string, parameter any) error {
	return l.api.Control(ctx, l.deviceID, domain.NewCommand(command, parameter))
}

func readPower(ctx context.Context, api DeviceAPI, deviceID string) (domain.Power, error) {
	status, err := api.GetStatus(ctx, deviceID)
	if err != nil {
		return domain.PowerUnknown, err
	}
	return status.Power(), nil
}

func readInt(ctx context.Context, api DeviceAPI, deviceID, field string) (int, error) {
	status, err := api.GetStatus(ctx, deviceID)
	if err != nil {
		return 0, err
	}
	v, _ := status.Int(field)
	return v, nil
}
