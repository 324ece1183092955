package application

import (
	"context"

	"switchbot/internal/domain"
)

type DeviceDirectory interface {
	GetAll(ctx context.Context) ([]domain.Device, error)
	GetByName(ctx context.Context, name string) ([]domain.Device, error)
	GetByType(ctx context.Context, deviceType domain.DeviceType) ([]domain.Device, error)
	GetStatus(ctx context.Context, deviceID string) (domain.Status, error)
	Control(ctx context.Context, deviceID string, cmd domain.Command) error
}

type DeviceStatusReader interface {
	DeviceID() string
	Power(ctx context.Context) (domain.Power, error)
}

type DeviceController interface {
	DeviceID() string
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
}

type DimmableLight interface {
	DeviceStatusReader
	DeviceController
	Toggle(ctx context.Context) error
	Brightness(ctx context.Context) (int, error)
	SetBrightness(ctx context.Context, brightness int) error
	ColorTemperature(ctx context.Context) (int, error)
	SetColorTemperature(ctx context.Context, kelvin int) error
}

// Publisher delivers a payload to a topic, e.g. an MQTT broker.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}
