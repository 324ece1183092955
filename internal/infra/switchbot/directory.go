package switchbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"switchbot/internal/domain"
)

const (
	pathDevices       = "/v1.1/devices"
	pathDeviceStatus  = "/v1.1/devices/%s/status"
	pathDeviceCommand = "/v1.1/devices/%s/commands"
)

// Transport is the signed request surface the directory needs. *Client implements it.
type Transport interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	Post(ctx context.Context, path string, payload any) error
}

// Directory lists, inspects and controls the devices of one account.
type Directory struct {
	transport Transport
}

func NewDirectory(transport Transport) *Directory {
	return &Directory{transport: transport}
}

// GetAll returns every physical device in the order the API lists them.
func (d *Directory) GetAll(ctx context.Context) ([]domain.Device, error) {
	body, err := d.transport.Get(ctx, pathDevices)
	if err != nil {
		if errors.Is(err, ErrNoBody) {
			return []domain.Device{}, nil
		}
		return nil, fmt.Errorf("fetching devices: %w", err)
	}

	var result struct {
		DeviceList []domain.Device `json:"deviceList"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing devices: %w", err)
	}

	if result.DeviceList == nil {
		return []domain.Device{}, nil
	}
	return result.DeviceList, nil
}

func (d *Directory) GetByName(ctx context.Context, name string) ([]domain.Device, error) {
	return d.filter(ctx, func(dev domain.Device) bool { return dev.Name == name })
}

func (d *Directory) GetByType(ctx context.Context, deviceType domain.DeviceType) ([]domain.Device, error) {
	return d.filter(ctx, func(dev domain.Device) bool { return dev.Type == deviceType })
}

func (d *Directory) filter(ctx context.Context, keep func(domain.Device) bool) ([]domain.Device, error) {
	all, err := d.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	devices := make([]domain.Device, 0, len(all))
	for _, dev := range all {
		if keep(dev) {
			devices = append(devices, dev)
		}
	}
	return devices, nil
}

// GetStatus returns the status body as sent by the API, without field validation.
func (d *Directory) GetStatus(ctx context.Context, deviceID string) (domain.Status, error) {
	if deviceID == "" {
		return nil, ErrEmptyDeviceID
	}

	body, err := d.transport.Get(ctx, fmt.Sprintf(pathDeviceStatus, url.PathEscape(deviceID)))
	if err != nil {
		return nil, fmt.Errorf("fetching status of %s: %w", deviceID, err)
	}

	var status domain.Status
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("parsing status of %s: %w", deviceID, err)
	}
	if status == nil {
		status = domain.Status{}
	}
	return status, nil
}

func (d *Directory) Control(ctx context.Context, deviceID string, cmd domain.Command) error {
	if deviceID == "" {
		return ErrEmptyDeviceID
	}

	if err := d.transport.Post(ctx, fmt.Sprintf(pathDeviceCommand, url.PathEscape(deviceID)), cmd); err != nil {
		return fmt.Errorf("sending %s to %s: %w", cmd.Command, deviceID, err)
	}
	return nil
}
