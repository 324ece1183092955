package domain

import (
	"encoding/json"
	"fmt"
)

type DeviceType string

const (
	DeviceTypeBot             DeviceType = "Bot"
	DeviceTypeCeilingLight    DeviceType = "Ceiling Light"
	DeviceTypeCeilingLightPro DeviceType = "Ceiling Light Pro"
)

// Device is one entry of the vendor device list. Raw keeps the record exactly as
// received so fields this package does not model are still available.
type Device struct {
	ID                 string         `json:"deviceId"`
	Name               string         `json:"deviceName"`
	Type               DeviceType     `json:"deviceType"`
	HubDeviceID        string         `json:"hubDeviceId,omitempty"`
	EnableCloudService bool           `json:"enableCloudService,omitempty"`
	Raw                map[string]any `json:"-"`
}

func (d *Device) UnmarshalJSON(data []byte) error {
	type plain Device
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decoding device: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding device: %w", err)
	}

	*d = Device(p)
	d.Raw = raw
	return nil
}

func (d Device) MarshalJSON() ([]byte, error) {
	if d.Raw != nil {
		return json.Marshal(d.Raw)
	}
	type plain Device
	return json.Marshal(plain(d))
}

type Power string

const (
	PowerOn      Power = "on"
	PowerOff     Power = "off"
	PowerUnknown Power = "unknown"
)

// Status fields read by the device facades.
const (
	FieldPower            = "power"
	FieldBrightness       = "brightness"
	FieldColorTemperature = "colorTemperature"
)

// Status holds the device-specific fields of a status response.
type Status map[string]any

// Power returns PowerUnknown when the power field is missing.
func (s Status) Power() Power {
	if p, ok := s.String(FieldPower); ok {
		return Power(p)
	}
	return PowerUnknown
}

func (s Status) String(key string) (string, bool) {
	v, ok := s[key].(string)
	return v, ok
}

func (s Status) Int(key string) (int, bool) {
	switch v := s[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil {
				return 0, false
			}
			return int(f), true
		}
		return int(n), true
	default:
		return 0, false
	}
}
