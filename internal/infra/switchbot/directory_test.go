package switchbot_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"switchbot/internal/domain"
	"switchbot/internal/infra/switchbot"
)

func deviceListServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1.1/devices":
			json.NewEncoder(w).Encode(map[string]any{
				"statusCode": 100,
				"body": map[string]any{
					"deviceList": []map[string]any{
						{"deviceId": "A1", "deviceName": "Living", "deviceType": "Ceiling Light", "hubDeviceId": "H1"},
						{"deviceId": "B2", "deviceName": "Kettle", "deviceType": "Bot", "enableCloudService": true},
						{"deviceId": "C3", "deviceName": "Bedroom", "deviceType": "Ceiling Light Pro"},
						{"deviceId": "D4", "deviceName": "Living", "deviceType": "Bot"},
					},
					"infraredRemoteList": []any{},
				},
			})
		case r.Method == http.MethodGet && r.URL.Path == "/v1.1/devices/A1/status":
			io.WriteString(w, `{"statusCode":100,"body":{"deviceId":"A1","power":"on","brightness":42,"colorTemperature":3000}}`)
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
}

func ids(devices []domain.Device) []string {
	out := make([]string, 0, len(devices))
	for _, d := range devices {
		out = append(out, d.ID)
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDirectory_GetAll(t *testing.T) {
	server := deviceListServer(t)
	defer server.Close()

	dir := switchbot.NewDirectory(newTestClient(t, server.URL))

	devices, err := dir.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll error: %v", err)
	}

	if got, want := ids(devices), []string{"A1", "B2", "C3", "D4"}; !equalIDs(got, want) {
		t.Errorf("ids: got %v, want %v", got, want)
	}
	if devices[0].Type != domain.DeviceTypeCeilingLight {
		t.Errorf("type: got %s", devices[0].Type)
	}
	if devices[0].HubDeviceID != "H1" {
		t.Errorf("hub id: got %s", devices[0].HubDeviceID)
	}
	if !devices[1].EnableCloudService {
		t.Error("expected cloud service enabled")
	}
	if devices[0].Raw["hubDeviceId"] != "H1" {
		t.Errorf("raw record not kept: %v", devices[0].Raw)
	}
}

func TestDirectory_GetAllWithoutDeviceList(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"missing deviceList", `{"body":{"infraredRemoteList":[]}}`},
		{"missing body", `{"statusCode":190}`},
		{"null body", `{"statusCode":100,"body":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.response)
			}))
			defer server.Close()

			dir := switchbot.NewDirectory(newTestClient(t, server.URL))
			devices, err := dir.GetAll(context.Background())
			if err != nil {
				t.Fatalf("GetAll error: %v", err)
			}
			if devices == nil || len(devices) != 0 {
				t.Errorf("devices: got %v, want empty", devices)
			}
		})
	}
}

func TestDirectory_GetAllPropagatesErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	dir := switchbot.NewDirectory(newTestClient(t, server.URL))
	if _, err := dir.GetAll(context.Background()); !switchbot.IsUnauthorized(err) {
		t.Errorf("error: got %v, want unauthorized", err)
	}
}

func TestDirectory_Filters(t *testing.T) {
	server := deviceListServer(t)
	defer server.Close()

	dir := switchbot.NewDirectory(newTestClient(t, server.URL))
	ctx := context.Background()

	byName, err := dir.GetByName(ctx, "Living")
	if err != nil {
		t.Fatalf("GetByName error: %v", err)
	}
	if got, want := ids(byName), []string{"A1", "D4"}; !equalIDs(got, want) {
		t.Errorf("by name: got %v, want %v", got, want)
	}

	byType, err := dir.GetByType(ctx, domain.DeviceTypeBot)
	if err != nil {
		t.Fatalf("GetByType error: %v", err)
	}
	if got, want := ids(byType), []string{"B2", "D4"}; !equalIDs(got, want) {
		t.Errorf("by type: got %v, want %v", got, want)
	}

	none, err := dir.GetByName(ctx, "living")
	if err != nil {
		t.Fatalf("GetByName error: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("case-sensitive match expected empty, got %v", ids(none))
	}

	none, err = dir.GetByType(ctx, "Curtain")
	if err != nil {
		t.Fatalf("GetByType error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("by type: got %v, want empty", ids(none))
	}
}

func TestDirectory_GetStatus(t *testing.T) {
	server := deviceListServer(t)
	defer server.Close()

	dir := switchbot.NewDirectory(newTestClient(t, server.URL))

	status, err := dir.GetStatus(context.Background(), "A1")
	if err != nil {
		t.Fatalf("GetStatus error: %v", err)
	}
	if p, _ := status.String("power"); p != "on" {
		t.Errorf("power: got %q", p)
	}
	if b, _ := status.Int("brightness"); b != 42 {
		t.Errorf("brightness: got %d", b)
	}
	if status["deviceId"] != "A1" {
		t.Errorf("raw field lost: %v", status)
	}

	if _, err := dir.GetStatus(context.Background(), "ZZ"); !switchbot.IsNotFound(err) {
		t.Errorf("unknown device: got %v, want not found", err)
	}

	if _, err := dir.GetStatus(context.Background(), ""); !errors.Is(err, switchbot.ErrEmptyDeviceID) {
		t.Errorf("empty id: got %v", err)
	}
}

func TestDirectory_GetStatusNullBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"statusCode":100,"body":null}`)
	}))
	defer server.Close()

	dir := switchbot.NewDirectory(newTestClient(t, server.URL))
	status, err := dir.GetStatus(context.Background(), "A1")
	if err != nil {
		t.Fatalf("GetStatus error: %v", err)
	}
	if status == nil || len(status) != 0 {
		t.Errorf("status: got %v, want empty", status)
	}
	if p := status.Power(); p != domain.PowerUnknown {
		t.Errorf("power: got %q, want unknown", p)
	}
}

func TestDirectory_Control(t *testing.T) {
	var got domain.Command
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding command: %v", err)
		}
		io.WriteString(w, `{"statusCode":100,"body":{}}`)
	}))
	defer server.Close()

	dir := switchbot.NewDirectory(newTestClient(t, server.URL))

	err := dir.Control(context.Background(), "A1", domain.NewCommand(domain.CommandSetBrightness, 55))
	if err != nil {
		t.Fatalf("Control error: %v", err)
	}

	if path != "/v1.1/devices/A1/commands" {
		t.Errorf("path: got %s", path)
	}
	if got.CommandType != "command" || got.Command != "setBrightness" {
		t.Errorf("envelope: got %+v", got)
	}
	if v, ok := got.Parameter.(float64); !ok || v != 55 {
		t.Errorf("parameter: got %v", got.Parameter)
	}

	if err := dir.Control(context.Background(), "", domain.NewCommand(domain.CommandTurnOn, domain.DefaultParameter)); !errors.Is(err, switchbot.ErrEmptyDeviceID) {
		t.Errorf("empty id: got %v", err)
	}
}

func TestDirectory_ControlFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dir := switchbot.NewDirectory(newTestClient(t, server.URL))

	err := dir.Control(context.Background(), "A1", domain.NewCommand(domain.CommandTurnOn, domain.DefaultParameter))
	var se *switchbot.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusInternalServerError {
		t.Errorf("error: got %v, want status 500", err)
	}
}
