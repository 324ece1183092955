package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic   string
	qos     byte
	retain  bool
	payload []byte
}

// fakePaho overrides only the methods the client calls.
type fakePaho struct {
	paho.Client
	messages     []published
	err          error
	pending      bool
	disconnected bool
}

func (f *fakePaho) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	f.messages = append(f.messages, published{topic: topic, qos: qos, retain: retained, payload: payload.([]byte)})
	if f.pending {
		return &fakeToken{done: make(chan struct{})}
	}
	return newFakeToken(f.err)
}

func (f *fakePaho) Disconnect(uint) {
	f.disconnected = true
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_PublishIsRetained(t *testing.T) {
	fake := &fakePaho{}
	c := NewWithClient(fake, "switchbot/", testLogger())

	if err := c.Publish(context.Background(), "switchbot/A1/status", []byte(`{"power":"on"}`)); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	if len(fake.messages) != 1 {
		t.Fatalf("messages: got %d, want 1", len(fake.messages))
	}
	m := fake.messages[0]
	if m.topic != "switchbot/A1/status" || !m.retain || m.qos != 1 {
		t.Errorf("message: got %+v", m)
	}
}

func TestClient_NotifyPublishesEvent(t *testing.T) {
	fake := &fakePaho{}
	c := NewWithClient(fake, "home", testLogger())

	if err := c.Notify(context.Background(), "turnOn sent to A1"); err != nil {
		t.Fatalf("Notify error: %v", err)
	}

	m := fake.messages[0]
	if m.topic != "home/events" || m.retain {
		t.Errorf("message: got topic %s retain %v", m.topic, m.retain)
	}

	var event struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(m.payload, &event); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	if event.Message != "turnOn sent to A1" {
		t.Errorf("event message: got %q", event.Message)
	}
}

func TestClient_PublishError(t *testing.T) {
	boom := errors.New("not connected")
	c := NewWithClient(&fakePaho{err: boom}, "home", testLogger())

	if err := c.Publish(context.Background(), "home/x", []byte("{}")); !errors.Is(err, boom) {
		t.Errorf("error: got %v, want %v", err, boom)
	}
}

func TestClient_PublishHonorsContext(t *testing.T) {
	c := NewWithClient(&fakePaho{pending: true}, "home", testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := c.Publish(ctx, "home/x", []byte("{}")); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error: got %v, want deadline exceeded", err)
	}
}

func TestClient_Close(t *testing.T) {
	fake := &fakePaho{}
	NewWithClient(fake, "home", testLogger()).Close()
	if !fake.disconnected {
		t.Error("expected disconnect")
	}
}

func TestBrokerAddress(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"mqtt://localhost:1883", "tcp://localhost:1883", false},
		{"tcp://10.0.0.5:1883", "tcp://10.0.0.5:1883", false},
		{"mqtts://broker:8883", "ssl://broker:8883", false},
		{"wss://broker/mqtt", "wss://broker/mqtt", false},
		{"http://broker", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := brokerAddress(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("brokerAddress(%q) error: %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("brokerAddress(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}
