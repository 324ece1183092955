package infra_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"switchbot/internal/infra"
)

type tempErr struct{ temporary bool }

func (e tempErr) Error() string   { return "temp" }
func (e tempErr) Temporary() bool { return e.temporary }

func fastRetry(attempts int) infra.RetryConfig {
	return infra.RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithRetry_RetriesTemporaryErrors(t *testing.T) {
	calls := 0
	err := infra.WithRetry(context.Background(), fastRetry(3), func() error {
		calls++
		if calls < 3 {
			return tempErr{temporary: true}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := infra.WithRetry(context.Background(), fastRetry(5), func() error {
		calls++
		return tempErr{temporary: false}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestWithRetry_ReturnsLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	err := infra.WithRetry(context.Background(), fastRetry(2), func() error {
		calls++
		return tempErr{temporary: true}
	})
	var te tempErr
	if !errors.As(err, &te) {
		t.Fatalf("expected tempErr, got %v", err)
	}
	if calls != 2 {
		t.Errorf("calls: got %d, want 2", calls)
	}
}

func TestWithRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = infra.WithRetry(context.Background(), infra.RetryConfig{}, func() error {
		calls++
		return tempErr{temporary: true}
	})
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	cfg := fastRetry(5)
	cfg.InitialDelay = time.Hour
	err := infra.WithRetry(ctx, cfg, func() error {
		calls++
		return tempErr{temporary: true}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{http.StatusOK, false},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		if got := infra.IsRetryableHTTPStatus(tt.code); got != tt.want {
			t.Errorf("IsRetryableHTTPStatus(%d): got %v, want %v", tt.code, got, tt.want)
		}
	}
}
