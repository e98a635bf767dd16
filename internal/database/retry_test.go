package database

import (
	"context"
	"errors"
	"testing"
	"time"
)

type flakyPinger struct {
	failures int
	calls    int
}

func (p *flakyPinger) PingContext(ctx context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}

func fastRetryConfig(attempts int) RetryConfig {
	return RetryConfig{
		Attempts:       attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
		PingTimeout:    time.Second,
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := DefaultRetryConfig()

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 500 * time.Millisecond},
		{1, time.Second},
		{2, 2 * time.Second},
		{4, 8 * time.Second},
		{10, 8 * time.Second},
	}

	for _, tt := range tests {
		if got := cfg.CalculateBackoff(tt.failures); got != tt.want {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestPingWithRetry_SucceedsAfterFailures(t *testing.T) {
	p := &flakyPinger{failures: 2}

	if err := PingWithRetry(context.Background(), p, fastRetryConfig(5)); err != nil {
		t.Fatalf("PingWithRetry: %v", err)
	}
	if p.calls != 3 {
		t.Errorf("calls = %d, want 3", p.calls)
	}
}

func TestPingWithRetry_GivesUpAfterAttempts(t *testing.T) {
	p := &flakyPinger{failures: 100}

	err := PingWithRetry(context.Background(), p, fastRetryConfig(3))
	if err == nil {
		t.Fatal("expected error")
	}
	if p.calls != 3 {
		t.Errorf("calls = %d, want 3", p.calls)
	}
}

func TestPingWithRetry_ZeroAttemptsTriesOnce(t *testing.T) {
	p := &flakyPinger{failures: 100}

	_ = PingWithRetry(context.Background(), p, fastRetryConfig(0))
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1", p.calls)
	}
}

func TestPingWithRetry_StopsOnCancel(t *testing.T) {
	p := &flakyPinger{failures: 100}
	cfg := fastRetryConfig(10)
	cfg.InitialBackoff = time.Hour
	cfg.MaxBackoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := PingWithRetry(ctx, p, cfg)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
