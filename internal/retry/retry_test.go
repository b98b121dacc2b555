package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func TestDoSucceedsFirstAttempt(t *testing.T) {
	p := Policy{Attempts: 3, Backoff: ExponentialBackoff, Sleep: noSleep}

	calls := 0
	result, err := p.Do(context.Background(), func() (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if result != "ok" {
		t.Errorf("Expected ok, got %s", result)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestDoRetriesThenSucceeds(t *testing.T) {
	p := Policy{Attempts: 3, Backoff: ExponentialBackoff, Sleep: noSleep}

	calls := 0
	result, err := p.Do(context.Background(), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("503 unavailable")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if result != "ok" {
		t.Errorf("Expected ok, got %s", result)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestDoExhaustsBudget(t *testing.T) {
	p := Policy{Attempts: 3, Backoff: ExponentialBackoff, Sleep: noSleep}

	calls := 0
	_, err := p.Do(context.Background(), func() (string, error) {
		calls++
		return "", errors.New("quota exceeded")
	})
	if err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("Expected exactly 3 calls, got %d", calls)
	}
	if !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Errorf("Expected attempt count in error, got %v", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("Expected last error wrapped, got %v", err)
	}
}

func TestDoBackoffSchedule(t *testing.T) {
	var delays []time.Duration
	p := Policy{
		Attempts: 3,
		Backoff:  ExponentialBackoff,
		Sleep: func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}

	_, _ = p.Do(context.Background(), func() (string, error) {
		return "", errors.New("boom")
	})

	expected := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(delays) != len(expected) {
		t.Fatalf("Expected %d sleeps, got %d", len(expected), len(delays))
	}
	for i, d := range expected {
		if delays[i] != d {
			t.Errorf("Expected delay %v at attempt %d, got %v", d, i, delays[i])
		}
	}
}

func TestDoStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Policy{Attempts: 3, Backoff: ExponentialBackoff}
	calls := 0
	_, err := p.Do(ctx, func() (string, error) {
		calls++
		return "", errors.New("boom")
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 {
		t.Errorf("Expected 1 call before cancellation stopped retries, got %d", calls)
	}
}
