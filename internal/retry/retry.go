// Package retry provides a small attempt/backoff policy shared by the
// initial caption call and the regeneration call.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tudelft-ide/captioner/internal/providers"
)

// Policy runs a function up to Attempts times, sleeping Backoff(i)
// after the i-th failed attempt (zero-based).
type Policy struct {
	Attempts int
	Backoff  func(attempt int) time.Duration

	// Sleep is swappable for tests; defaults to time.Sleep honoring ctx
	Sleep func(ctx context.Context, d time.Duration) error
}

// ExponentialBackoff doubles the delay each attempt: 1s, 2s, 4s, ...
func ExponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

// Default is the API call budget used throughout: 3 attempts with
// exponential backoff between them.
func Default() Policy {
	return Policy{Attempts: 3, Backoff: ExponentialBackoff}
}

// Do invokes fn until it succeeds or the attempt budget is exhausted,
// returning the last error. Every failure is logged with its category
// so rate-limit pressure is visible in the logs.
func (p Policy) Do(ctx context.Context, fn func() (string, error)) (string, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		category := providers.Categorize(err)
		slog.Error("API call failed",
			"category", category,
			"attempt", attempt+1,
			"max_attempts", attempts,
			"err", err)

		if attempt == attempts-1 {
			break
		}

		delay := time.Duration(0)
		if p.Backoff != nil {
			delay = p.Backoff(attempt)
		}
		slog.Warn("Retrying after backoff", "delay", delay)
		if err := p.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
