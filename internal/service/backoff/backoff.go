// Package backoff retries transient backend failures with exponential
// backoff. Retries happen only at the call site of an external backend;
// the fusion logic downstream never retries.
package backoff

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"meeting-transcription-service/internal/models"
	"meeting-transcription-service/internal/observability/metrics"
)

// Policy controls the retry loop for one backend.
type Policy struct {
	Backend     string        // label for logs and metrics
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // first retry delay, doubled per attempt
}

// DefaultPolicy returns the retry policy used for backend calls.
func DefaultPolicy(backend string) Policy {
	return Policy{
		Backend:     backend,
		MaxAttempts: 3,
		BaseDelay:   time.Second,
	}
}

// Do runs fn, retrying while it returns a transient error. Permanent
// errors and context cancellation stop the loop immediately. Every
// attempt is timed and recorded.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	m := metrics.DefaultMetrics

	delay := p.BaseDelay
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		out, err := fn(ctx)
		m.RecordBackendCall(p.Backend, err, time.Since(start).Seconds())
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !models.IsTransient(err) || errors.Is(err, context.Canceled) {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		log.Warn().
			Err(err).
			Str("backend", p.Backend).
			Int("attempt", attempt).
			Dur("retryIn", delay).
			Msg("Transient backend error, retrying")
		m.RecordBackendRetry(p.Backend)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return zero, lastErr
}
