package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Linear waits base*1, base*2, base*3, ... between attempts. No jitter, no
// exponential growth; retrying a bulk read does not need anything smarter.
type Linear struct {
	Base    time.Duration
	attempt int
}

func (l *Linear) NextBackOff() time.Duration {
	l.attempt++
	return l.Base * time.Duration(l.attempt)
}

func (l *Linear) Reset() {
	l.attempt = 0
}

// Do runs op up to maxAttempts times with linear backoff between attempts.
// When every attempt fails, the returned error names the attempt count and
// wraps the last failure.
func Do[T any](ctx context.Context, maxAttempts uint, base time.Duration, op func() (T, error)) (T, error) {
	result, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(&Linear{Base: base}),
		backoff.WithMaxTries(maxAttempts),
	)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("all %d attempts failed, last error: %w", maxAttempts, err)
	}
	return result, nil
}
