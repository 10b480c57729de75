package util

import (
	"context"
	"time"
)

// Retry runs fn until it succeeds or maxAttempts calls have failed, doubling
// the wait between calls starting from baseDelay. The error from the final
// attempt is returned. Cancelling ctx during a backoff wait aborts the loop
// with ctx.Err(); fn itself is never interrupted.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	delay := baseDelay

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}

		if attempt == maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return err
}
