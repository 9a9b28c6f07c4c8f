package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		Backoff:    50 * time.Millisecond,
	}
}

// withRetry runs fn until it succeeds, fails permanently, or the policy is
// exhausted. The backoff doubles after every attempt with up to 25% jitter.
func withRetry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	backoff := policy.Backoff

	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return err
		}
		if attempt >= policy.MaxRetries {
			return fmt.Errorf("max retries (%d) exceeded: %w", policy.MaxRetries, err)
		}

		sleep := backoff
		if quarter := int64(backoff / 4); quarter > 0 {
			sleep += time.Duration(rand.Int63n(quarter))
		}

		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}

		backoff *= 2
	}
}

func isPermanent(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrForbidden)
}
