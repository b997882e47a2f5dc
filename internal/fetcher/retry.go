package fetcher

import (
	"context"
	"time"
)

// RetryPolicy controls how transient failures are retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt. Each further wait doubles.
	BaseDelay time.Duration

	// MaxDelay caps any single wait.
	MaxDelay time.Duration
}

// DefaultRetryPolicy makes three attempts, waiting 2s and then 4s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
	}
}

// Backoff returns the wait after the given failed attempt (1-based):
// min(MaxDelay, BaseDelay * 2^(attempt-1)).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			break
		}
		d *= 2
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// retry calls fn until it succeeds, fails with a non-retryable error, the
// attempts are exhausted, or ctx is done. The last error is returned as is.
func (f *Fetcher) retry(ctx context.Context, rawURL string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= f.retryPolicy.attempts(); attempt++ {
		f.metrics.ObserveAttempt(attempt > 1)

		err = fn()
		if err == nil {
			return nil
		}

		fe, ok := err.(*Error)
		if !ok || !fe.Retryable() || ctx.Err() != nil {
			return err
		}
		if attempt == f.retryPolicy.attempts() {
			break
		}

		wait := f.retryPolicy.Backoff(attempt)
		f.logger.Debug("retrying transient failure",
			"url", rawURL,
			"attempt", attempt,
			"kind", fe.Kind.String(),
			"wait", wait,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}
