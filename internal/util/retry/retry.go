// Package retry reruns failed operations with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// settings collects the knobs the Option functions adjust.
type settings struct {
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
}

// Option adjusts the backoff behavior of WithExponentialBackoff.
type Option func(*settings)

// WithMaxRetries caps how many times the operation is rerun after the
// first attempt.
func WithMaxRetries(n int) Option {
	return func(s *settings) { s.maxRetries = n }
}

// WithInitialDelay sets the pause before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(s *settings) { s.initialDelay = d }
}

// WithMaxDelay caps the pause between attempts.
func WithMaxDelay(d time.Duration) Option {
	return func(s *settings) { s.maxDelay = d }
}

// WithMultiplier sets the growth factor applied to the pause after each
// failed attempt.
func WithMultiplier(m float64) Option {
	return func(s *settings) { s.multiplier = m }
}

// WithExponentialBackoff runs op until it succeeds, returns an error
// marked Fatal, the retry budget is spent, or ctx is done. The pause
// between attempts starts at the initial delay and grows by the
// multiplier up to the cap.
func WithExponentialBackoff(ctx context.Context, op func() error, opts ...Option) error {
	s := settings{
		maxRetries:   5,
		initialDelay: time.Second,
		maxDelay:     30 * time.Second,
		multiplier:   2,
	}
	for _, opt := range opts {
		opt(&s)
	}

	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if IsFatal(err) {
			return fmt.Errorf("not retryable: %w", err)
		}
		if attempt >= s.maxRetries {
			return fmt.Errorf("gave up after %d attempts: %w", attempt+1, err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("aborted after %d attempts: %w", attempt+1, ctx.Err())
		case <-time.After(s.pause(attempt)):
		}
	}
}

// pause returns the delay preceding retry number attempt (zero-based).
func (s settings) pause(attempt int) time.Duration {
	d := s.initialDelay
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * s.multiplier)
		if d >= s.maxDelay {
			return s.maxDelay
		}
	}
	if d > s.maxDelay {
		return s.maxDelay
	}
	return d
}

// FatalError marks its wrapped error as not worth retrying.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }

// Fatal wraps err so WithExponentialBackoff stops on it immediately.
// A nil err stays nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal reports whether a FatalError sits anywhere in err's chain.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
