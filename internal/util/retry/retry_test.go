package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// failTimes returns an operation that fails n times and counts calls.
func failTimes(n int, calls *int) func() error {
	return func() error {
		*calls++
		if *calls <= n {
			return fmt.Errorf("attempt %d failed", *calls)
		}
		return nil
	}
}

func TestWithExponentialBackoff_FirstAttemptSucceeds(t *testing.T) {
	t.Parallel()
	calls := 0

	err := WithExponentialBackoff(context.Background(), failTimes(0, &calls))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestWithExponentialBackoff_RecoversWithinBudget(t *testing.T) {
	t.Parallel()
	calls := 0

	err := WithExponentialBackoff(context.Background(), failTimes(2, &calls),
		WithInitialDelay(10*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestWithExponentialBackoff_BudgetSpent(t *testing.T) {
	t.Parallel()
	calls := 0
	boom := errors.New("still down")

	err := WithExponentialBackoff(context.Background(),
		func() error { calls++; return boom },
		WithMaxRetries(3),
		WithInitialDelay(10*time.Millisecond))

	if !errors.Is(err, boom) {
		t.Fatalf("expected the last operation error in the chain, got %v", err)
	}
	// The budget counts retries after the first attempt.
	if calls != 4 {
		t.Errorf("expected 4 attempts, got %d", calls)
	}
}

func TestWithExponentialBackoff_ContextCancelled(t *testing.T) {
	t.Parallel()
	calls := 0
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithExponentialBackoff(ctx,
		func() error { calls++; return errors.New("down") },
		WithInitialDelay(10*time.Millisecond))

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in the chain, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 attempt before the context check, got %d", calls)
	}
}

func TestWithExponentialBackoff_ContextDeadline(t *testing.T) {
	t.Parallel()
	calls := 0
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := WithExponentialBackoff(ctx,
		func() error { calls++; return errors.New("down") },
		WithInitialDelay(200*time.Millisecond),
		WithMaxRetries(10))

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded in the chain, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected the deadline to beat the first retry, got %d attempts", calls)
	}
}

func TestWithExponentialBackoff_FatalStopsImmediately(t *testing.T) {
	t.Parallel()
	calls := 0
	auth := errors.New("permission denied")

	err := WithExponentialBackoff(context.Background(),
		func() error { calls++; return Fatal(auth) },
		WithInitialDelay(10*time.Millisecond))

	if !errors.Is(err, auth) {
		t.Fatalf("expected the wrapped cause in the chain, got %v", err)
	}
	if !IsFatal(err) {
		t.Errorf("expected the returned error to stay fatal, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected no retries after a fatal error, got %d attempts", calls)
	}
}

func TestPauseGrowthAndCap(t *testing.T) {
	t.Parallel()
	s := settings{
		initialDelay: 50 * time.Millisecond,
		maxDelay:     200 * time.Millisecond,
		multiplier:   2,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 50 * time.Millisecond},
		{attempt: 1, want: 100 * time.Millisecond},
		{attempt: 2, want: 200 * time.Millisecond},
		{attempt: 3, want: 200 * time.Millisecond},
		{attempt: 10, want: 200 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := s.pause(tt.attempt); got != tt.want {
			t.Errorf("pause(%d): expected %v, got %v", tt.attempt, tt.want, got)
		}
	}
}

func TestPauseInitialAboveCap(t *testing.T) {
	t.Parallel()
	s := settings{
		initialDelay: 500 * time.Millisecond,
		maxDelay:     100 * time.Millisecond,
		multiplier:   2,
	}
	if got := s.pause(0); got != 100*time.Millisecond {
		t.Errorf("expected the cap to apply to the first pause, got %v", got)
	}
}

func TestFatal(t *testing.T) {
	t.Parallel()

	if Fatal(nil) != nil {
		t.Error("Fatal(nil) must stay nil")
	}

	cause := errors.New("bad credentials")
	err := Fatal(cause)

	if err.Error() != cause.Error() {
		t.Errorf("expected message %q, got %q", cause.Error(), err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
	if errors.Unwrap(err) != cause {
		t.Error("expected Unwrap to return the cause")
	}
}

func TestIsFatal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: errors.New("transient"), want: false},
		{name: "fatal", err: Fatal(errors.New("bad token")), want: true},
		{name: "fatal under fmt wrapping", err: fmt.Errorf("dial: %w", Fatal(errors.New("bad token"))), want: true},
		{name: "fatal inside join", err: errors.Join(Fatal(errors.New("bad token")), errors.New("extra")), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
