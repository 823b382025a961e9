package backoff

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDelayWithRand(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		attempt int
		random  float64
		want    time.Duration
	}{
		{
			name:    "first attempt with no jitter",
			policy:  Policy{Initial: 100 * time.Millisecond, Max: 10 * time.Second, Factor: 2},
			attempt: 1,
			random:  0.5,
			want:    100 * time.Millisecond,
		},
		{
			name:    "third attempt quadruples",
			policy:  Policy{Initial: 100 * time.Millisecond, Max: 10 * time.Second, Factor: 2},
			attempt: 3,
			random:  0.5,
			want:    400 * time.Millisecond,
		},
		{
			name:    "clamped to max",
			policy:  Policy{Initial: 100 * time.Millisecond, Max: 500 * time.Millisecond, Factor: 2},
			attempt: 10,
			want:    500 * time.Millisecond,
		},
		{
			name:    "jitter at max random",
			policy:  Policy{Initial: 100 * time.Millisecond, Factor: 2, Jitter: 0.1},
			attempt: 1,
			random:  1,
			want:    110 * time.Millisecond,
		},
		{
			name:    "factor below one is flat",
			policy:  Policy{Initial: 100 * time.Millisecond, Factor: 0},
			attempt: 4,
			want:    100 * time.Millisecond,
		},
		{
			name:    "attempt zero treated as first",
			policy:  Policy{Initial: 100 * time.Millisecond, Factor: 2},
			attempt: 0,
			want:    100 * time.Millisecond,
		},
		{
			name:    "zero initial disables waiting",
			policy:  Policy{Factor: 2},
			attempt: 3,
			want:    0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.DelayWithRand(tt.attempt, tt.random); got != tt.want {
				t.Fatalf("DelayWithRand(%d, %v) = %v, want %v", tt.attempt, tt.random, got, tt.want)
			}
		})
	}
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("Sleep() = %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("Sleep ignored cancellation")
	}
}

var fast = Policy{Initial: time.Millisecond, Factor: 1}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	attempts, err := Retry(context.Background(), fast, 5, nil, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil || attempts != 3 {
		t.Fatalf("Retry() = %d, %v", attempts, err)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	attempts, err := Retry(context.Background(), fast, 5,
		func(err error) bool { return !errors.Is(err, permanent) },
		func() error {
			calls++
			return permanent
		})
	if !errors.Is(err, permanent) || attempts != 1 || calls != 1 {
		t.Fatalf("Retry() = %d, %v (calls %d)", attempts, err, calls)
	}
}

func TestRetryReturnsLastError(t *testing.T) {
	calls := 0
	attempts, err := Retry(context.Background(), fast, 3, nil, func() error {
		calls++
		return errors.New("attempt failed")
	})
	if err == nil || err.Error() != "attempt failed" || attempts != 3 || calls != 3 {
		t.Fatalf("Retry() = %d, %v (calls %d)", attempts, err, calls)
	}
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts, err := Retry(ctx, Policy{Initial: time.Hour}, 3, nil, func() error {
		cancel()
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) || attempts != 1 {
		t.Fatalf("Retry() = %d, %v", attempts, err)
	}
}
