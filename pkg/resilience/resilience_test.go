package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errFlaky = errors.New("flaky")

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "flaky", fastRetry(3), func() error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("err=%v calls=%d, want nil after 3 calls", err, calls)
	}
}

func TestRetryExhausted(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "broken", fastRetry(2), func() error {
		calls++
		return errFlaky
	})
	if !errors.Is(err, errFlaky) || calls != 2 {
		t.Fatalf("err=%v calls=%d, want wrapped errFlaky after 2 calls", err, calls)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("bad request")
	cfg := fastRetry(5)
	cfg.Retryable = func(err error) bool { return !errors.Is(err, permanent) }

	calls := 0
	err := Retry(context.Background(), "permanent", cfg, func() error {
		calls++
		return permanent
	})
	if err != permanent || calls != 1 {
		t.Fatalf("err=%v calls=%d, want permanent error after 1 call", err, calls)
	}
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, "cancelled", fastRetry(5), func() error { return errFlaky })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCircuitBreakerLifecycle(t *testing.T) {
	var (
		mu     sync.Mutex
		states []State
	)
	cb := NewCircuitBreaker("oracle", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     20 * time.Millisecond,
		OnStateChange: func(name string, s State) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		},
	})

	for i := 0; i < 2; i++ {
		cb.Execute(func() error { return errFlaky })
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("open breaker: err=%v called=%v", err, called)
	}

	time.Sleep(30 * time.Millisecond)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("half-open probe: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("state = %v, want closed", cb.GetState())
	}

	mu.Lock()
	defer mu.Unlock()
	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(states) != len(want) {
		t.Fatalf("transitions = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", states, want)
		}
	}
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}

	parent, cancel := context.WithCancel(context.Background())
	cancel()
	err = WithTimeout(parent, time.Second, "cancelled", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if IsTimeout(err) || !errors.Is(err, context.Canceled) {
		t.Fatalf("parent cancellation reported as %v", err)
	}

	if err := WithTimeout(context.Background(), 0, "unbounded", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("unbounded call: %v", err)
	}
}

func TestCircuitBreakerIgnoresCallerCancellation(t *testing.T) {
	cb := NewCircuitBreaker("corenlp", CircuitBreakerConfig{FailureThreshold: 1})
	cb.Execute(func() error { return context.Canceled })
	if cb.GetState() != StateClosed {
		t.Fatalf("cancellation tripped the breaker")
	}
	cb.Execute(func() error { return errFlaky })
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}
	cb.Execute(func() error { return nil })
	if got := cb.Counts().Rejected; got != 1 {
		t.Fatalf("rejected = %d, want 1", got)
	}
	cb.Reset()
	if cb.GetState() != StateClosed || cb.Counts() != (Counts{}) {
		t.Fatalf("reset left state=%v counts=%+v", cb.GetState(), cb.Counts())
	}
}

func TestCircuitBreakerDropsStaleOutcome(t *testing.T) {
	cb := NewCircuitBreaker("oracle", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		cb.Execute(func() error { <-release; return nil })
		close(done)
	}()
	for cb.Counts().Requests == 0 {
		time.Sleep(time.Millisecond)
	}
	cb.Execute(func() error { return errFlaky })
	close(release)
	<-done
	if cb.GetState() != StateOpen {
		t.Fatalf("slow success from before the trip changed state to %v", cb.GetState())
	}
}

func TestBackoffIsCapped(t *testing.T) {
	cfg := RetryConfig{InitialDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond, JitterFraction: 0.01}
	if d := cfg.Backoff(1); d < 9*time.Millisecond || d > 11*time.Millisecond {
		t.Fatalf("first backoff = %v, want about 10ms", d)
	}
	if d := cfg.Backoff(20); d > 50*time.Millisecond {
		t.Fatalf("backoff = %v exceeds cap", d)
	}
}

func TestStateString(t *testing.T) {
	if StateHalfOpen.String() != "half-open" || State(9).String() != "state(9)" {
		t.Fatalf("unexpected names %q %q", StateHalfOpen, State(9))
	}
}
