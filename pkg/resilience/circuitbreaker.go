// Package resilience guards the summarizer's remote dependencies (the CoreNLP
// annotator, the specificity oracle and the PostgreSQL connection) with a circuit
// breaker, jittered retry and a timeout wrapper.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling the guarded function while the
// breaker rejects traffic.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker phase. The numeric values are exported as the
// circuit_breaker_state gauge.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var stateNames = [...]string{"closed", "open", "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// CircuitBreakerConfig tunes when the breaker trips and how it recovers.
// Zero values take defaults: 5 failures, 30s cool-down, one probe.
type CircuitBreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
	// IsFailure classifies a result. Nil counts every error except the
	// caller's own context cancellation.
	IsFailure func(err error) bool
	// OnStateChange runs under the breaker lock; it must not call back in.
	OnStateChange func(name string, state State)
}

// Counts is a snapshot of the breaker's bookkeeping for the current
// generation. A generation starts at every state change.
type Counts struct {
	Requests            int
	ConsecutiveFailures int
	Rejected            int
}

// CircuitBreaker trips open after FailureThreshold consecutive failures,
// rejects calls for ResetTimeout, then lets HalfOpenMaxRequests probes
// through. A successful probe closes it again; a failed one reopens it.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	openedAt   time.Time
	probes     int
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		}
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "dependency", name),
		now:    time.Now,
	}
}

// Execute calls fn unless the breaker is rejecting traffic, and records the
// outcome. fn's error is returned unchanged.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	gen, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn()
	cb.record(gen, err)
	return err
}

// GetState returns the current state, promoting an expired open breaker to
// half-open.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refresh()
	return cb.state
}

// Counts returns the current generation's counters.
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.counts
}

// Reset closes the breaker and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
	cb.logger.Info("circuit reset by caller")
}

func (cb *CircuitBreaker) admit() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refresh()

	switch cb.state {
	case StateOpen:
		cb.counts.Rejected++
		wait := cb.cfg.ResetTimeout - cb.now().Sub(cb.openedAt)
		return 0, fmt.Errorf("%w: %s, retry in %s", ErrCircuitOpen, cb.name, wait.Round(time.Millisecond))
	case StateHalfOpen:
		if cb.probes >= cb.cfg.HalfOpenMaxRequests {
			cb.counts.Rejected++
			return 0, fmt.Errorf("%w: %s, probe in flight", ErrCircuitOpen, cb.name)
		}
		cb.probes++
	}
	cb.counts.Requests++
	return cb.generation, nil
}

// record ignores outcomes from a generation that has already ended, so a
// slow call started before a trip cannot close the breaker.
func (cb *CircuitBreaker) record(gen uint64, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if gen != cb.generation {
		return
	}

	if !cb.cfg.IsFailure(err) {
		cb.counts.ConsecutiveFailures = 0
		if cb.state == StateHalfOpen {
			cb.transition(StateClosed)
			cb.logger.Info("circuit closed, dependency recovered")
		}
		return
	}

	cb.counts.ConsecutiveFailures++
	switch {
	case cb.state == StateHalfOpen:
		cb.transition(StateOpen)
		cb.logger.Warn("probe failed, circuit reopened", "error", err)
	case cb.counts.ConsecutiveFailures >= cb.cfg.FailureThreshold:
		failures := cb.counts.ConsecutiveFailures
		cb.transition(StateOpen)
		cb.logger.Warn("circuit opened", "consecutive_failures", failures, "error", err)
	}
}

func (cb *CircuitBreaker) refresh() {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		cb.transition(StateHalfOpen)
		cb.logger.Info("circuit half-open, allowing probe")
	}
}

func (cb *CircuitBreaker) transition(to State) {
	cb.state = to
	cb.generation++
	cb.counts = Counts{}
	cb.probes = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	}
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, to)
	}
}
