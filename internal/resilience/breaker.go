// Package resilience provides the composable wrappers guarding every external
// call: circuit breaker, retry with backoff, and timeout.
package resilience

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// State represents the state of the circuit breaker.
type State int

const (
	// StateClosed indicates the circuit is closed and calls flow through.
	StateClosed State = iota
	// StateHalfOpen indicates a trial state where calls probe for recovery.
	StateHalfOpen
	// StateOpen indicates calls are rejected until the timeout elapses.
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitOpenError is returned while the breaker rejects calls. It wraps
// domain.ErrCircuitOpen and carries the remaining wait.
type CircuitOpenError struct {
	Name       string
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit %q open, retry after %s", e.Name, e.RetryAfter.Round(time.Millisecond))
}

// Unwrap ties the typed error into the sentinel taxonomy.
func (e *CircuitOpenError) Unwrap() error { return domain.ErrCircuitOpen }

// Breaker is a three-state circuit breaker. One instance per protected
// dependency name; safe for concurrent use.
type Breaker struct {
	name            string
	threshold       int
	timeout         time.Duration
	successesNeeded int

	mu              sync.Mutex
	state           State
	failureCount    int
	halfOpenSuccess int
	lastFailureAt   time.Time
	onStateChange   func(name string, s State)
	now             func() time.Time
}

// BreakerOption tunes a Breaker.
type BreakerOption func(*Breaker)

// WithStateChange installs a hook fired on every transition (used to feed the
// circuit_state gauge).
func WithStateChange(fn func(name string, s State)) BreakerOption {
	return func(b *Breaker) { b.onStateChange = fn }
}

// NewBreaker constructs a breaker; zero values fall back to the defaults
// (threshold 5, timeout 30s, successesNeeded 2).
func NewBreaker(name string, threshold int, timeout time.Duration, successesNeeded int, opts ...BreakerOption) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if successesNeeded <= 0 {
		successesNeeded = 2
	}
	b := &Breaker{
		name:            name,
		threshold:       threshold,
		timeout:         timeout,
		successesNeeded: successesNeeded,
		state:           StateClosed,
		now:             time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Allow reports whether a call may proceed, returning a CircuitOpenError
// carrying the remaining wait when not.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed, StateHalfOpen:
		return nil
	default: // StateOpen
		elapsed := b.now().Sub(b.lastFailureAt)
		if elapsed >= b.timeout {
			b.transition(StateHalfOpen)
			b.halfOpenSuccess = 0
			return nil
		}
		return &CircuitOpenError{Name: b.name, RetryAfter: b.timeout - elapsed}
	}
}

// RecordSuccess notes a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateHalfOpen:
		b.halfOpenSuccess++
		if b.halfOpenSuccess >= b.successesNeeded {
			b.failureCount = 0
			b.transition(StateClosed)
		}
	case StateClosed:
		b.failureCount = 0
	}
}

// RecordFailure notes a failed call, possibly opening the circuit.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFailureAt = b.now()
	switch b.state {
	case StateClosed:
		b.failureCount++
		if b.failureCount >= b.threshold {
			b.transition(StateOpen)
			slog.Warn("circuit breaker opened",
				slog.String("name", b.name),
				slog.Int("failures", b.failureCount))
		}
	case StateHalfOpen:
		b.transition(StateOpen)
		slog.Warn("circuit breaker re-opened from half-open", slog.String("name", b.name))
	}
}

// Do runs fn under the breaker.
func (b *Breaker) Do(fn func() error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}

// CurrentState returns the breaker state.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Name returns the protected dependency name.
func (b *Breaker) Name() string { return b.name }

// transition must be called with the mutex held.
func (b *Breaker) transition(s State) {
	if b.state == s {
		return
	}
	b.state = s
	if b.onStateChange != nil {
		b.onStateChange(b.name, s)
	}
}

// BreakerSet holds one breaker per dependency name.
type BreakerSet struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	factory  func(name string) *Breaker
}

// NewBreakerSet builds a set; factory creates breakers on first use.
func NewBreakerSet(factory func(name string) *Breaker) *BreakerSet {
	return &BreakerSet{breakers: make(map[string]*Breaker), factory: factory}
}

// For returns the breaker for a dependency name, creating it if needed.
func (s *BreakerSet) For(name string) *Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.breakers[name]; ok {
		return b
	}
	b := s.factory(name)
	s.breakers[name] = b
	return b
}
