package circuitbreaker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Blocking calls
	StateHalfOpen              // Trial period after timeout
)

// Config tunes a single circuit breaker. Zero values fall back to defaults.
type Config struct {
	FailureThreshold int           // consecutive failures needed to open
	SuccessThreshold int           // consecutive half-open successes needed to close
	Timeout          time.Duration // how long an open breaker blocks before a trial call
	WindowSize       int           // bounded call history used for FailureRate only
}

const (
	DefaultFailureThreshold = 5
	DefaultSuccessThreshold = 2
	DefaultTimeout          = 60 * time.Second
	DefaultWindowSize       = 100
)

func (c Config) withDefaults() Config {
	if c.FailureThreshold < 1 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.SuccessThreshold < 1 {
		c.SuccessThreshold = DefaultSuccessThreshold
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.WindowSize < 1 {
		c.WindowSize = DefaultWindowSize
	}
	return c
}

// OpenError is returned when the breaker refuses a call without
// invoking the wrapped operation.
type OpenError struct {
	Name       string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open, retry in %s", e.Name, e.RetryAfter)
}

// CircuitBreaker protects one backend. The mutex covers only the
// bookkeeping around a call, never the call itself.
type CircuitBreaker struct {
	name   string
	config Config

	mutex     sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	history   []bool
}

func NewCircuitBreaker(name string, config Config) *CircuitBreaker {
	cfg := config.withDefaults()
	return &CircuitBreaker{
		name:    name,
		config:  cfg,
		state:   StateClosed,
		history: make([]bool, 0, cfg.WindowSize),
	}
}

// Call runs op under breaker protection. While the breaker is open and the
// timeout has not elapsed it fails with *OpenError and op is never invoked.
// Once the timeout elapses the breaker moves to half-open and the call
// proceeds as a trial. The operation's own error is returned unchanged
// after the outcome is recorded.
func (cb *CircuitBreaker) Call(ctx context.Context, op func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	err := op(ctx)
	cb.record(err == nil)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state != StateOpen {
		return nil
	}

	elapsed := time.Since(cb.openedAt)
	if elapsed < cb.config.Timeout {
		return &OpenError{Name: cb.name, RetryAfter: cb.config.Timeout - elapsed}
	}

	cb.state = StateHalfOpen
	cb.successes = 0
	return nil
}

func (cb *CircuitBreaker) record(success bool) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.pushHistory(success)

	if success {
		switch cb.state {
		case StateHalfOpen:
			cb.successes++
			if cb.successes >= cb.config.SuccessThreshold {
				cb.close()
			}
		case StateClosed:
			cb.failures = 0
		}
		return
	}

	switch cb.state {
	case StateHalfOpen:
		// No partial credit: one trial failure reopens the circuit.
		cb.open()
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.open()
		}
	}
}

func (cb *CircuitBreaker) open() {
	cb.state = StateOpen
	cb.openedAt = time.Now()
	cb.failures = 0
	cb.successes = 0
}

func (cb *CircuitBreaker) close() {
	cb.state = StateClosed
	cb.openedAt = time.Time{}
	cb.failures = 0
	cb.successes = 0
}

// FailureRate reports the fraction of failed calls in the bounded history.
// Reporting only; state transitions are driven by the consecutive counters.
func (cb *CircuitBreaker) FailureRate() float64 {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if len(cb.history) == 0 {
		return 0.0
	}

	failed := 0
	for _, ok := range cb.history {
		if !ok {
			failed++
		}
	}

	return float64(failed) / float64(len(cb.history))
}

// Reset forces the breaker closed and clears counters and history.
// Operator escape hatch, not used in normal flow.
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.close()
	cb.history = cb.history[:0]
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

func (cb *CircuitBreaker) pushHistory(success bool) {
	if len(cb.history) >= cb.config.WindowSize {
		copy(cb.history, cb.history[1:])
		cb.history = cb.history[:len(cb.history)-1]
	}
	cb.history = append(cb.history, success)
}

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}
