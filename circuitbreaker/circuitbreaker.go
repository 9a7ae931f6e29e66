// Package circuitbreaker guards calls to an unreliable upstream. After a run of
// consecutive failures the circuit opens and calls fail fast until a cool-down
// elapses, then a limited number of trial calls decide whether it closes again.
package circuitbreaker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State represents the current state of the circuit breaker
type State int

const (
	// StateClosed means the circuit is operating normally
	StateClosed State = iota
	// StateOpen means the circuit is blocking all requests
	StateOpen
	// StateHalfOpen means the circuit is testing if it can close
	StateHalfOpen
)

// String returns the string representation of a State
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

// Config contains the configuration for a circuit breaker
type Config struct {
	Name             string        // Upstream name used in logs and callbacks
	FailureThreshold int           // Consecutive failures before opening
	Timeout          time.Duration // Time spent OPEN before trying HALF-OPEN
	HalfOpenRequests int           // Trial requests allowed in HALF-OPEN
	Logger           *slog.Logger  // Defaults to slog.Default()

	// OnStateChange is invoked after every transition, with the lock released.
	OnStateChange func(name string, from, to State)

	now func() time.Time
}

// CircuitBreaker defines the interface for circuit breaker functionality
type CircuitBreaker interface {
	// Execute runs the given function if the circuit allows it
	Execute(func() error) error
	// State returns the current state of the circuit breaker
	State() State
	// Reset resets the circuit breaker to CLOSED state
	Reset()
}

var (
	// ErrCircuitOpen is returned when the circuit breaker is in OPEN state
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrHalfOpenLimitReached is returned when too many requests are made in HALF-OPEN state
	ErrHalfOpenLimitReached = errors.New("circuit breaker half-open request limit reached")
)

type transition struct {
	from, to State
}

type breaker struct {
	config Config
	logger *slog.Logger
	mu     sync.Mutex

	state             State
	failureCount      int
	halfOpenRequests  int
	halfOpenSuccesses int
	openedAt          time.Time
}

// New creates a new circuit breaker with the given configuration
func New(cfg Config) CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HalfOpenRequests <= 0 {
		cfg.HalfOpenRequests = 1
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Name != "" {
		logger = logger.With("breaker", cfg.Name)
	}

	return &breaker{
		config: cfg,
		logger: logger,
		state:  StateClosed,
	}
}

// Execute runs the given function if the circuit allows it
func (b *breaker) Execute(fn func() error) error {
	b.mu.Lock()
	var changes []transition

	if b.state == StateOpen && b.config.now().Sub(b.openedAt) >= b.config.Timeout {
		changes = append(changes, b.transitionTo(StateHalfOpen))
	}

	switch b.state {
	case StateOpen:
		b.mu.Unlock()
		b.notify(changes)
		return ErrCircuitOpen

	case StateHalfOpen:
		if b.halfOpenRequests >= b.config.HalfOpenRequests {
			b.mu.Unlock()
			b.notify(changes)
			return ErrHalfOpenLimitReached
		}
		b.halfOpenRequests++
		b.mu.Unlock()
		b.notify(changes)

		err := fn()

		b.mu.Lock()
		changes = changes[:0]
		if err != nil {
			changes = append(changes, b.transitionTo(StateOpen))
		} else {
			b.halfOpenSuccesses++
			if b.halfOpenSuccesses >= b.config.HalfOpenRequests {
				changes = append(changes, b.transitionTo(StateClosed))
			}
		}
		b.mu.Unlock()
		b.notify(changes)
		return err

	case StateClosed:
		b.mu.Unlock()
		b.notify(changes)

		err := fn()

		b.mu.Lock()
		changes = changes[:0]
		if err != nil {
			b.failureCount++
			if b.failureCount >= b.config.FailureThreshold {
				changes = append(changes, b.transitionTo(StateOpen))
			}
		} else {
			b.failureCount = 0
		}
		b.mu.Unlock()
		b.notify(changes)
		return err

	default:
		state := b.state
		b.mu.Unlock()
		return fmt.Errorf("unknown circuit breaker state: %d", state)
	}
}

// State returns the current state of the circuit breaker
func (b *breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset resets the circuit breaker to CLOSED state
func (b *breaker) Reset() {
	b.mu.Lock()
	change := b.transitionTo(StateClosed)
	b.mu.Unlock()
	b.notify([]transition{change})
}

// transitionTo changes the circuit breaker state and returns the transition.
// Must be called with lock held
func (b *breaker) transitionTo(newState State) transition {
	t := transition{from: b.state, to: newState}
	b.state = newState

	switch newState {
	case StateClosed:
		b.failureCount = 0
		b.halfOpenRequests = 0
		b.halfOpenSuccesses = 0
		b.openedAt = time.Time{}

	case StateOpen:
		b.openedAt = b.config.now()
		b.halfOpenRequests = 0
		b.halfOpenSuccesses = 0

	case StateHalfOpen:
		b.halfOpenRequests = 0
		b.halfOpenSuccesses = 0
	}

	return t
}

func (b *breaker) notify(changes []transition) {
	for _, c := range changes {
		if c.from == c.to {
			continue
		}
		b.logger.Warn("circuit breaker state changed",
			"from", c.from.String(),
			"to", c.to.String(),
		)
		if b.config.OnStateChange != nil {
			b.config.OnStateChange(b.config.Name, c.from, c.to)
		}
	}
}
