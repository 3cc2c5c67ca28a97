package circuitbreaker

import (
	"errors"
	"learntube-api-go/logcolors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// State represents the circuit breaker state
type State int

const (
	StateClosed   State = iota // extraction allowed
	StateOpen                  // extraction blocked until cooldown passes
	StateHalfOpen              // one trial extraction in flight
)

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

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// Hooks are invoked on state transitions. They run outside the breaker lock.
type Hooks struct {
	OnOpen            func(name string, failures int, cooldown time.Duration)
	OnRecover         func(name string)
	OnHighFailureRate func(name string, failures, threshold int)
}

// CircuitBreaker stops calling a failing upstream (yt-dlp) for a cooldown period
// after a run of consecutive failures.
type CircuitBreaker struct {
	name            string
	state           State
	failures        int
	threshold       int
	cooldown        time.Duration
	halfOpenTimeout time.Duration
	lastFailureTime time.Time
	halfOpenStart   time.Time
	hooks           Hooks
	mu              sync.RWMutex
}

// Config holds circuit breaker configuration
type Config struct {
	Name            string        // Name for logging
	Threshold       int           // Number of consecutive failures before opening
	Cooldown        time.Duration // How long to stay open before probing
	HalfOpenTimeout time.Duration // Max time a trial may take before reverting to open
	Hooks           Hooks
}

// New creates a new circuit breaker
func New(cfg Config) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	if cfg.HalfOpenTimeout <= 0 {
		cfg.HalfOpenTimeout = 45 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	return &CircuitBreaker{
		name:            cfg.Name,
		state:           StateClosed,
		threshold:       cfg.Threshold,
		cooldown:        cfg.Cooldown,
		halfOpenTimeout: cfg.HalfOpenTimeout,
		hooks:           cfg.Hooks,
	}
}

// Name returns the breaker name
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Allow reports whether a call may proceed
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true

	case StateOpen:
		if time.Since(cb.lastFailureTime) >= cb.cooldown {
			cb.state = StateHalfOpen
			cb.halfOpenStart = time.Now()
			log.Infof("%s Cooldown passed, transitioning to HALF-OPEN", logcolors.CircuitBreakerPrefix(cb.name))
			return true
		}
		return false

	case StateHalfOpen:
		if time.Since(cb.halfOpenStart) >= cb.halfOpenTimeout {
			cb.state = StateOpen
			cb.lastFailureTime = time.Now()
			log.Warnf("%s Trial timed out, transitioning back to OPEN", logcolors.CircuitBreakerPrefix(cb.name))
			return false
		}
		// A trial is already running
		return false

	default:
		return true
	}
}

// RecordSuccess records a successful call
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	recovered := false
	switch cb.state {
	case StateHalfOpen:
		cb.state = StateClosed
		cb.failures = 0
		recovered = true
		log.Infof("%s Trial succeeded, transitioning to CLOSED", logcolors.CircuitBreakerPrefix(cb.name))
	case StateClosed:
		cb.failures = 0
	}
	hooks := cb.hooks
	cb.mu.Unlock()

	if recovered && hooks.OnRecover != nil {
		hooks.OnRecover(cb.name)
	}
}

// RecordFailure records a failed call
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	cb.failures++
	cb.lastFailureTime = time.Now()
	failures := cb.failures
	opened, warn := false, false

	switch cb.state {
	case StateHalfOpen:
		cb.state = StateOpen
		opened = true
		log.Warnf("%s Trial failed, transitioning back to OPEN", logcolors.CircuitBreakerPrefix(cb.name))
	case StateClosed:
		// warn once at 60% of the threshold
		warningThreshold := (cb.threshold * 3) / 5
		if warningThreshold < 2 {
			warningThreshold = 2
		}
		if failures == warningThreshold && failures < cb.threshold {
			warn = true
		}
		if failures >= cb.threshold {
			cb.state = StateOpen
			opened = true
			log.Warnf("%s Threshold reached (%d failures), transitioning to OPEN (cooldown: %v)",
				logcolors.CircuitBreakerPrefix(cb.name), failures, cb.cooldown)
		}
	}
	hooks, threshold, cooldown := cb.hooks, cb.threshold, cb.cooldown
	cb.mu.Unlock()

	if warn && hooks.OnHighFailureRate != nil {
		hooks.OnHighFailureRate(cb.name, failures, threshold)
	}
	if opened && hooks.OnOpen != nil {
		hooks.OnOpen(cb.name, failures, cooldown)
	}
}

// Execute runs fn when the breaker allows it and records the outcome.
// Errors for which ignore returns true count as neither success nor failure.
func (cb *CircuitBreaker) Execute(fn func() error, ignore func(error) bool) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}
	err := fn()
	switch {
	case err == nil:
		cb.RecordSuccess()
	case ignore != nil && ignore(err):
		cb.release()
	default:
		cb.RecordFailure()
	}
	return err
}

// release ends a half-open trial whose outcome says nothing about upstream health
func (cb *CircuitBreaker) release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateHalfOpen {
		cb.state = StateOpen
		cb.lastFailureTime = time.Now().Add(-cb.cooldown)
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Failures returns the current consecutive failure count
func (cb *CircuitBreaker) Failures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failures
}

// Stats returns circuit breaker statistics
func (cb *CircuitBreaker) Stats() (state State, failures int, lastFailure time.Time) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state, cb.failures, cb.lastFailureTime
}

// Reset manually resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.lastFailureTime = time.Time{}
	cb.halfOpenStart = time.Time{}
	log.Infof("%s Manually reset to CLOSED", logcolors.CircuitBreakerPrefix(cb.name))
}

// IsOpen returns true if the circuit is open
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state == StateOpen
}

// IsHalfOpen returns true if a trial is in flight
func (cb *CircuitBreaker) IsHalfOpen() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state == StateHalfOpen
}

// TimeUntilRetry returns the remaining cooldown (OPEN) or trial window (HALF-OPEN).
// Returns 0 when closed.
func (cb *CircuitBreaker) TimeUntilRetry() time.Duration {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	var remaining time.Duration
	switch cb.state {
	case StateOpen:
		remaining = cb.cooldown - time.Since(cb.lastFailureTime)
	case StateHalfOpen:
		remaining = cb.halfOpenTimeout - time.Since(cb.halfOpenStart)
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Threshold returns the configured failure threshold
func (cb *CircuitBreaker) Threshold() int {
	return cb.threshold
}
