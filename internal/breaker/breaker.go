// Package breaker implements the per-connection circuit breaker: a
// three-state failure gate with a lazy open->half_open transition that
// happens on state observation rather than on a background timer.
package breaker

import (
	"sync"
	"time"
)

// State is one of the three breaker states.
type State string

const (
	Closed   State = "closed"
	Open     State = "open"
	HalfOpen State = "half_open"
)

// Config tunes the breaker's thresholds and recovery window.
type Config struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	SuccessThreshold int
}

// DefaultConfig matches the values the poller uses unless overridden by
// configuration.
func DefaultConfig() Config {
	return Config{FailureThreshold: 5, RecoveryTimeout: 120 * time.Second, SuccessThreshold: 2}
}

// Breaker is a single connection's circuit breaker. It is not safe for
// concurrent use by more than one poll cycle at a time, but is guarded by
// its own mutex since both the poll cycle and an operator-triggered reset
// can touch it.
type Breaker struct {
	mu sync.Mutex

	cfg Config

	state         State
	failureCount  int
	successCount  int
	lastFailureAt time.Time
}

// New builds a Breaker in the closed state.
func New(cfg Config) *Breaker {
	return &Breaker{cfg: cfg, state: Closed}
}

// State returns the current state, lazily transitioning open->half_open
// if the recovery timeout has elapsed since the last recorded failure.
// This is the one place this type mutates state as a side effect of a
// read, matching the design's "observation is a read-only transition"
// rule from the worker's perspective (it reads state, it doesn't drive a
// timer).
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *Breaker) stateLocked() State {
	if b.state == Open && time.Since(b.lastFailureAt) >= b.cfg.RecoveryTimeout {
		b.state = HalfOpen
		b.successCount = 0
	}
	return b.state
}

// FailureCount returns the current consecutive-failure count.
func (b *Breaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}

// CheckAllowed reports whether a new operation may proceed: true in
// closed and half_open, false in open.
func (b *Breaker) CheckAllowed() bool {
	state := b.State()
	return state == Closed || state == HalfOpen
}

// RecordSuccess registers a successful operation.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.successCount++
		if b.successCount >= b.cfg.SuccessThreshold {
			b.state = Closed
			b.failureCount = 0
			b.successCount = 0
		}
	case Closed:
		b.failureCount = 0
	}
}

// RecordFailure registers a failed operation, stamping the failure time
// and opening the breaker if the threshold is reached from closed, or
// immediately from half_open.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureAt = time.Now()

	switch b.state {
	case HalfOpen:
		b.state = Open
	case Closed:
		if b.failureCount >= b.cfg.FailureThreshold {
			b.state = Open
		}
	}
}

// Reset forces the breaker back to closed with zero counts.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failureCount = 0
	b.successCount = 0
	b.lastFailureAt = time.Time{}
}

// LoadState rehydrates the breaker from persisted state. If loaded as
// open, the recovery timer is conservatively started from now, since the
// true last-failure instant wasn't persisted with sub-second precision.
func (b *Breaker) LoadState(state State, failureCount int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = state
	b.failureCount = failureCount
	if state == Open {
		b.lastFailureAt = time.Now()
	}
}
