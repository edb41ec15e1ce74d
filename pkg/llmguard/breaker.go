// Package llmguard implements a process-wide LLM circuit breaker: narrator
// calls fail fast while the breaker is open, falling back to the template
// path instead of invoking the LLM client. Grounded on
// github.com/herohde/morlock's pkg/engine/console
// (an atomic.Bool guarding concurrent access to shared engine state)
// extended here to a three-state breaker with time-based half-open probing.
package llmguard

import (
	"sync"
	"time"
)

// State is one of the three circuit-breaker states.
type State string

const (
	Closed   State = "closed"
	Open     State = "open"
	HalfOpen State = "half_open"
)

// Params are the breaker's tunable thresholds.
type Params struct {
	FailureThreshold int
	SuccessThreshold int
	ResetTimeout     time.Duration
}

// DefaultParams are the breaker's fixed defaults.
var DefaultParams = Params{
	FailureThreshold: 5,
	SuccessThreshold: 2,
	ResetTimeout:     30 * time.Second,
}

// Breaker is the process-wide LLM circuit breaker. Safe for concurrent use.
type Breaker struct {
	params Params

	mu              sync.Mutex
	state           State
	consecutiveFail int
	consecutiveOK   int
	openedAt        time.Time
}

// New creates a closed Breaker using the given parameters.
func New(params Params) *Breaker {
	return &Breaker{params: params, state: Closed}
}

// NewDefault creates a closed Breaker using the package's default thresholds.
func NewDefault() *Breaker { return New(DefaultParams) }

// Allow reports whether a call should proceed. A half-open probe is
// allowed through once the reset timeout has elapsed since the breaker
// opened; while genuinely open it fails fast.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case HalfOpen:
		return true
	case Open:
		if time.Since(b.openedAt) >= b.params.ResetTimeout {
			b.state = HalfOpen
			b.consecutiveOK = 0
			return true
		}
		return false
	default:
		return true
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// RecordSuccess reports a completed call's success, potentially closing a
// half-open breaker after success_threshold consecutive successes.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFail = 0
	switch b.state {
	case HalfOpen:
		b.consecutiveOK++
		if b.consecutiveOK >= b.params.SuccessThreshold {
			b.state = Closed
			b.consecutiveOK = 0
		}
	case Open:
		// a call snuck through (e.g. a racing probe); treat like half-open progress
		b.state = HalfOpen
		b.consecutiveOK = 1
	}
}

// RecordFailure reports a completed call's failure, tripping the breaker
// open once failure_threshold consecutive failures accumulate, or
// immediately re-opening a half-open probe's failure.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveOK = 0
	if b.state == HalfOpen {
		b.trip()
		return
	}

	b.consecutiveFail++
	if b.consecutiveFail >= b.params.FailureThreshold {
		b.trip()
	}
}

func (b *Breaker) trip() {
	b.state = Open
	b.openedAt = time.Now()
	b.consecutiveFail = 0
}
