// This file is part of https://github.com/racingmars/tn3270/
// Licensed under the MIT license. See LICENSE in the project root for
// license information.

package printer

import (
	"sync"
	"time"
)

// FailureCategory classifies a printer-session failure for the recovery
// envelope.
type FailureCategory int

const (
	CategoryConnection FailureCategory = iota
	CategoryProtocol
	CategoryTimeout
	CategoryData
	CategorySession
	CategoryResource
	CategoryUnknown
)

// Severity grades how serious a classified failure is.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// RecoveryStrategy is one action the envelope may take in response to a
// failure.
type RecoveryStrategy int

const (
	RecoveryRetry RecoveryStrategy = iota
	RecoveryReconnect
	RecoveryResetState
	RecoveryFailover
	RecoveryEscalate
	RecoveryIgnore
)

// recoveryPlan is the ordered list of strategies tried for each failure
// category. Every category ends in Escalate so a completely unhandled
// failure always surfaces.
var recoveryPlan = map[FailureCategory][]RecoveryStrategy{
	CategoryConnection: {RecoveryRetry, RecoveryReconnect, RecoveryEscalate},
	CategoryProtocol:   {RecoveryResetState, RecoveryReconnect, RecoveryEscalate},
	CategoryTimeout:    {RecoveryRetry, RecoveryEscalate},
	CategoryData:       {RecoveryIgnore, RecoveryResetState, RecoveryEscalate},
	CategorySession:    {RecoveryResetState, RecoveryFailover, RecoveryEscalate},
	CategoryResource:   {RecoveryFailover, RecoveryEscalate},
	CategoryUnknown:    {RecoveryEscalate},
}

// PlanFor returns the ordered recovery strategies for a category.
func PlanFor(cat FailureCategory) []RecoveryStrategy { return recoveryPlan[cat] }

// Failure is a single classified error passed through the recovery
// envelope.
type Failure struct {
	Category FailureCategory
	Severity Severity
	Err      error
}

// Backoff computes an exponential backoff delay for the nth (0-based)
// retry attempt, capped at max.
func Backoff(base time.Duration, attempt int, max time.Duration) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// BreakerState is the circuit breaker's current mode.
type BreakerState int

const (
	Closed BreakerState = iota
	Open
	HalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker guards a sensitive printer-session operation: too many
// consecutive failures opens the circuit; after a cooldown it allows a
// bounded number of trial calls; enough consecutive successes closes it
// again, and any failure during the trial reopens it.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	successThreshold int
	openDuration     time.Duration
	maxTrialCalls    int

	state          BreakerState
	failures       int
	successes      int
	trialCallsUsed int
	openedAt       time.Time
}

// NewCircuitBreaker returns a closed breaker that opens after
// failureThreshold consecutive failures, stays open for openDuration, and
// then allows up to maxTrialCalls half-open trial calls before requiring
// successThreshold consecutive successes to fully close.
func NewCircuitBreaker(failureThreshold, successThreshold, maxTrialCalls int, openDuration time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		maxTrialCalls:    maxTrialCalls,
		openDuration:     openDuration,
	}
}

// Allow reports whether a call should proceed right now, transitioning
// Open -> HalfOpen once the cooldown has elapsed.
func (c *CircuitBreaker) Allow(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case Closed:
		return true
	case Open:
		if now.Sub(c.openedAt) >= c.openDuration {
			c.state = HalfOpen
			c.trialCallsUsed = 0
			c.successes = 0
			return c.allowTrialLocked()
		}
		return false
	case HalfOpen:
		return c.allowTrialLocked()
	default:
		return false
	}
}

func (c *CircuitBreaker) allowTrialLocked() bool {
	if c.trialCallsUsed >= c.maxTrialCalls {
		return false
	}
	c.trialCallsUsed++
	return true
}

// RecordSuccess reports a successful call.
func (c *CircuitBreaker) RecordSuccess(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case Closed:
		c.failures = 0
	case HalfOpen:
		c.successes++
		if c.successes >= c.successThreshold {
			c.state = Closed
			c.failures = 0
			c.successes = 0
		}
	}
}

// RecordFailure reports a failed call.
func (c *CircuitBreaker) RecordFailure(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case Closed:
		c.failures++
		if c.failures >= c.failureThreshold {
			c.state = Open
			c.openedAt = now
		}
	case HalfOpen:
		c.state = Open
		c.openedAt = now
		c.successes = 0
	}
}

// State returns the breaker's current state.
func (c *CircuitBreaker) State() BreakerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
