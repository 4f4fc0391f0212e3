package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is the only failure surfaced across the breaker boundary.
// The underlying cause of a failed call is dropped; callers learn that the
// guarded call failed and is being counted, nothing more.
var ErrCircuitOpen = errors.New("circuit breaker: remote call failed")

type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Blocking calls until the cooldown elapses
	StateHalfOpen              // Testing with one call
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

// Operation is a single guarded remote call.
type Operation func() (any, error)

type Breaker struct {
	mutex            sync.Mutex
	state            State
	failures         int
	lastFailure      time.Time
	failureThreshold int
	resetTimeout     time.Duration
}

func New(threshold int, timeout time.Duration) *Breaker {
	return &Breaker{
		state:            StateClosed,
		failureThreshold: threshold,
		resetTimeout:     timeout,
	}
}

// Call runs op under the breaker's protection.
//
// While the breaker is OPEN and the cooldown has not elapsed, the call is
// skipped entirely and Call returns (nil, nil). Once the cooldown elapses
// the next call is attempted directly out of OPEN; the state is not flipped
// to HALF-OPEN first. A success observed in HALF-OPEN closes the breaker
// and resets the failure count. Every failure, whatever its kind, counts
// toward the threshold and is reported as ErrCircuitOpen.
func (b *Breaker) Call(op Operation) (any, error) {
	b.mutex.Lock()
	if b.state == StateOpen && time.Since(b.lastFailure) < b.resetTimeout {
		b.mutex.Unlock()
		return nil, nil
	}
	b.mutex.Unlock()

	result, err := op()

	b.mutex.Lock()
	defer b.mutex.Unlock()

	if err != nil {
		b.failures++
		if b.failures >= b.failureThreshold {
			b.open()
		}
		return nil, ErrCircuitOpen
	}

	if b.state == StateHalfOpen {
		b.close()
	}

	return result, nil
}

// Open trips the breaker and records the failure time the cooldown is
// measured from.
func (b *Breaker) Open() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.open()
}

// Close resets the breaker. This is the only way the failure count goes
// back to zero.
func (b *Breaker) Close() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.close()
}

// HalfOpen moves the breaker into the probing state. It is an explicit
// operator action; the breaker never enters HALF-OPEN on its own.
func (b *Breaker) HalfOpen() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.state = StateHalfOpen
}

func (b *Breaker) State() State {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.state
}

func (b *Breaker) Failures() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.failures
}

func (b *Breaker) open() {
	b.state = StateOpen
	b.lastFailure = time.Now()
}

func (b *Breaker) close() {
	b.state = StateClosed
	b.failures = 0
}
