// Package circuitbreaker guards a remote call with CLOSED/OPEN/HALF-OPEN
// semantics so a failing service stops being hammered.
//
//   - CLOSED: normal operation, calls pass through
//   - OPEN: calls are skipped until the cooldown elapses
//   - HALF-OPEN: probing; one success closes the breaker again
//
// Usage:
//
//	cb := circuitbreaker.New(3, 5*time.Second)
//	result, err := cb.Call(func() (any, error) {
//	    return client.Get(url)
//	})
//	if result == nil && err == nil {
//	    // Breaker is open, the call was skipped.
//	}
//
// The breaker never enters HALF-OPEN on its own: once the cooldown elapses
// it attempts the next call directly out of OPEN, and HalfOpen() exists as
// an explicit operator action.
package circuitbreaker
