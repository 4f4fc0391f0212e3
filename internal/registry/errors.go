package registry

import "errors"

var (
	// ErrDuplicateService is returned when registering a name that is
	// already present.
	ErrDuplicateService = errors.New("service already registered, please use another service name")

	// ErrUnknownService is returned when an operation references a name
	// that is not registered.
	ErrUnknownService = errors.New("service is not registered")

	// ErrUnhealthyService is returned by the strict lookup when the entry
	// is currently marked unhealthy.
	ErrUnhealthyService = errors.New("service is not healthy")

	// ErrRequestTrace is reserved for request-trace failures. The
	// simulated trace always succeeds today, but the contract stays for
	// callers that match on it.
	ErrRequestTrace = errors.New("service request trace failed")
)
