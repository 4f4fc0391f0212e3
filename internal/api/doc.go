// Package api exposes the registry over HTTP: service information,
// registration and deregistration, manual failover assignment, request
// tracing and the shared breaker's status.
package api
