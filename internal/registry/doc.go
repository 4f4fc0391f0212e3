// Package registry implements a client-side service registry: it tracks
// named backend services, probes their health on an interval through a
// shared circuit breaker, and resolves service names to reachable
// endpoints with optional manual failover assignments.
//
// A single breaker guards the whole health-check path. Probe failures on
// one service count against the same failure account as every other
// service's, so a run of failures anywhere can pause health checking for
// all of them until the cooldown elapses.
package registry
