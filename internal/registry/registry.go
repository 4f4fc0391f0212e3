package registry

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sodrooome/service-registry/internal/circuitbreaker"
	"github.com/sodrooome/service-registry/internal/probe"
	"github.com/sodrooome/service-registry/internal/tracing"
)

const (
	DefaultHealthCheckInterval = 5 * time.Second
	DefaultBreakerThreshold    = 3
	DefaultBreakerTimeout      = 5 * time.Second
	DefaultTraceLatency        = 500 * time.Millisecond
)

// Info is the externally visible shape of one service entry.
type Info struct {
	URL             string `json:"url"`
	Assigned        bool   `json:"assigned"`
	AssignedService string `json:"assigned_service,omitempty"`
	Availability    string `json:"availability"`
}

// Registry owns the name-to-service mapping, the health-check loop, and
// the failover resolution rules. One breaker instance guards the whole
// health-check path: consecutive probe failures across all services share
// a single failure account and can trip it together.
type Registry struct {
	mutex    sync.RWMutex
	services map[string]*Service
	order    []string

	breaker *circuitbreaker.Breaker
	prober  probe.Prober
	tracker *tracing.Tracker
	logger  *slog.Logger

	interval     time.Duration
	traceLatency time.Duration

	monitor monitor
}

// Option overrides one of the registry's construction defaults.
type Option func(*options)

type options struct {
	interval         time.Duration
	breakerThreshold int
	breakerTimeout   time.Duration
	traceLatency     time.Duration
}

// WithHealthCheckInterval overrides how often the health-check loop ticks.
func WithHealthCheckInterval(interval time.Duration) Option {
	return func(o *options) {
		o.interval = interval
	}
}

// WithBreaker overrides the shared breaker's failure threshold and
// cooldown timeout.
func WithBreaker(threshold int, timeout time.Duration) Option {
	return func(o *options) {
		o.breakerThreshold = threshold
		o.breakerTimeout = timeout
	}
}

// WithTraceLatency overrides the simulated latency of TraceServiceRequest.
func WithTraceLatency(latency time.Duration) Option {
	return func(o *options) {
		o.traceLatency = latency
	}
}

func New(prober probe.Prober, logger *slog.Logger, opts ...Option) *Registry {
	o := options{
		interval:         DefaultHealthCheckInterval,
		breakerThreshold: DefaultBreakerThreshold,
		breakerTimeout:   DefaultBreakerTimeout,
		traceLatency:     DefaultTraceLatency,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Registry{
		services:     make(map[string]*Service),
		breaker:      circuitbreaker.New(o.breakerThreshold, o.breakerTimeout),
		prober:       prober,
		tracker:      tracing.NewTracker(),
		logger:       logger,
		interval:     o.interval,
		traceLatency: o.traceLatency,
	}
}

// Register adds a new service entry. The entry starts healthy, STARTING
// and unassigned. A duplicate name fails without touching the existing
// entry.
func (r *Registry) Register(name, url string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.services[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateService, name)
	}

	r.services[name] = newService(name, url)
	r.order = append(r.order, name)

	r.logger.Info("Registered service",
		slog.String("service", name),
		slog.String("url", url))
	return nil
}

// GetService is the strict lookup: the entry must be registered and
// currently healthy. No failover is applied.
func (r *Registry) GetService(name string) (string, error) {
	r.mutex.RLock()
	svc, exists := r.services[name]
	r.mutex.RUnlock()

	if !exists {
		return "", fmt.Errorf("%w: %s", ErrUnknownService, name)
	}
	if !svc.IsHealthy() {
		return "", fmt.Errorf("%w: %s", ErrUnhealthyService, name)
	}

	return svc.URL(), nil
}

// GetAvailableService is the failover-aware lookup. It never errors;
// absence of a usable endpoint is reported as ok=false.
//
// Resolution order: a manual assignment wins (and resolves to absence if
// the target was deregistered in the meantime), then the entry's own URL
// if it is healthy, then the first registered entry that is AVAILABLE.
func (r *Registry) GetAvailableService(name string) (url string, ok bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if svc, exists := r.services[name]; exists {
		if target, assigned := svc.Assignment(); assigned {
			return r.lookupURL(target)
		}
		if svc.IsHealthy() {
			return svc.URL(), true
		}
	}

	for _, candidate := range r.order {
		if svc := r.services[candidate]; svc.Availability() == Available {
			return svc.URL(), true
		}
	}

	return "", false
}

// lookupURL resolves a name to its URL. Callers must hold at least the
// read lock.
func (r *Registry) lookupURL(name string) (string, bool) {
	if svc, exists := r.services[name]; exists {
		return svc.URL(), true
	}
	return "", false
}

// ListServices returns all registered names in registration order.
func (r *Registry) ListServices() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// SimulateUnhealthy forces an AVAILABLE entry down, counting the outage as
// a failure. An entry that is already unhealthy or not yet AVAILABLE is
// left untouched.
func (r *Registry) SimulateUnhealthy(name string) error {
	r.mutex.RLock()
	svc, exists := r.services[name]
	r.mutex.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownService, name)
	}

	if svc.markDownIfAvailable() {
		r.tracker.RecordFailure()
		r.logger.Warn("Service marked as unhealthy",
			slog.String("service", name))
	}

	return nil
}

// AssignService redirects lookups for name to target. The assignment only
// takes effect when both entries are registered and the target is healthy;
// otherwise nothing changes and only a failure event is emitted.
func (r *Registry) AssignService(name, target string) {
	r.mutex.RLock()
	svc, exists := r.services[name]
	targetSvc, targetExists := r.services[target]
	r.mutex.RUnlock()

	if !exists || !targetExists || !targetSvc.IsHealthy() {
		r.logger.Warn("Failed to assign service",
			slog.String("service", name),
			slog.String("target", target))
		return
	}

	svc.Assign(target)
	r.logger.Info("Assigned service to an available service",
		slog.String("service", name),
		slog.String("target", target))
}

// GracefulShutdown marks the entry DOWN and then removes it entirely.
func (r *Registry) GracefulShutdown(name string) error {
	r.mutex.RLock()
	svc, exists := r.services[name]
	r.mutex.RUnlock()

	if exists {
		svc.Transition(false, Down)
		r.logger.Info("Shutting down service",
			slog.String("service", name))
	}

	return r.Deregister(name)
}

// Deregister removes the entry. Assignments pointing at the removed name
// are left in place; they resolve to absence from now on.
func (r *Registry) Deregister(name string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.services[name]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownService, name)
	}

	delete(r.services, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.logger.Info("Deregistered service", slog.String("service", name))
	return nil
}

// DeregisterAll removes every registered entry in listing order.
func (r *Registry) DeregisterAll() {
	for _, name := range r.ListServices() {
		if err := r.Deregister(name); err != nil {
			continue
		}
	}
	r.logger.Info("Deregistered all services")
}

// ServicesInformation returns a snapshot of every entry's externally
// visible state.
func (r *Registry) ServicesInformation() map[string]Info {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	info := make(map[string]Info, len(r.services))
	for name, svc := range r.services {
		target, assigned := svc.Assignment()
		info[name] = Info{
			URL:             svc.URL(),
			Assigned:        assigned,
			AssignedService: target,
			Availability:    svc.Availability().String(),
		}
	}

	return info
}

// TraceServiceRequest simulates one unit of work against the named service
// and accounts it. The simulated request blocks for the configured latency
// and always succeeds; ErrRequestTrace is reserved for when it can fail.
func (r *Registry) TraceServiceRequest(name string) error {
	r.mutex.RLock()
	_, exists := r.services[name]
	r.mutex.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownService, name)
	}

	start := time.Now()
	time.Sleep(r.traceLatency)
	r.tracker.RecordSuccess(time.Since(start))

	return nil
}

// TracingSnapshot returns the current request counters.
func (r *Registry) TracingSnapshot() tracing.Snapshot {
	return r.tracker.Snapshot()
}

// BreakerState exposes the shared health-check breaker's state.
func (r *Registry) BreakerState() circuitbreaker.State {
	return r.breaker.State()
}

// BreakerFailures exposes the shared health-check breaker's failure count.
func (r *Registry) BreakerFailures() int {
	return r.breaker.Failures()
}
