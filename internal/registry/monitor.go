package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// monitor holds the lifecycle of the background health-check loop.
type monitor struct {
	mutex  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// StartHealthChecks launches the background loop that probes every
// registered service on the configured interval. Starting an already
// running loop is a no-op. The loop stops when ctx is cancelled or when
// StopHealthChecks is called.
func (r *Registry) StartHealthChecks(ctx context.Context) {
	r.monitor.mutex.Lock()
	defer r.monitor.mutex.Unlock()

	if r.monitor.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.monitor.cancel = cancel
	r.monitor.wg.Add(1)
	go r.healthCheckLoop(loopCtx)

	r.logger.Info("Health checks started",
		slog.Duration("interval", r.interval))
}

// StopHealthChecks cancels the loop and waits for it to drain. Safe to
// call more than once and safe to call when the loop never started.
func (r *Registry) StopHealthChecks() {
	r.monitor.mutex.Lock()
	cancel := r.monitor.cancel
	r.monitor.cancel = nil
	r.monitor.mutex.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	r.monitor.wg.Wait()
}

func (r *Registry) healthCheckLoop(ctx context.Context) {
	defer r.monitor.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Health checks stopped")
			return

		case <-ticker.C:
			r.checkServices(ctx)
		}
	}
}

// checkServices probes every registered service once. The registered set
// is snapshotted up front so probes run without holding the registry lock.
func (r *Registry) checkServices(ctx context.Context) {
	r.mutex.RLock()
	services := make([]*Service, 0, len(r.order))
	for _, name := range r.order {
		services = append(services, r.services[name])
	}
	r.mutex.RUnlock()

	for _, svc := range services {
		r.checkService(ctx, svc)
	}
}

// checkService probes one service through the shared breaker and applies
// the outcome to the entry.
func (r *Registry) checkService(ctx context.Context, svc *Service) {
	result, err := r.breaker.Call(func() (any, error) {
		return r.prober.Probe(ctx, svc.URL())
	})

	if err != nil {
		svc.SetHealthy(false)
		r.tracker.RecordFailure()
		r.logger.Warn("Health check failed",
			slog.String("service", svc.Name()),
			slog.String("breaker", r.breaker.State().String()))
		return
	}

	if result == nil {
		// Breaker is open and still cooling down; this tick is skipped
		// for every service it guards.
		return
	}

	if healthy := result.(bool); healthy {
		if svc.Transition(true, Available) {
			r.logger.Info("Service is healthy",
				slog.String("service", svc.Name()))
		}
		return
	}

	if svc.Transition(false, Down) {
		r.logger.Warn("Service is unhealthy",
			slog.String("service", svc.Name()))
	}
}
