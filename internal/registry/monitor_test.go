package registry_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sodrooome/service-registry/internal/circuitbreaker"
	"github.com/sodrooome/service-registry/internal/probe"
	"github.com/sodrooome/service-registry/internal/registry"
)

var _ = Describe("Health checks", func() {
	newRegistry := func(p probe.Prober, opts ...registry.Option) *registry.Registry {
		opts = append([]registry.Option{
			registry.WithHealthCheckInterval(10 * time.Millisecond),
			registry.WithBreaker(3, time.Minute),
		}, opts...)
		return registry.New(p, discardLogger(), opts...)
	}

	It("should promote a starting entry on a successful probe", func() {
		reg := newRegistry(healthyProber())
		Expect(reg.Register("posts", "http://svc/posts")).To(Succeed())

		reg.StartHealthChecks(context.Background())
		defer reg.StopHealthChecks()

		Eventually(func() string {
			return reg.ServicesInformation()["posts"].Availability
		}).Should(Equal("AVAILABLE"))
	})

	It("should take an entry down on an unhealthy status signal", func() {
		healthy := atomic.Bool{}
		healthy.Store(true)
		reg := newRegistry(probe.Func(func(ctx context.Context, url string) (bool, error) {
			return healthy.Load(), nil
		}))
		Expect(reg.Register("posts", "http://svc/posts")).To(Succeed())

		reg.StartHealthChecks(context.Background())
		defer reg.StopHealthChecks()

		Eventually(func() string {
			return reg.ServicesInformation()["posts"].Availability
		}).Should(Equal("AVAILABLE"))

		healthy.Store(false)

		Eventually(func() string {
			return reg.ServicesInformation()["posts"].Availability
		}).Should(Equal("DOWN"))
	})

	It("should mark the entry unhealthy and count probe failures", func() {
		reg := newRegistry(probe.Func(func(ctx context.Context, url string) (bool, error) {
			return false, errors.New("connection refused")
		}))
		Expect(reg.Register("posts", "http://svc/posts")).To(Succeed())

		reg.StartHealthChecks(context.Background())
		defer reg.StopHealthChecks()

		Eventually(func() int64 {
			return reg.TracingSnapshot().FailureRequests
		}).Should(BeNumerically(">=", 1))

		_, err := reg.GetService("posts")
		Expect(err).To(MatchError(registry.ErrUnhealthyService))
	})

	It("should trip the shared breaker after consecutive probe failures", func() {
		reg := newRegistry(probe.Func(func(ctx context.Context, url string) (bool, error) {
			return false, errors.New("connection refused")
		}))
		Expect(reg.Register("posts", "http://svc/posts")).To(Succeed())

		reg.StartHealthChecks(context.Background())
		defer reg.StopHealthChecks()

		Eventually(reg.BreakerState).Should(Equal(circuitbreaker.StateOpen))
		Expect(reg.BreakerFailures()).To(Equal(3))
	})

	It("should skip every probe while the breaker cools down", func() {
		var probes atomic.Int64
		reg := newRegistry(probe.Func(func(ctx context.Context, url string) (bool, error) {
			probes.Add(1)
			return false, errors.New("connection refused")
		}))
		Expect(reg.Register("posts", "http://svc/posts")).To(Succeed())
		Expect(reg.Register("comments", "http://svc/comments")).To(Succeed())

		reg.StartHealthChecks(context.Background())
		defer reg.StopHealthChecks()

		Eventually(reg.BreakerState).Should(Equal(circuitbreaker.StateOpen))

		attempted := probes.Load()
		Consistently(probes.Load, 100*time.Millisecond, 10*time.Millisecond).Should(Equal(attempted))
		Expect(reg.BreakerFailures()).To(Equal(3))
	})

	It("should share one failure account across all services", func() {
		reg := newRegistry(probe.Func(func(ctx context.Context, url string) (bool, error) {
			if url == "http://svc/bad" {
				return false, errors.New("connection refused")
			}
			return true, nil
		}), registry.WithBreaker(2, time.Minute))
		Expect(reg.Register("bad", "http://svc/bad")).To(Succeed())
		Expect(reg.Register("good", "http://svc/good")).To(Succeed())

		reg.StartHealthChecks(context.Background())
		defer reg.StopHealthChecks()

		// The bad service alone trips the breaker, pausing probes for the
		// good one as well.
		Eventually(reg.BreakerState).Should(Equal(circuitbreaker.StateOpen))
	})

	It("should stop deterministically", func() {
		var probes atomic.Int64
		reg := newRegistry(probe.Func(func(ctx context.Context, url string) (bool, error) {
			probes.Add(1)
			return true, nil
		}))
		Expect(reg.Register("posts", "http://svc/posts")).To(Succeed())

		reg.StartHealthChecks(context.Background())
		Eventually(probes.Load).Should(BeNumerically(">=", 1))

		reg.StopHealthChecks()
		stopped := probes.Load()

		Consistently(probes.Load, 100*time.Millisecond, 10*time.Millisecond).Should(Equal(stopped))
	})

	It("should stop when the caller's context is cancelled", func() {
		var probes atomic.Int64
		reg := newRegistry(probe.Func(func(ctx context.Context, url string) (bool, error) {
			probes.Add(1)
			return true, nil
		}))
		Expect(reg.Register("posts", "http://svc/posts")).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		reg.StartHealthChecks(ctx)
		defer reg.StopHealthChecks()

		Eventually(probes.Load).Should(BeNumerically(">=", 1))
		cancel()

		Eventually(func() int64 {
			current := probes.Load()
			time.Sleep(50 * time.Millisecond)
			return probes.Load() - current
		}).Should(BeZero())
	})

	It("should ignore a second start while running", func() {
		reg := newRegistry(healthyProber())
		Expect(reg.Register("posts", "http://svc/posts")).To(Succeed())

		reg.StartHealthChecks(context.Background())
		reg.StartHealthChecks(context.Background())
		reg.StopHealthChecks()
		reg.StopHealthChecks()
	})
})
