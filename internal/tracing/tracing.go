package tracing

import (
	"sync"
	"time"
)

// Tracker accumulates registry-wide request counters. Counters only ever
// grow; there is no reset.
type Tracker struct {
	mutex              sync.Mutex
	totalRequests      int64
	successfulRequests int64
	failureRequests    int64
	cumulativeDuration time.Duration
}

// Snapshot is a point-in-time copy of the tracker's counters.
type Snapshot struct {
	TotalRequests      int64         `json:"total_requests"`
	SuccessfulRequests int64         `json:"successful_requests"`
	FailureRequests    int64         `json:"failure_requests"`
	CumulativeDuration time.Duration `json:"cumulative_duration"`
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordSuccess accounts one completed request and its duration.
func (t *Tracker) RecordSuccess(duration time.Duration) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.totalRequests++
	t.successfulRequests++
	t.cumulativeDuration += duration
}

// RecordFailedRequest accounts one completed request that failed.
func (t *Tracker) RecordFailedRequest(duration time.Duration) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.totalRequests++
	t.failureRequests++
	t.cumulativeDuration += duration
}

// RecordFailure bumps the failure counter alone. Health-check failures and
// simulated outages are accounted this way: they are not traced requests,
// so the total stays untouched.
func (t *Tracker) RecordFailure() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.failureRequests++
}

func (t *Tracker) Snapshot() Snapshot {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return Snapshot{
		TotalRequests:      t.totalRequests,
		SuccessfulRequests: t.successfulRequests,
		FailureRequests:    t.failureRequests,
		CumulativeDuration: t.cumulativeDuration,
	}
}
