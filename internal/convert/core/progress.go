package core

import (
	"sync"

	"golang.org/x/time/rate"
)

// ProgressCallback receives the overall progress fraction, in [0, 1].
type ProgressCallback func(fraction float64)

// ProgressReporter throttles and delivers progress updates to a single
// registered callback; the controller's surface calls for exactly one
// on_progress callback per job (the HTTP layer fans that single callback
// out to SSE clients itself — see internal/http).
type ProgressReporter struct {
	mu       sync.Mutex
	callback ProgressCallback
	limiter  *rate.Limiter
	last     float64
}

// NewProgressReporter creates a reporter that forwards at most maxHz
// updates per second to callback, always forwarding 0 and 1 regardless of
// rate so observers see start and completion.
func NewProgressReporter(maxHz float64, callback ProgressCallback) *ProgressReporter {
	if maxHz <= 0 {
		maxHz = 10
	}
	return &ProgressReporter{
		callback: callback,
		limiter:  rate.NewLimiter(rate.Limit(maxHz), 1),
	}
}

// Report forwards fraction to the callback if the rate limiter allows it,
// or if fraction is a boundary value (0 or 1).
func (r *ProgressReporter) Report(fraction float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if fraction < r.last {
		fraction = r.last
	}
	r.last = fraction

	if r.callback == nil {
		return
	}
	if fraction == 0 || fraction >= 1 || r.limiter.Allow() {
		r.callback(fraction)
	}
}

// Last returns the most recently reported fraction.
func (r *ProgressReporter) Last() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
