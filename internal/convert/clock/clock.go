// Package clock coordinates timestamps and cancellation across the
// concurrent track pipelines a Conversion Controller drives: it rebases
// per-track timestamps onto a shared output time base, applies trim
// windows, and tracks overall progress and cancellation state.
package clock

import (
	"sync"
	"sync/atomic"

	"github.com/mediabunnygo/mediabunny/internal/convert/plan"
	"github.com/mediabunnygo/mediabunny/internal/timebase"
)

// Coordinator is shared by every track pipeline in a single conversion
// job. All methods are safe for concurrent use.
type Coordinator struct {
	outputBase timebase.Rational
	trims      map[int]*plan.Window // per-track trim window, keyed by TrackID

	mu        sync.Mutex
	trackMax  map[int]timebase.Rational // max PTS seen per track, output base
	totalDur  timebase.Rational          // declared total duration, for progress fraction
	failed    atomic.Bool
	cancelled atomic.Bool
	failErr   error
}

// NewCoordinator creates a Coordinator whose output timestamps are
// expressed in outputBase units (e.g. 1/90000 for MPEG conventions, or the
// container's native time base). trims holds each trimmed track's window,
// keyed by TrackID; tracks absent from trims are not trimmed.
func NewCoordinator(outputBase timebase.Rational, totalDuration timebase.Rational, trims map[int]*plan.Window) *Coordinator {
	return &Coordinator{
		outputBase: outputBase,
		trims:      trims,
		trackMax:   make(map[int]timebase.Rational),
		totalDur:   totalDuration,
	}
}

// Rebase converts a track-local timestamp to the coordinator's output time
// base. If trackID has a trim window, its start is subtracted first so the
// first kept sample lands at output PTS 0, clamping negative results
// (timestamps before the trim start) to 0.
func (c *Coordinator) Rebase(trackID int, ts timebase.Rational) timebase.Rational {
	if trim := c.trims[trackID]; trim != nil {
		start := timebase.New(trim.StartTicks, ts.Den)
		ts = ts.Sub(start).Clamp0()
	}
	return ts.Rescale(c.outputBase.Den)
}

// ShouldKeep reports whether a packet/frame at the given track-local
// timestamp survives the track's trim window, if any.
func (c *Coordinator) ShouldKeep(trim *plan.Window, tsTicks int64) bool {
	if trim == nil {
		return true
	}
	return trim.Contains(tsTicks)
}

// ReportProgress records the furthest output-base PTS reached on trackID
// and returns the overall progress fraction in [0, 1].
func (c *Coordinator) ReportProgress(trackID int, outputPTS timebase.Rational) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.trackMax[trackID]; !ok || outputPTS.Cmp(cur) > 0 {
		c.trackMax[trackID] = outputPTS
	}

	if c.totalDur.IsZero() {
		return 0
	}
	var min timebase.Rational
	first := true
	for _, v := range c.trackMax {
		if first || v.Cmp(min) < 0 {
			min = v
			first = false
		}
	}
	if first {
		return 0
	}
	frac := min.Seconds() / c.totalDur.Seconds()
	if frac < 0 {
		return 0
	}
	if frac > 1 {
		return 1
	}
	return frac
}

// Cancel marks the job cancelled. Idempotent.
func (c *Coordinator) Cancel() { c.cancelled.Store(true) }

// IsCancelled reports whether Cancel has been called.
func (c *Coordinator) IsCancelled() bool { return c.cancelled.Load() }

// Fail records the first fatal error and marks the job failed. Subsequent
// calls are ignored so the first cause wins.
func (c *Coordinator) Fail(err error) {
	if c.failed.CompareAndSwap(false, true) {
		c.mu.Lock()
		c.failErr = err
		c.mu.Unlock()
	}
}

// IsFailed reports whether Fail has been called, and the recorded error.
func (c *Coordinator) IsFailed() (bool, error) {
	if !c.failed.Load() {
		return false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return true, c.failErr
}
