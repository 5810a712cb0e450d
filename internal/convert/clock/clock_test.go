package clock

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mediabunnygo/mediabunny/internal/convert/plan"
	"github.com/mediabunnygo/mediabunny/internal/timebase"
)

func TestRebase(t *testing.T) {
	c := NewCoordinator(timebase.New(0, 90000), timebase.New(10, 1), nil)
	got := c.Rebase(1, timebase.New(1, 3))
	assert.Equal(t, int64(90000), got.Den)
	assert.Equal(t, int64(30000), got.Num)
}

func TestRebaseSubtractsTrimStart(t *testing.T) {
	trims := map[int]*plan.Window{1: {StartTicks: 3, EndTicks: 0}}
	c := NewCoordinator(timebase.New(0, 90000), timebase.New(10, 1), trims)

	// Source PTS 5 at track base 1/1, trim start 3 -> output PTS 2, rescaled.
	got := c.Rebase(1, timebase.New(5, 1))
	assert.Equal(t, int64(90000), got.Den)
	assert.Equal(t, int64(2*90000), got.Num)

	// The first kept sample lands exactly at output PTS 0.
	first := c.Rebase(1, timebase.New(3, 1))
	assert.Equal(t, int64(0), first.Num)

	// A timestamp before the trim start clamps to 0 rather than going negative.
	before := c.Rebase(1, timebase.New(1, 1))
	assert.Equal(t, int64(0), before.Num)

	// An untrimmed track (not present in trims) is unaffected.
	untrimmed := c.Rebase(2, timebase.New(5, 1))
	assert.Equal(t, int64(5*90000), untrimmed.Num)
}

func TestShouldKeep(t *testing.T) {
	c := NewCoordinator(timebase.New(0, 1), timebase.New(1, 1), nil)
	assert.True(t, c.ShouldKeep(nil, 500))

	w := &plan.Window{StartTicks: 100, EndTicks: 200}
	assert.False(t, c.ShouldKeep(w, 50))
	assert.True(t, c.ShouldKeep(w, 150))
}

func TestReportProgressUsesSlowestTrack(t *testing.T) {
	c := NewCoordinator(timebase.New(0, 1), timebase.New(10, 1), nil)
	frac := c.ReportProgress(1, timebase.New(5, 1))
	assert.InDelta(t, 0.5, frac, 1e-9)

	// Track 2 lags behind track 1; overall progress tracks the slowest.
	frac = c.ReportProgress(2, timebase.New(2, 1))
	assert.InDelta(t, 0.2, frac, 1e-9)

	frac = c.ReportProgress(1, timebase.New(10, 1))
	assert.InDelta(t, 0.2, frac, 1e-9)
}

func TestCancelAndFail(t *testing.T) {
	c := NewCoordinator(timebase.New(0, 1), timebase.New(1, 1), nil)
	assert.False(t, c.IsCancelled())
	c.Cancel()
	assert.True(t, c.IsCancelled())

	failed, err := c.IsFailed()
	assert.False(t, failed)
	assert.NoError(t, err)

	boom := errors.New("boom")
	c.Fail(boom)
	c.Fail(errors.New("second, ignored"))
	failed, err = c.IsFailed()
	assert.True(t, failed)
	assert.Equal(t, boom, err)
}
