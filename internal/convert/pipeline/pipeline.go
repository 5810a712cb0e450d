// Package pipeline drives a single track from demuxed packets to muxed
// output, either by copying packets verbatim or by decoding, transforming,
// and re-encoding them. Each track runs its own pipeline as a goroutine;
// internal/convert/core's controller fans them out with errgroup and joins
// them at Finalize.
package pipeline

import (
	"context"
	"fmt"

	"github.com/mediabunnygo/mediabunny/internal/convert/clock"
	"github.com/mediabunnygo/mediabunny/internal/convert/plan"
	"github.com/mediabunnygo/mediabunny/internal/demux"
	"github.com/mediabunnygo/mediabunny/internal/mux"
	"github.com/mediabunnygo/mediabunny/internal/stream"
	"github.com/mediabunnygo/mediabunny/internal/timebase"
)

// queueCapacity bounds the number of packets/frames a pipeline stage may
// hold before the producing stage blocks, giving back-pressure from the
// muxer all the way to the demuxer.
const queueCapacity = 4

// Pipeline drives one input track to completion.
type Pipeline struct {
	TrackID int
	Input   demux.Input
	Plan    plan.TrackPlan
	Sink    mux.Adapter
	Clock   *clock.Coordinator

	// OnProgress, if set, is called after every packet written with the
	// overall progress fraction the clock coordinator reports.
	OnProgress func(fraction float64)
}

// Run executes the pipeline until the track is exhausted, the plan calls
// for discarding it, cancellation is observed, or an error occurs.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.Plan.Action == plan.ActionDiscard {
		return nil
	}
	switch p.Plan.Action {
	case plan.ActionCopy:
		return p.runCopy(ctx)
	case plan.ActionTranscode:
		return fmt.Errorf("pipeline: transcode action requires a Transcoder, use transcode.Pipeline")
	default:
		return fmt.Errorf("pipeline: unknown action %q", p.Plan.Action)
	}
}

// runCopy streams packets from Input straight to Sink, applying the trim
// window and rebasing timestamps onto the shared output clock. Because
// copied packets are never decoded, the kept region cannot simply start at
// trim.Start: it must start at the keyframe at or before it, or the output
// elementary stream opens on an undecodable frame. Seek rounds the read
// position down to that keyframe; Clock.Rebase's clamp-at-0 then hides the
// sliver of extra source between the keyframe and the true trim start.
func (p *Pipeline) runCopy(ctx context.Context) error {
	if trim := p.Plan.Trim; trim != nil && trim.StartTicks > 0 {
		target := timebase.New(trim.StartTicks, trackTimeBase(p.Input, p.TrackID).Den)
		if _, err := p.Input.Seek(p.TrackID, target); err != nil {
			wrapped := fmt.Errorf("pipeline: seeking track %d to trim start: %w", p.TrackID, err)
			p.Clock.Fail(wrapped)
			return wrapped
		}
	}

	var lastDTS stream.Packet
	haveLast := false

	for {
		if p.Clock.IsCancelled() {
			return nil
		}
		if failed, err := p.Clock.IsFailed(); failed {
			return err
		}

		pkt, err := p.Input.NextPacket(p.TrackID)
		if err == demux.ErrEOF {
			return nil
		}
		if err != nil {
			wrapped := fmt.Errorf("pipeline: demuxing track %d: %w", p.TrackID, err)
			p.Clock.Fail(wrapped)
			return wrapped
		}

		if haveLast && pkt.DTS.Less(lastDTS.DTS) {
			err := fmt.Errorf("pipeline: non-monotonic DTS on track %d", p.TrackID)
			p.Clock.Fail(err)
			return err
		}
		lastDTS = pkt
		haveLast = true

		if trim := p.Plan.Trim; trim != nil && trim.EndTicks > 0 && pkt.PTS.Num >= trim.EndTicks {
			return nil
		}

		pkt.PTS = p.Clock.Rebase(p.TrackID, pkt.PTS)
		pkt.DTS = p.Clock.Rebase(p.TrackID, pkt.DTS)

		if err := p.Sink.WritePacket(pkt); err != nil {
			wrapped := fmt.Errorf("pipeline: writing track %d: %w", p.TrackID, err)
			p.Clock.Fail(wrapped)
			return wrapped
		}

		frac := p.Clock.ReportProgress(p.TrackID, pkt.PTS)
		if p.OnProgress != nil {
			p.OnProgress(frac)
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// trackTimeBase returns trackID's declared time base, falling back to
// whole units if the track isn't found (Seek still works; it just rounds
// less precisely).
func trackTimeBase(in demux.Input, trackID int) timebase.Rational {
	for _, t := range in.Tracks() {
		if t.ID == trackID && t.TimeBase.Den > 0 {
			return t.TimeBase
		}
	}
	return timebase.New(0, 1)
}
