package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mediabunnygo/mediabunny/internal/codecbackend"
	"github.com/mediabunnygo/mediabunny/internal/convert/clock"
	"github.com/mediabunnygo/mediabunny/internal/convert/plan"
	"github.com/mediabunnygo/mediabunny/internal/convert/transform"
	"github.com/mediabunnygo/mediabunny/internal/convert/transform/resample"
	"github.com/mediabunnygo/mediabunny/internal/demux"
	"github.com/mediabunnygo/mediabunny/internal/mux"
	"github.com/mediabunnygo/mediabunny/internal/stream"
)

// TranscodePipeline drives one track through decode -> transform -> encode
// -> mux, connecting each stage with a bounded channel so a slow
// downstream stage back-pressures the demuxer instead of buffering
// unboundedly.
type TranscodePipeline struct {
	TrackID int
	Input   demux.Input
	Plan    plan.TrackPlan
	Sink    mux.Adapter
	Clock   *clock.Coordinator
	Decoder codecbackend.Decoder
	Encoder codecbackend.Encoder

	Resizer   *transform.VideoResizer
	Resampler *resample.Resampler
	Remixer   *resample.Remixer

	// OnProgress, if set, is called after every packet written with the
	// overall progress fraction the clock coordinator reports.
	OnProgress func(fraction float64)
}

// Run executes the decode/transform/encode/mux stages concurrently,
// joined by an errgroup so the first stage failure cancels the others.
func (p *TranscodePipeline) Run(ctx context.Context) error {
	frames := make(chan any, queueCapacity)
	transformed := make(chan any, queueCapacity)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return p.decodeStage(ctx, frames) })
	g.Go(func() error { return p.transformStage(ctx, frames, transformed) })
	g.Go(func() error { return p.encodeStage(ctx, transformed) })

	if err := g.Wait(); err != nil {
		p.Clock.Fail(err)
		return err
	}
	return nil
}

func (p *TranscodePipeline) decodeStage(ctx context.Context, out chan<- any) error {
	defer close(out)

	var lastDTS stream.Packet
	haveLast := false

	for {
		if p.Clock.IsCancelled() {
			return nil
		}

		pkt, err := p.Input.NextPacket(p.TrackID)
		if err == demux.ErrEOF {
			return p.flushDecoder(ctx, out)
		}
		if err != nil {
			return fmt.Errorf("pipeline: demuxing track %d: %w", p.TrackID, err)
		}

		if haveLast && pkt.DTS.Less(lastDTS.DTS) {
			return fmt.Errorf("pipeline: non-monotonic DTS on track %d", p.TrackID)
		}
		lastDTS = pkt
		haveLast = true

		if !p.Clock.ShouldKeep(p.Plan.Trim, pkt.PTS.Num) {
			continue
		}

		frame, err := p.Decoder.Decode(ctx, pkt)
		if err != nil {
			return fmt.Errorf("pipeline: decoding track %d: %w", p.TrackID, err)
		}
		if frame == nil {
			continue
		}

		select {
		case out <- frame:
		case <-ctx.Done():
			return nil
		}
	}
}

// flushDecoder drains any frames the decoder buffered for reordering or
// lookahead once the packet stream is exhausted, forwarding each into out
// before decodeStage closes it.
func (p *TranscodePipeline) flushDecoder(ctx context.Context, out chan<- any) error {
	frames, err := p.Decoder.Flush(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: flushing decoder for track %d: %w", p.TrackID, err)
	}
	for _, frame := range frames {
		select {
		case out <- frame:
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

func (p *TranscodePipeline) transformStage(ctx context.Context, in <-chan any, out chan<- any) error {
	defer close(out)

	for {
		select {
		case frame, ok := <-in:
			if !ok {
				return nil
			}
			xformed, dropped, err := p.applyTransform(frame)
			if err != nil {
				return fmt.Errorf("pipeline: transforming track %d: %w", p.TrackID, err)
			}
			if dropped {
				continue
			}
			select {
			case out <- xformed:
			case <-ctx.Done():
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// applyTransform runs the configured video resize or audio
// resample/remix for one decoded frame. dropped is true only when a
// future transform stage intentionally discards a frame (none currently
// do, but the signature keeps that option open for the transform stage's
// contract with the encode stage per invariant 3 in the project's
// testable-properties list).
func (p *TranscodePipeline) applyTransform(frame any) (any, bool, error) {
	switch f := frame.(type) {
	case *stream.VideoFrame:
		if p.Resizer == nil {
			return f, false, nil
		}
		out, err := p.Resizer.Resize(f)
		return out, false, err
	case *stream.AudioFrame:
		cur := f
		if p.Resampler != nil {
			out, err := p.Resampler.Process(cur)
			if err != nil {
				return nil, false, err
			}
			cur = out
		}
		if p.Remixer != nil {
			out, err := p.Remixer.Remix(cur)
			if err != nil {
				return nil, false, err
			}
			cur = out
		}
		return cur, false, nil
	default:
		return nil, false, fmt.Errorf("pipeline: unknown frame type %T", frame)
	}
}

func (p *TranscodePipeline) encodeStage(ctx context.Context, in <-chan any) error {
	for {
		select {
		case frame, ok := <-in:
			if !ok {
				return p.flushEncoder()
			}
			pkt, err := p.Encoder.Encode(ctx, frame)
			if err != nil {
				return fmt.Errorf("pipeline: encoding track %d: %w", p.TrackID, err)
			}
			if len(pkt.Data) == 0 {
				continue
			}
			if err := p.writePacket(pkt); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (p *TranscodePipeline) flushEncoder() error {
	pkts, err := p.Encoder.Flush(context.Background())
	if err != nil {
		return fmt.Errorf("pipeline: flushing encoder for track %d: %w", p.TrackID, err)
	}
	for _, pkt := range pkts {
		if err := p.writePacket(pkt); err != nil {
			return err
		}
	}
	return nil
}

func (p *TranscodePipeline) writePacket(pkt stream.Packet) error {
	pkt.TrackID = p.TrackID
	pkt.PTS = p.Clock.Rebase(p.TrackID, pkt.PTS)
	pkt.DTS = p.Clock.Rebase(p.TrackID, pkt.DTS)
	if err := p.Sink.WritePacket(pkt); err != nil {
		return fmt.Errorf("pipeline: writing track %d: %w", p.TrackID, err)
	}
	frac := p.Clock.ReportProgress(p.TrackID, pkt.PTS)
	if p.OnProgress != nil {
		p.OnProgress(frac)
	}
	return nil
}
