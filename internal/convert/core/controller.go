package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mediabunnygo/mediabunny/internal/codec"
	"github.com/mediabunnygo/mediabunny/internal/codecbackend"
	"github.com/mediabunnygo/mediabunny/internal/convert/clock"
	"github.com/mediabunnygo/mediabunny/internal/convert/plan"
	"github.com/mediabunnygo/mediabunny/internal/convert/pipeline"
	"github.com/mediabunnygo/mediabunny/internal/convert/transform"
	"github.com/mediabunnygo/mediabunny/internal/convert/transform/resample"
	"github.com/mediabunnygo/mediabunny/internal/demux"
	"github.com/mediabunnygo/mediabunny/internal/mux"
	"github.com/mediabunnygo/mediabunny/internal/stream"
	"github.com/mediabunnygo/mediabunny/internal/timebase"
)

// Builder constructs a Controller via a fluent With* chain, validating
// inputs at Build() rather than at each setter call.
type Builder struct {
	input    demux.Input
	sink     mux.Adapter
	registry *codecbackend.Registry
	opts     Options
	logger   *slog.Logger
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{opts: Options{Overrides: map[int]TrackOverride{}}}
}

func (b *Builder) WithInput(in demux.Input) *Builder {
	b.input = in
	return b
}

func (b *Builder) WithSink(sink mux.Adapter) *Builder {
	b.sink = sink
	return b
}

func (b *Builder) WithRegistry(r *codecbackend.Registry) *Builder {
	b.registry = r
	return b
}

func (b *Builder) WithOptions(opts Options) *Builder {
	b.opts = opts
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build negotiates a plan for every input track, pre-opens the sink with
// the surviving tracks, and returns a ready Controller. Matches spec
// semantics for init(): inputs whose negotiated plan has zero surviving
// tracks fail with a NoOutputTracks error.
func (b *Builder) Build(ctx context.Context) (*Controller, error) {
	if b.input == nil {
		return nil, New(KindInternalInvariant, fmt.Errorf("core: Builder missing input"))
	}
	if b.sink == nil {
		return nil, New(KindInternalInvariant, fmt.Errorf("core: Builder missing sink"))
	}
	if b.registry == nil {
		b.registry = codecbackend.NewRegistry()
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}

	descs := b.input.Tracks()
	plans := make([]plan.TrackPlan, 0, len(descs))
	for _, d := range descs {
		req := b.opts.RequestFor(d.ID)
		p := plan.Decide(d, b.opts.OutputContainer, req)
		if p.Action == plan.ActionDiscard {
			continue
		}
		if err := validatePlan(d, p); err != nil {
			return nil, err
		}
		if p.Action == plan.ActionTranscode {
			if err := b.checkCodecsSupported(d, p); err != nil {
				return nil, err
			}
		}
		plans = append(plans, p)
	}
	if len(plans) == 0 {
		return nil, New(KindNoOutputTracks, fmt.Errorf("core: every track was discarded or unsupported"))
	}

	for _, p := range plans {
		d := descByID(descs, p.TrackID)
		params, err := trackParamsFor(d, p)
		if err != nil {
			return nil, err
		}
		if err := b.sink.AddTrack(params); err != nil {
			return nil, New(KindMuxerError, fmt.Errorf("core: adding track %d: %w", p.TrackID, err))
		}
	}
	if err := b.sink.Begin(); err != nil {
		return nil, New(KindMuxerError, fmt.Errorf("core: beginning output: %w", err))
	}

	trims := make(map[int]*plan.Window)
	for _, p := range plans {
		if p.Trim != nil {
			trims[p.TrackID] = p.Trim
		}
	}
	coord := clock.NewCoordinator(outputBase(plans, descs), b.input.Duration(), trims)

	return &Controller{
		input:    b.input,
		sink:     b.sink,
		registry: b.registry,
		descs:    descs,
		plans:    plans,
		coord:    coord,
		logger:   b.logger,
		progress: NewProgressReporter(10, nil),
	}, nil
}

// checkCodecsSupported rejects a transcode plan at negotiation time if no
// registered backend can decode the source codec or encode the target
// codec, rather than letting that surface later as an Execute failure.
func (b *Builder) checkCodecsSupported(d stream.TrackDescriptor, p plan.TrackPlan) error {
	target, _ := transcodeTarget(p)
	if _, err := b.registry.Select(d.Codec, d.Kind, ""); err != nil {
		return New(KindUnsupportedCodec, fmt.Errorf("core: track %d source codec %q: %w", d.ID, d.Codec, err))
	}
	if _, err := b.registry.Select(target, d.Kind, ""); err != nil {
		return New(KindUnsupportedCodec, fmt.Errorf("core: track %d target codec %q: %w", d.ID, target, err))
	}
	return nil
}

// transcodeTarget extracts the target codec name and hardware acceleration
// hint from whichever of p.Video/p.Audio is set.
func transcodeTarget(p plan.TrackPlan) (string, codec.HWAccel) {
	if p.Video != nil {
		return p.Video.TargetCodec.String(), p.Video.HWAccel
	}
	if p.Audio != nil {
		return p.Audio.TargetCodec.String(), codec.HWAccel("")
	}
	return "", codec.HWAccel("")
}

// validatePlan enforces spec invariant 6: any track transcoding to
// AVC/HEVC must target even width and height.
func validatePlan(d stream.TrackDescriptor, p plan.TrackPlan) error {
	if p.Video == nil {
		return nil
	}
	switch p.Video.TargetCodec {
	case codec.VideoH264, codec.VideoH265:
		if p.Video.Width%2 != 0 || p.Video.Height%2 != 0 {
			return Newf(KindIncompatibleRequest, "core: track %d requests odd dimensions %dx%d for %s", d.ID, p.Video.Width, p.Video.Height, p.Video.TargetCodec)
		}
	}
	return nil
}

func descByID(descs []stream.TrackDescriptor, id int) stream.TrackDescriptor {
	for _, d := range descs {
		if d.ID == id {
			return d
		}
	}
	return stream.TrackDescriptor{}
}

func trackParamsFor(d stream.TrackDescriptor, p plan.TrackPlan) (mux.TrackParams, error) {
	params := mux.TrackParams{ID: d.ID, Kind: d.Kind}
	switch p.Action {
	case plan.ActionCopy:
		params.Codec = d.Codec
		params.CodecPrivate = d.CodecPrivate
		params.Width, params.Height = d.Width, d.Height
		params.SampleRate, params.Channels = d.SampleRate, d.Channels
	case plan.ActionTranscode:
		switch d.Kind {
		case stream.KindVideo:
			params.Codec = p.Video.TargetCodec.String()
			params.Width, params.Height = p.Video.Width, p.Video.Height
		case stream.KindAudio:
			params.Codec = p.Audio.TargetCodec.String()
			params.SampleRate, params.Channels = p.Audio.SampleRate, p.Audio.Channels
		}
	default:
		return mux.TrackParams{}, Newf(KindInternalInvariant, "core: unexpected action %q building track params", p.Action)
	}
	if params.TimeBase == 0 {
		if d.TimeBase.Den > 0 {
			params.TimeBase = uint32(d.TimeBase.Den)
		} else {
			params.TimeBase = 1
		}
	}
	return params, nil
}

// outputBase picks a shared output time base: the finest (largest
// denominator) time base across all surviving tracks, so rebasing never
// loses precision.
func outputBase(plans []plan.TrackPlan, descs []stream.TrackDescriptor) timebase.Rational {
	bestDen := int64(1)
	for _, p := range plans {
		d := descByID(descs, p.TrackID)
		if d.TimeBase.Den > bestDen {
			bestDen = d.TimeBase.Den
		}
	}
	return timebase.New(0, bestDen)
}

// Controller drives a single conversion job from init to completion.
type Controller struct {
	input    demux.Input
	sink     mux.Adapter
	registry *codecbackend.Registry
	descs    []stream.TrackDescriptor
	plans    []plan.TrackPlan
	coord    *clock.Coordinator
	logger   *slog.Logger

	mu       sync.Mutex
	progress *ProgressReporter
	started  bool
}

// OnProgress registers a callback for progress updates, replacing any
// previously registered callback.
func (c *Controller) OnProgress(cb ProgressCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress = NewProgressReporter(10, cb)
}

func (c *Controller) reportProgress(fraction float64) {
	c.mu.Lock()
	r := c.progress
	c.mu.Unlock()
	r.Report(fraction)
}

// Cancel requests cancellation of a running Execute call. Safe to call
// before Execute, concurrently with it, or after it returns.
func (c *Controller) Cancel() {
	c.coord.Cancel()
}

// Execute runs every surviving track's pipeline concurrently to
// completion, finalizing the sink on success or aborting it on failure
// or cancellation.
func (c *Controller) Execute(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return New(KindInternalInvariant, fmt.Errorf("core: Execute called more than once"))
	}
	c.started = true
	c.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range c.plans {
		p := p
		d := descByID(c.descs, p.TrackID)
		g.Go(func() error {
			return c.runTrack(ctx, d, p)
		})
	}

	runErr := g.Wait()

	if c.coord.IsCancelled() {
		_ = c.sink.Abort()
		return ErrCancelled
	}
	if failed, failErr := c.coord.IsFailed(); failed {
		_ = c.sink.Abort()
		return failErr
	}
	if runErr != nil {
		_ = c.sink.Abort()
		return New(KindInternalInvariant, runErr)
	}

	if err := c.sink.Finalize(); err != nil {
		return New(KindMuxerError, fmt.Errorf("core: finalizing output: %w", err))
	}
	c.mu.Lock()
	c.progress.Report(1)
	c.mu.Unlock()
	return nil
}

func (c *Controller) runTrack(ctx context.Context, d stream.TrackDescriptor, p plan.TrackPlan) error {
	switch p.Action {
	case plan.ActionCopy:
		pl := &pipeline.Pipeline{TrackID: p.TrackID, Input: c.input, Plan: p, Sink: c.sink, Clock: c.coord, OnProgress: c.reportProgress}
		return pl.Run(ctx)
	case plan.ActionTranscode:
		return c.runTranscode(ctx, d, p)
	default:
		return nil
	}
}

func (c *Controller) runTranscode(ctx context.Context, d stream.TrackDescriptor, p plan.TrackPlan) error {
	targetCodec, hwaccel := transcodeTarget(p)

	// Build() already rejected any codec the registry can't handle; these
	// Select calls can still fail if the registry changes out from under a
	// running Controller, which is not a supported usage pattern.
	factory, err := c.registry.Select(d.Codec, d.Kind, "")
	if err != nil {
		return New(KindUnsupportedCodec, err)
	}
	decoder, err := factory.NewDecoder(ctx, d)
	if err != nil {
		return New(KindUnsupportedCodec, err)
	}
	defer decoder.Close()

	encFactory, err := c.registry.Select(targetCodec, d.Kind, "")
	if err != nil {
		return New(KindUnsupportedCodec, err)
	}
	encoder, err := encFactory.NewEncoder(ctx, d.Kind, targetCodec, hwaccel)
	if err != nil {
		return New(KindUnsupportedCodec, err)
	}
	defer encoder.Close()

	tp := &pipeline.TranscodePipeline{
		TrackID:    p.TrackID,
		Input:      c.input,
		Plan:       p,
		Sink:       c.sink,
		Clock:      c.coord,
		Decoder:    decoder,
		Encoder:    encoder,
		OnProgress: c.reportProgress,
	}
	if p.Video != nil {
		tp.Resizer = transform.NewVideoResizer(*p.Video)
	}
	if p.Audio != nil {
		if p.Audio.SampleRate > 0 && p.Audio.SampleRate != d.SampleRate {
			tp.Resampler = resample.NewResampler(d.SampleRate, p.Audio.SampleRate)
		}
		if p.Audio.Channels > 0 && p.Audio.Channels != d.Channels {
			tp.Remixer = resample.NewRemixer(p.Audio.Channels, p.Audio.Mix)
		}
	}
	return tp.Run(ctx)
}
