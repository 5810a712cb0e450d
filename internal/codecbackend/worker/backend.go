// Package worker implements codecbackend.Factory as an in-process,
// channel-driven decode/encode pool — a stand-in for a native (cgo or
// out-of-process) codec backend that would otherwise be fronted by an RPC
// layer. It uses a goroutine-per-unit-of-work orchestration style without
// adding a wire protocol, since no out-of-process transport is required
// for an in-process decoder.
package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/mediabunnygo/mediabunny/internal/codec"
	"github.com/mediabunnygo/mediabunny/internal/codecbackend"
	"github.com/mediabunnygo/mediabunny/internal/stream"
)

// DecodeFunc decodes one packet into a frame. Registered per source codec
// name by callers that embed a native (cgo) decoder; this package only
// supplies the pooling and lifecycle around such a function.
type DecodeFunc func(ctx context.Context, p stream.Packet) (any, error)

// DecodeFlushFunc drains any frames a DecodeFunc buffered internally for
// reordering/lookahead.
type DecodeFlushFunc func(ctx context.Context) ([]any, error)

// EncodeFunc encodes one frame into one packet; a packet with empty Data
// means the encoder produced no output for that frame.
type EncodeFunc func(ctx context.Context, frame any) (stream.Packet, error)

// FlushFunc drains any frames an EncodeFunc buffered internally.
type FlushFunc func(ctx context.Context) ([]stream.Packet, error)

// Codec registers the behavior for one source/target codec name.
type Codec struct {
	Kind        stream.Kind
	Decode      DecodeFunc
	DecodeFlush DecodeFlushFunc
	Encode      EncodeFunc
	Flush       FlushFunc
}

// Factory dispatches decode/encode work to registered Codec implementations
// through a bounded worker pool, so CPU-bound native calls never run
// unbounded concurrently with the rest of the pipeline.
type Factory struct {
	mu       sync.RWMutex
	decoders map[string]*Codec
	encoders map[string]*Codec

	sem chan struct{}
}

// New creates a Factory whose worker pool allows at most concurrency
// simultaneous decode/encode calls across all tracks.
func New(concurrency int) *Factory {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Factory{
		decoders: make(map[string]*Codec),
		encoders: make(map[string]*Codec),
		sem:      make(chan struct{}, concurrency),
	}
}

func (f *Factory) Name() string { return "worker" }

// RegisterDecoder makes codecName available as a decode target.
func (f *Factory) RegisterDecoder(codecName string, c *Codec) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decoders[codecName] = c
}

// RegisterEncoder makes codecName available as an encode target.
func (f *Factory) RegisterEncoder(codecName string, c *Codec) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.encoders[codecName] = c
}

func (f *Factory) Supports(codecName string, kind stream.Kind) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if c, ok := f.decoders[codecName]; ok && c.Kind == kind {
		return true
	}
	if c, ok := f.encoders[codecName]; ok && c.Kind == kind {
		return true
	}
	return false
}

func (f *Factory) NewDecoder(ctx context.Context, desc stream.TrackDescriptor) (codecbackend.Decoder, error) {
	f.mu.RLock()
	c, ok := f.decoders[desc.Codec]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("worker: no decoder registered for codec %q", desc.Codec)
	}
	return &pooledDecoder{sem: f.sem, fn: c.Decode, flush: c.DecodeFlush}, nil
}

func (f *Factory) NewEncoder(ctx context.Context, kind stream.Kind, target string, hwaccel codec.HWAccel) (codecbackend.Encoder, error) {
	f.mu.RLock()
	c, ok := f.encoders[target]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("worker: no encoder registered for codec %q", target)
	}
	return &pooledEncoder{sem: f.sem, encode: c.Encode, flush: c.Flush}, nil
}

type pooledDecoder struct {
	sem   chan struct{}
	fn    DecodeFunc
	flush DecodeFlushFunc
}

func (d *pooledDecoder) Decode(ctx context.Context, p stream.Packet) (any, error) {
	select {
	case d.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-d.sem }()
	return d.fn(ctx, p)
}

func (d *pooledDecoder) Flush(ctx context.Context) ([]any, error) {
	if d.flush == nil {
		return nil, nil
	}
	return d.flush(ctx)
}

func (d *pooledDecoder) Close() error { return nil }

type pooledEncoder struct {
	sem    chan struct{}
	encode EncodeFunc
	flush  FlushFunc
}

func (e *pooledEncoder) Encode(ctx context.Context, frame any) (stream.Packet, error) {
	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return stream.Packet{}, ctx.Err()
	}
	defer func() { <-e.sem }()
	return e.encode(ctx, frame)
}

func (e *pooledEncoder) Flush(ctx context.Context) ([]stream.Packet, error) {
	if e.flush == nil {
		return nil, nil
	}
	return e.flush(ctx)
}

func (e *pooledEncoder) Close() error { return nil }

var _ codecbackend.Factory = (*Factory)(nil)
var _ codecbackend.Decoder = (*pooledDecoder)(nil)
var _ codecbackend.Encoder = (*pooledEncoder)(nil)
