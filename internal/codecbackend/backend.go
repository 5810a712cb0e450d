// Package codecbackend defines the decoder/encoder contract the track
// pipeline drives during transcode, and a capability-probed Registry of
// Factory implementations — the "capability trait / tagged variant"
// dispatch pattern used throughout this repository wherever a concrete
// implementation must be chosen at runtime from a fixed, closed set.
package codecbackend

import (
	"context"
	"fmt"

	"github.com/mediabunnygo/mediabunny/internal/codec"
	"github.com/mediabunnygo/mediabunny/internal/stream"
)

// Decoder turns coded packets from one track into decoded frames. The
// returned frame is *stream.VideoFrame or *stream.AudioFrame depending on
// the track kind the Decoder was created for.
type Decoder interface {
	Decode(ctx context.Context, p stream.Packet) (any, error)
	// Flush drains any frames the decoder buffered for reordering/lookahead
	// (e.g. B-frames held back for display-order reconstruction), returning
	// them in output order. Called once after the packet stream is
	// exhausted, before Close.
	Flush(ctx context.Context) ([]any, error)
	Close() error
}

// Encoder turns decoded frames into coded packets for one output track.
// frame is *stream.VideoFrame or *stream.AudioFrame depending on the
// track kind the Encoder was created for.
type Encoder interface {
	Encode(ctx context.Context, frame any) (stream.Packet, error)
	// Flush drains any frames buffered for reordering/lookahead, returning
	// the remaining packets in output order.
	Flush(ctx context.Context) ([]stream.Packet, error)
	Close() error
}

// ProcessStats reports resource usage for a backend that runs as a
// separate OS process (see codecbackend/ffmpegproc).
type ProcessStats struct {
	PID            int
	CPUPercent     float64
	MemoryRSSBytes uint64
}

// Factory creates Decoder/Encoder instances for the codecs it supports.
type Factory interface {
	// Name identifies the factory for logging and user overrides (e.g.
	// "ffmpegproc", "worker").
	Name() string

	// Supports reports whether this factory can handle codecName for the
	// given track kind.
	Supports(codecName string, kind stream.Kind) bool

	NewDecoder(ctx context.Context, desc stream.TrackDescriptor) (Decoder, error)
	NewEncoder(ctx context.Context, kind stream.Kind, target string, hwaccel codec.HWAccel) (Encoder, error)
}

// Registry holds an ordered list of factories and selects among them.
type Registry struct {
	factories []Factory
}

// NewRegistry creates an empty Registry. Factories are tried in
// registration order unless a caller requests one by name.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a factory to the registry.
func (r *Registry) Register(f Factory) {
	r.factories = append(r.factories, f)
}

// Select returns the first factory supporting codecName/kind, preferring
// preferredName if it supports the codec. Returns an error if no
// registered factory supports the request.
func (r *Registry) Select(codecName string, kind stream.Kind, preferredName string) (Factory, error) {
	if preferredName != "" {
		for _, f := range r.factories {
			if f.Name() == preferredName && f.Supports(codecName, kind) {
				return f, nil
			}
		}
	}
	for _, f := range r.factories {
		if f.Supports(codecName, kind) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("codecbackend: no factory supports codec %q (%s)", codecName, kind)
}

// Factories returns the registered factories in registration order.
func (r *Registry) Factories() []Factory {
	return append([]Factory(nil), r.factories...)
}
