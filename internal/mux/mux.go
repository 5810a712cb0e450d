// Package mux defines the output-side contract the conversion core writes
// muxed packets through, and a serializing decorator any concrete adapter
// can be wrapped in when multiple track pipelines share one sink.
package mux

import (
	"sync"

	"github.com/mediabunnygo/mediabunny/internal/stream"
)

// TrackParams describes one output track as the muxer needs to know it at
// AddTrack time: final codec, time base, and codec-private data.
type TrackParams struct {
	ID           int
	Kind         stream.Kind
	Codec        string
	CodecPrivate []byte
	TimeBase     uint32 // output time scale, e.g. 90000 or the track's native rate

	Width, Height int
	SampleRate    int
	Channels      int
}

// Adapter is the contract every container-format muxer implements. Calls
// arrive in the order AddTrack* → Begin → WritePacket* → Finalize, or
// Abort at any point after Begin.
type Adapter interface {
	// AddTrack registers an output track before Begin is called. Returns
	// an error if the container cannot carry this codec.
	AddTrack(params TrackParams) error

	// Begin writes any container header/init segment once all tracks are
	// registered.
	Begin() error

	// WritePacket writes one packet to its track. Must not be called
	// before Begin or after Finalize/Abort.
	WritePacket(p stream.Packet) error

	// Finalize writes any trailing container structures (e.g. duration
	// boxes, index) and flushes the underlying writer.
	Finalize() error

	// Abort releases resources without producing a valid output file.
	Abort() error
}

// SerializingAdapter decorates an Adapter so WritePacket (the only method
// called concurrently by multiple track pipelines) is safe under a single
// mutex. Every other method is expected to be called once, sequentially,
// by the conversion controller, so they pass through unlocked.
type SerializingAdapter struct {
	inner Adapter
	mu    sync.Mutex
}

// NewSerializingAdapter wraps inner for concurrent use by track pipelines.
func NewSerializingAdapter(inner Adapter) *SerializingAdapter {
	return &SerializingAdapter{inner: inner}
}

func (s *SerializingAdapter) AddTrack(params TrackParams) error { return s.inner.AddTrack(params) }
func (s *SerializingAdapter) Begin() error                      { return s.inner.Begin() }
func (s *SerializingAdapter) Finalize() error                   { return s.inner.Finalize() }
func (s *SerializingAdapter) Abort() error                      { return s.inner.Abort() }

// WritePacket serializes concurrent writers behind a mutex. The critical
// section is exactly the inner write — no I/O setup or teardown — keeping
// contention low under the controller's fan-out.
func (s *SerializingAdapter) WritePacket(p stream.Packet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.WritePacket(p)
}

var _ Adapter = (*SerializingAdapter)(nil)
