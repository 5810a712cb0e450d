// Package demux defines the input contract the conversion controller
// requires of a container demuxer, plus two reference implementations:
// an in-memory fake for tests and a minimal real RIFF/WAVE reader.
package demux

import (
	"errors"

	"github.com/mediabunnygo/mediabunny/internal/stream"
	"github.com/mediabunnygo/mediabunny/internal/timebase"
)

// ErrEOF is returned by NextPacket when a track has no more packets.
var ErrEOF = errors.New("demux: end of track")

// Input is the contract a conforming demuxer provides to the conversion
// controller: track enumeration, a monotonic-DTS per-track packet
// iterator, keyframe seek, and a duration estimate. Implementations are
// not required to be safe for concurrent use by multiple goroutines on
// the same track, but distinct tracks may be read concurrently.
type Input interface {
	// Tracks enumerates the input's tracks and their descriptors.
	Tracks() []stream.TrackDescriptor

	// NextPacket returns the next packet for trackID, in DTS order.
	// Returns ErrEOF once the track is exhausted.
	NextPacket(trackID int) (stream.Packet, error)

	// Seek moves trackID's read position to the keyframe at or before
	// targetTime, returning the actual time sought to.
	Seek(trackID int, targetTime timebase.Rational) (timebase.Rational, error)

	// Duration estimates the input's total duration.
	Duration() timebase.Rational

	// Close releases any resources held by the input.
	Close() error
}
