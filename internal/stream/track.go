// Package stream defines the data model the conversion core operates on:
// track descriptors, coded packets, and decoded frames. Types here are the
// vocabulary shared by the demuxer input contract, the codec backends, and
// the muxer adapters (see internal/demux, internal/codecbackend, internal/mux).
package stream

import "github.com/mediabunnygo/mediabunny/internal/timebase"

// Kind identifies the media type carried by a track.
type Kind string

// Track kinds.
const (
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindSubtitle Kind = "subtitle"
)

// ColorSpace tags the color space of decoded video pixel data.
type ColorSpace string

// Known color space tags.
const (
	ColorSpaceBT601 ColorSpace = "bt601"
	ColorSpaceBT709 ColorSpace = "bt709"
	ColorSpaceBT2020 ColorSpace = "bt2020"
	ColorSpaceUnknown ColorSpace = ""
)

// TrackDescriptor is immutable per-track metadata produced by the demuxer
// during input probing. Implementations of demux.Input return these for
// every track they enumerate.
type TrackDescriptor struct {
	// ID uniquely identifies this track within its input.
	ID int

	Kind Kind

	// Codec is the source codec name (e.g. "h264", "aac"), as understood by
	// internal/codec's registry.
	Codec string

	// CodecPrivate is the codec's out-of-band configuration (AVCC record,
	// AudioSpecificConfig, …), when present. May be nil.
	CodecPrivate []byte

	// TimeBase is the rational unit packet timestamps on this track are
	// expressed in.
	TimeBase timebase.Rational

	// Duration is the track's declared duration, in TimeBase units.
	Duration timebase.Rational

	// Video-only intrinsic parameters. Zero for non-video tracks.
	Width, Height int
	FrameRate     float64 // 0 if variable/unknown

	// Audio-only intrinsic parameters. Zero for non-audio tracks.
	SampleRate int
	Channels   int

	// MaxReorderDepth is the codec's declared maximum number of frames a
	// decoder may hold before presentation order is recoverable. Nothing
	// in this repository reads it.
	MaxReorderDepth int
}

// IsVideo reports whether the descriptor is for a video track.
func (d TrackDescriptor) IsVideo() bool { return d.Kind == KindVideo }

// IsAudio reports whether the descriptor is for an audio track.
func (d TrackDescriptor) IsAudio() bool { return d.Kind == KindAudio }
