package core

import (
	"github.com/mediabunnygo/mediabunny/internal/codec"
	"github.com/mediabunnygo/mediabunny/internal/convert/plan"
)

// TrackOverride captures a caller's explicit request for one track,
// identified by its source track ID. Exactly one of the embedded pointers
// should be meaningful for the track's kind; Discard takes precedence
// over both.
type TrackOverride struct {
	TrackID int
	Discard bool
	Video   *plan.VideoTransform
	Audio   *plan.AudioTransform
	Trim    *plan.Window
}

// Options is the user-facing surface of Controller.Init, mirroring
// spec §6's init(input, output, {video?, audio?, trim?}) signature:
// per-track overrides plus the desired output container.
type Options struct {
	OutputContainer codec.Container

	// Overrides maps source track ID to an explicit request. Tracks with
	// no entry are negotiated with plan.Decide's defaults (copy if the
	// container supports the source codec, else transcode to a sensible
	// default).
	Overrides map[int]TrackOverride

	// PreferredBackend names a codecbackend.Factory to prefer during
	// Select, when more than one registered factory supports a codec.
	PreferredBackend string
}

// RequestFor builds a plan.Request for trackID from any registered
// override, or nil if the track has no override.
func (o Options) RequestFor(trackID int) *plan.Request {
	ov, ok := o.Overrides[trackID]
	if !ok {
		return nil
	}
	return &plan.Request{
		Discard: ov.Discard,
		Video:   ov.Video,
		Audio:   ov.Audio,
		Trim:    ov.Trim,
	}
}
