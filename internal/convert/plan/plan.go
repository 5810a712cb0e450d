// Package plan negotiates, for each input track, whether the conversion
// controller should discard it, copy it verbatim, or transcode it — and if
// transcoding, which transform/encode parameters apply.
package plan

import (
	"github.com/mediabunnygo/mediabunny/internal/codec"
	"github.com/mediabunnygo/mediabunny/internal/stream"
)

// Action is the tagged action a TrackPlan carries.
type Action string

// Plan actions.
const (
	ActionDiscard   Action = "discard"
	ActionCopy      Action = "copy"
	ActionTranscode Action = "transcode"
)

// FitMode controls how a video frame is resized into a differently-shaped
// output frame.
type FitMode string

// Fit modes.
const (
	FitStretch   FitMode = "stretch"
	FitLetterbox FitMode = "letterbox"
	FitCrop      FitMode = "crop"
)

// MixPolicy controls channel remixing when an audio track's channel count
// changes.
type MixPolicy string

// Mix policies.
const (
	MixDownmix MixPolicy = "downmix"
	MixUpmix   MixPolicy = "upmix"
	MixDrop    MixPolicy = "drop"
)

// VideoTransform describes the resize/rescale applied to a video track
// being transcoded.
type VideoTransform struct {
	Width, Height int
	Fit           FitMode
	TargetCodec   codec.Video
	HWAccel       codec.HWAccel
}

// AudioTransform describes the resample/remix applied to an audio track
// being transcoded.
type AudioTransform struct {
	SampleRate  int
	Channels    int
	Mix         MixPolicy
	TargetCodec codec.Audio
}

// TrackPlan is the decision made for one input track. At most one of
// Video/Audio is populated, matching Action and the track's Kind.
type TrackPlan struct {
	TrackID int
	Kind    stream.Kind
	Action  Action

	// Populated only when Action == ActionTranscode.
	Video *VideoTransform
	Audio *AudioTransform

	// Trim, if non-nil, clips output packets/frames to the window.
	Trim *Window
}

// Window restricts output to [Start, End) in track time base units,
// expressed as a fraction of the track's declared duration's numerator
// space — callers pass already-rescaled rational bounds via
// internal/timebase at negotiation time, so Window stores them as int64
// ticks paired with the track's TimeBase held by the caller.
type Window struct {
	StartTicks int64
	EndTicks   int64 // 0 means unbounded
}

// Contains reports whether a tick value at the track's own time base falls
// within the window.
func (w Window) Contains(ticks int64) bool {
	if ticks < w.StartTicks {
		return false
	}
	if w.EndTicks > 0 && ticks >= w.EndTicks {
		return false
	}
	return true
}

// Decide negotiates a TrackPlan for a single descriptor against a desired
// output container and an optional user-requested transform. request may
// be nil, meaning "keep this track, copy if possible".
func Decide(desc stream.TrackDescriptor, target codec.Container, request *Request) TrackPlan {
	p := TrackPlan{TrackID: desc.ID, Kind: desc.Kind}

	if request != nil && request.Discard {
		p.Action = ActionDiscard
		return p
	}

	switch desc.Kind {
	case stream.KindVideo:
		v, _ := codec.ParseVideo(desc.Codec)
		wantTranscode := request != nil && request.Video != nil
		if !wantTranscode && v.SupportsContainer(target) {
			p.Action = ActionCopy
		} else {
			p.Action = ActionTranscode
			targetCodec, ok := codec.PreferredVideoCodec(target)
			if !ok {
				targetCodec = codec.VideoH264
			}
			vt := VideoTransform{Width: desc.Width, Height: desc.Height, Fit: FitLetterbox, TargetCodec: targetCodec}
			if request != nil && request.Video != nil {
				vt = *request.Video
			}
			p.Video = &vt
		}
	case stream.KindAudio:
		a, _ := codec.ParseAudio(desc.Codec)
		wantTranscode := request != nil && request.Audio != nil
		if !wantTranscode && a.SupportsContainer(target) {
			p.Action = ActionCopy
		} else {
			p.Action = ActionTranscode
			targetCodec, ok := codec.PreferredAudioCodec(target)
			if !ok {
				targetCodec = codec.AudioAAC
			}
			at := AudioTransform{SampleRate: desc.SampleRate, Channels: desc.Channels, Mix: MixDownmix, TargetCodec: targetCodec}
			if request != nil && request.Audio != nil {
				at = *request.Audio
			}
			p.Audio = &at
		}
	default:
		p.Action = ActionDiscard
	}

	if request != nil {
		p.Trim = request.Trim
	}
	return p
}

// Request captures a caller's explicit wishes for one track, overriding
// Decide's defaults.
type Request struct {
	Discard bool
	Video   *VideoTransform
	Audio   *AudioTransform
	Trim    *Window
}
